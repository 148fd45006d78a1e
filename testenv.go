package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"talkclip/audio"
	"talkclip/beep"
	"talkclip/clipboard"
	"talkclip/config"
	"talkclip/hotkey"
	"talkclip/log"
	"talkclip/session"
	"talkclip/transcriber"
)

// EnvFakeTranscript makes test mode answer every session with this text
// instead of calling the API.
const EnvFakeTranscript = "TALKCLIP_FAKE_TRANSCRIPT"

type testCommand struct {
	name  string
	sleep time.Duration
}

func parseTestCommand(line string) (testCommand, error) {
	line = strings.TrimSpace(line)
	switch line {
	case "TOGGLE", "WAIT", "WAIT_AUDIO_DONE", "QUIT":
		return testCommand{name: line}, nil
	}
	if rest, ok := strings.CutPrefix(line, "SLEEP "); ok {
		ms, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil || ms < 0 {
			return testCommand{}, fmt.Errorf("bad SLEEP argument %q", rest)
		}
		return testCommand{name: "SLEEP", sleep: time.Duration(ms) * time.Millisecond}, nil
	}
	return testCommand{}, fmt.Errorf("unknown command %q", line)
}

// runTestMode replays wavPath as the microphone and drives the controller
// from stdin commands: TOGGLE, WAIT, WAIT_AUDIO_DONE, SLEEP <ms>, QUIT.
func runTestMode(cfg *config.Config, wavPath string, in io.Reader, out io.Writer) int {
	beep.Disable()

	fake, err := audio.NewFakeContextFromWAV(wavPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		return 1
	}

	var tr transcriber.Transcriber = transcriber.NewOpenAI(openAIConfig(cfg), nil)
	if text := os.Getenv(EnvFakeTranscript); text != "" {
		tr = transcriber.NewFake(text, nil)
	}

	ctrl := session.New(session.Options{
		Audio:        fake,
		Transcriber:  tr,
		Clipboard:    clipboard.System{},
		Events:       newConsole(out),
		OutputPath:   cfg.OutputPath,
		UploadFormat: cfg.UploadFormat,
		Timeout:      cfg.Transcription.Timeout,
	})
	log.Startup(version, cfg.Transcription.Model, cfg.UploadFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hk := hotkey.NewFake()
	toggled := make(chan session.State)
	go hotkey.Listen(ctx, hk, func() { toggled <- ctrl.Toggle() })

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}
		cmd, err := parseTestCommand(scanner.Text())
		if err != nil {
			log.Warnf("test mode: %v", err)
			continue
		}
		switch cmd.name {
		case "TOGGLE":
			hk.SimKeydown()
			log.Infof("test mode: toggled to %s", <-toggled)
		case "WAIT":
			ctrl.Wait()
		case "WAIT_AUDIO_DONE":
			if c := fake.Last(); c != nil && c.Started() {
				<-c.AudioDone()
			}
		case "SLEEP":
			time.Sleep(cmd.sleep)
		case "QUIT":
			return finishTestMode(ctrl)
		}
	}
	return finishTestMode(ctrl)
}

func finishTestMode(ctrl *session.Controller) int {
	ctrl.Close()
	log.Shutdown(ctrl.Sessions())
	return 0
}
