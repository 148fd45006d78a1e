// Package doctor runs self-checks for the pieces talkclip depends on.
package doctor

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"talkclip/audio"
	"talkclip/clipboard"
	"talkclip/encoder"
	"talkclip/hotkey"
	"talkclip/transcriber"
)

type Check struct {
	Name string
	Run  func() (string, error)
}

// Run executes checks in order and returns an exit code (0=all pass, 1=any fail).
func Run(w io.Writer, checks []Check) int {
	fmt.Fprintln(w, "talkclip doctor - system diagnostics")
	fmt.Fprintln(w, "====================================")

	failed := 0
	for i, c := range checks {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "[%d/%d] %s\n", i+1, len(checks), c.Name)
		msg, err := c.Run()
		if err != nil {
			fmt.Fprintf(w, "  FAIL: %v\n", err)
			failed++
			continue
		}
		fmt.Fprintf(w, "  PASS: %s\n", msg)
	}

	fmt.Fprintln(w)
	if failed == 0 {
		fmt.Fprintln(w, "All checks passed!")
		return 0
	}
	fmt.Fprintf(w, "%d check(s) failed. See details above.\n", failed)
	return 1
}

// Default is the standard check list against the real system.
func Default(ctx audio.Context, device *audio.DeviceInfo) []Check {
	return []Check{
		{"API credential", CheckCredential},
		{"Hotkey (F9)", hotkey.Diagnose},
		{"Microphone", func() (string, error) { return CheckCapture(ctx, device, time.Second) }},
		{"Clipboard", clipboard.Verify},
	}
}

func CheckCredential() (string, error) {
	if os.Getenv(transcriber.EnvAPIKey) == "" {
		return "", transcriber.ErrMissingCredential
	}
	return transcriber.EnvAPIKey + " is set", nil
}

// CheckCapture records for d and reports how many callbacks arrived.
func CheckCapture(ctx audio.Context, device *audio.DeviceInfo, d time.Duration) (string, error) {
	if ctx == nil {
		return "", fmt.Errorf("no audio backend")
	}
	capture, err := ctx.NewCapture(device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		return "", fmt.Errorf("cannot open capture device: %w", err)
	}
	defer capture.Close()

	var mu sync.Mutex
	var blocks, frames int
	capture.SetCallback(func(_ []byte, frameCount uint32) {
		mu.Lock()
		blocks++
		frames += int(frameCount)
		mu.Unlock()
	})

	if err := capture.Start(); err != nil {
		return "", fmt.Errorf("cannot start capture: %w", err)
	}
	time.Sleep(d)
	capture.ClearCallback()
	if err := capture.Stop(); err != nil {
		return "", fmt.Errorf("cannot stop capture: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if blocks == 0 {
		return "", fmt.Errorf("no audio received from %s in %v", capture.DeviceName(), d)
	}
	return fmt.Sprintf("%d blocks, %.2fs of audio from %s", blocks,
		float64(frames)/encoder.SampleRate, capture.DeviceName()), nil
}
