package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"talkclip/audio"
	"talkclip/beep"
	"talkclip/clipboard"
	"talkclip/config"
	"talkclip/doctor"
	"talkclip/encoder"
	"talkclip/hotkey"
	"talkclip/indicator"
	"talkclip/log"
	"talkclip/session"
	"talkclip/shutdown"
	"talkclip/transcriber"
)

var version = "dev"

type options struct {
	configPath string
	explicit   bool // -config was given on the command line

	logPath   string
	format    string
	autoPaste bool
	device    string
	lang      string
	mute      bool
	setup     bool
	doctor    bool
	version   bool
	test      bool

	set  map[string]bool
	args []string
}

func parseFlags(flags *flag.FlagSet, args []string) (*options, error) {
	o := &options{}
	flags.StringVar(&o.configPath, "config", config.DefaultPath, "YAML config file")
	flags.StringVar(&o.logPath, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	flags.StringVar(&o.format, "format", encoder.FormatWAV, "Upload format: wav or flac")
	flags.BoolVar(&o.autoPaste, "autopaste", false, "Auto-paste to focused window after transcription")
	flags.StringVar(&o.device, "device", "", "Use named microphone device")
	flags.StringVar(&o.lang, "lang", "", "Language hint for transcription (e.g., en, fa). Empty = auto-detect")
	flags.BoolVar(&o.mute, "mute", false, "Disable start and success cues")
	flags.BoolVar(&o.setup, "setup", false, "Select microphone device (otherwise uses system default)")
	flags.BoolVar(&o.doctor, "doctor", false, "Run system diagnostics and exit")
	flags.BoolVar(&o.version, "version", false, "Print version and exit")
	flags.BoolVar(&o.test, "test", false, "Test mode (headless, stdin-driven): -test <wav-file>")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	o.set = make(map[string]bool)
	flags.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	o.explicit = o.set["config"]
	o.args = flags.Args()
	return o, nil
}

// loadConfig reads the config file and applies flags set on the command
// line on top of it. A missing file is only an error when -config was given.
func loadConfig(o *options) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		if o.explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg = config.Default()
	}

	if o.set["logpath"] {
		cfg.LogPath = o.logPath
	}
	if o.set["format"] {
		cfg.UploadFormat = o.format
	}
	if o.set["autopaste"] {
		cfg.AutoPaste = o.autoPaste
	}
	if o.set["device"] {
		cfg.Device = o.device
	}
	if o.set["lang"] {
		cfg.Transcription.Language = o.lang
	}
	if o.set["mute"] {
		cfg.Cues.Muted = o.mute
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openAIConfig(cfg *config.Config) transcriber.OpenAIConfig {
	return transcriber.OpenAIConfig{
		Model:    cfg.Transcription.Model,
		Prompt:   cfg.Transcription.Prompt,
		Language: cfg.Transcription.Language,
		BaseURL:  cfg.Transcription.BaseURL,
		Timeout:  cfg.Transcription.Timeout,
	}
}

func run() {
	os.Exit(runMain(os.Args[1:], os.Stdin, os.Stdout))
}

func runMain(args []string, stdin io.Reader, stdout io.Writer) int {
	o, err := parseFlags(flag.CommandLine, args)
	if err != nil {
		return 2
	}

	if o.version {
		fmt.Fprintf(stdout, "talkclip %s\n", version)
		return 0
	}

	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// Resolve log directory early
	logPath, err := log.ResolveDir(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	} else {
		openCrashLog(log.Dir())
	}
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	if o.test {
		if len(o.args) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: talkclip -test <wav-file>")
			return 1
		}
		return runTestMode(cfg, o.args[0], stdin, stdout)
	}

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintf(stdout, "Error initializing audio context: %v\n", err)
		return 1
	}
	defer actx.Close()

	device := resolveDevice(actx, cfg, o.setup, stdout)

	if o.doctor {
		return doctor.Run(stdout, doctor.Default(actx, device))
	}

	if cfg.Cues.Muted {
		beep.Disable()
	}
	player := beep.New(cfg.Cues.Start, cfg.Cues.Success)
	con := newConsole(stdout)

	var paster session.Paster
	if cfg.AutoPaste {
		if err := clipboard.Init(); err != nil {
			log.Warnf("paste init failed: %v", err)
			fmt.Fprintf(stdout, "Warning: paste init failed: %v\n", err)
		} else {
			paster = clipboard.Paster{}
		}
	}

	ctrl := session.New(session.Options{
		Audio:        actx,
		Device:       device,
		Transcriber:  transcriber.NewOpenAI(openAIConfig(cfg), nil),
		Clipboard:    clipboard.System{},
		Paster:       paster,
		Cues:         player,
		Indicator:    indicator.New(stdout, player),
		Events:       con,
		OutputPath:   cfg.OutputPath,
		UploadFormat: cfg.UploadFormat,
		Timeout:      cfg.Transcription.Timeout,
	})
	log.Startup(version, cfg.Transcription.Model, cfg.UploadFormat)

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		log.Errorf("hotkey register error: %v", err)
		fmt.Fprintf(stdout, "Error registering hotkey: %v\n", err)
		return 1
	}
	defer hk.Unregister()

	con.banner()

	ctx, stop := shutdown.Context(context.Background())
	defer stop()
	hotkey.Listen(ctx, hk, func() { ctrl.Toggle() })

	ctrl.Close()
	log.Shutdown(ctrl.Sessions())
	return 0
}

// resolveDevice picks the capture device: the configured name, the
// interactive picker with -setup, or nil for the system default.
func resolveDevice(actx audio.Context, cfg *config.Config, setup bool, out io.Writer) *audio.DeviceInfo {
	if cfg.Device != "" {
		dev, err := audio.FindDevice(actx, cfg.Device)
		if err == nil && dev == nil {
			err = fmt.Errorf("device %q not found", cfg.Device)
		}
		if err != nil {
			log.Warnf("device %q: %v", cfg.Device, err)
			fmt.Fprintf(out, "Warning: %v\n", err)
			fmt.Fprintln(out, "Falling back to default device")
			return nil
		}
		return dev
	}
	if !setup {
		return nil
	}
	dev, err := audio.SelectDevice(actx)
	if err != nil {
		log.Warnf("device selection failed: %v", err)
		fmt.Fprintf(out, "Warning: device selection failed: %v\n", err)
		fmt.Fprintln(out, "Falling back to default device")
		return nil
	}
	fmt.Fprintf(out, "Using device: %s\n", dev.Name)
	return dev
}
