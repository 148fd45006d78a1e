package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "talkclip.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.OutputPath != "recorded_audio.wav" {
		t.Errorf("OutputPath = %q", cfg.OutputPath)
	}
	if cfg.Transcription.Model != "gpt-4o-transcribe" {
		t.Errorf("Model = %q", cfg.Transcription.Model)
	}
	if cfg.Transcription.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v", cfg.Transcription.Timeout)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
upload_format: flac
autopaste: true
transcription:
  language: fa
  timeout: 90s
cues:
  muted: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.UploadFormat != "flac" || !cfg.AutoPaste || !cfg.Cues.Muted {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Transcription.Language != "fa" || cfg.Transcription.Timeout != 90*time.Second {
		t.Errorf("transcription = %+v", cfg.Transcription)
	}
	if cfg.OutputPath != "recorded_audio.wav" || cfg.Cues.Start != "start.wav" {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.Transcription.Prompt == "" {
		t.Error("default prompt lost")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	for _, tt := range []struct {
		name, body, want string
	}{
		{"bad yaml", "output_path: [", "failed to parse"},
		{"format", "upload_format: mp3", "upload_format"},
		{"empty output", `output_path: ""`, "output_path"},
		{"short timeout", "transcription:\n  timeout: 10ms", "timeout"},
		{"language", "transcription:\n  language: persian", "language"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
