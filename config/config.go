// Package config loads talkclip settings from an optional YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"talkclip/encoder"
	"talkclip/session"
	"talkclip/transcriber"
)

const DefaultPath = "talkclip.yaml"

type Config struct {
	OutputPath    string              `yaml:"output_path"`
	UploadFormat  string              `yaml:"upload_format"`
	Device        string              `yaml:"device"`
	AutoPaste     bool                `yaml:"autopaste"`
	LogPath       string              `yaml:"log_path"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Cues          CueConfig           `yaml:"cues"`
}

type TranscriptionConfig struct {
	Model    string        `yaml:"model"`
	Prompt   string        `yaml:"prompt"`
	Language string        `yaml:"language"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

type CueConfig struct {
	Start   string `yaml:"start"`
	Success string `yaml:"success"`
	Muted   bool   `yaml:"muted"`
}

func Default() *Config {
	return &Config{
		OutputPath:   session.DefaultOutputPath,
		UploadFormat: encoder.FormatWAV,
		Transcription: TranscriptionConfig{
			Model:   transcriber.DefaultModel,
			Prompt:  transcriber.DefaultPrompt,
			Timeout: transcriber.DefaultTimeout,
		},
		Cues: CueConfig{
			Start:   "start.wav",
			Success: "success.wav",
		},
	}
}

// Load overlays the YAML file at path on Default. Keys absent from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.OutputPath == "" {
		return fmt.Errorf("output_path cannot be empty")
	}
	switch c.UploadFormat {
	case encoder.FormatWAV, encoder.FormatFLAC:
	default:
		return fmt.Errorf("upload_format must be %q or %q, got %q", encoder.FormatWAV, encoder.FormatFLAC, c.UploadFormat)
	}
	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}
	return nil
}

func (t *TranscriptionConfig) Validate() error {
	if t.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if t.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1s, got %v", t.Timeout)
	}
	if len(t.Language) != 0 && len(t.Language) != 2 {
		return fmt.Errorf("language must be an ISO-639-1 code, got %q", t.Language)
	}
	return nil
}
