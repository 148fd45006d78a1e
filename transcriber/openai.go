package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"talkclip/encoder"
	"talkclip/log"
)

const (
	EnvAPIKey  = "OPENAI_API_KEY"
	EnvBaseURL = "OPENAI_BASE_URL"

	DefaultBaseURL = "https://api.openai.com/v1/"
	DefaultModel   = openai.AudioModelGPT4oTranscribe
	DefaultTimeout = 60 * time.Second
	DefaultPrompt  = "Transcribe completely and exactly what is said. Language may be Persian or English. " +
		"No summary. Sentences should preferably be meaningful. Usually my sentences are about software development."
)

type OpenAIConfig struct {
	Model    string
	Prompt   string
	Language string        // optional ISO-639-1 hint
	BaseURL  string        // falls back to OPENAI_BASE_URL, then DefaultBaseURL
	Timeout  time.Duration // per request
}

type OpenAI struct {
	cfg    OpenAIConfig
	client *TracedClient
}

// NewOpenAI builds a client. client may be nil for the default transport.
func NewOpenAI(cfg OpenAIConfig, client *TracedClient) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if client == nil {
		client = NewTracedClient(nil)
	}
	return &OpenAI{cfg: cfg, client: client}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) baseURL() string {
	if o.cfg.BaseURL != "" {
		return o.cfg.BaseURL
	}
	if env := os.Getenv(EnvBaseURL); env != "" {
		return env
	}
	return DefaultBaseURL
}

// Warm pre-opens the TLS connection to the API host.
func (o *OpenAI) Warm() {
	if d := o.client.WarmConnection(o.baseURL()); d > 0 {
		log.Infof("warm_connection tls_ms=%.1f", float64(d.Microseconds())/1000)
	}
}

// Transcribe uploads rec and returns the plain-text transcript. The API key is
// read from the environment on every call so it can be set while running.
func (o *OpenAI) Transcribe(ctx context.Context, rec encoder.Recording) (string, error) {
	key := os.Getenv(EnvAPIKey)
	if key == "" {
		return "", ErrMissingCredential
	}

	client := openai.NewClient(
		option.WithAPIKey(key),
		option.WithBaseURL(o.baseURL()),
		option.WithHTTPClient(o.client),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(o.cfg.Timeout),
	)

	params := openai.AudioTranscriptionNewParams{
		File:           openai.File(bytes.NewReader(rec.Data), rec.Filename(), rec.ContentType()),
		Model:          openai.AudioModel(o.cfg.Model),
		Prompt:         openai.String(o.cfg.Prompt),
		Temperature:    openai.Float(0),
		ResponseFormat: openai.AudioResponseFormatText,
	}
	if o.cfg.Language != "" {
		params.Language = openai.String(o.cfg.Language)
	}

	metrics := &NetworkMetrics{}
	var text string
	_, err := client.Audio.Transcriptions.New(withMetrics(ctx, metrics), params, option.WithResponseBodyInto(&text))

	log.TranscriptionMetrics(log.SessionID(ctx), log.Metrics{
		Model:        o.cfg.Model,
		Format:       rec.Format,
		AudioLengthS: rec.Duration().Seconds(),
		UploadKB:     float64(len(rec.Data)) / 1024,
		DNSTimeMs:    ms(metrics.DNS),
		ConnTimeMs:   ms(metrics.TCP),
		TLSTimeMs:    ms(metrics.TLS),
		TTFBMs:       ms(metrics.TTFB),
		TotalTimeMs:  ms(metrics.Total),
		ConnReused:   metrics.ConnReused,
		TLSProto:     metrics.TLSProtocol,
	})
	if metrics.RateLimit != "" && metrics.RateLimit != "?/?" {
		log.Info("rate_limit: " + metrics.RateLimit)
	}

	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransport, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResult
	}
	return text, nil
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
