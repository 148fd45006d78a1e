package transcriber

import (
	"context"
	"errors"
	"net/http"
	"time"

	"talkclip/encoder"
)

var (
	ErrMissingCredential = errors.New("OPENAI_API_KEY environment variable is not set")
	ErrTransport         = errors.New("transcription request failed")
	ErrEmptyResult       = errors.New("transcription returned no text")
)

type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, rec encoder.Recording) (string, error)
}

// Warmer is implemented by transcribers that can pre-open their connection
// while audio is still being recorded.
type Warmer interface {
	Warm()
}

type NetworkMetrics struct {
	DNS         time.Duration
	ConnWait    time.Duration
	TCP         time.Duration
	TLS         time.Duration
	ReqHeaders  time.Duration
	ReqBody     time.Duration
	TTFB        time.Duration
	Download    time.Duration
	Total       time.Duration
	ConnReused  bool
	TLSProtocol string
	StatusCode  int
	RateLimit   string
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}
