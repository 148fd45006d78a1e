package encoder

import (
	"fmt"
	"time"
)

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

const (
	FormatWAV  = "wav"
	FormatFLAC = "flac"
)

// Recording is a captured session encoded for upload or storage.
type Recording struct {
	Data       []byte
	Format     string
	SampleRate int
	Channels   int
	Frames     int
}

func (r Recording) Duration() time.Duration {
	if r.SampleRate == 0 {
		return 0
	}
	return time.Duration(r.Frames) * time.Second / time.Duration(r.SampleRate)
}

// Filename is the name the payload is uploaded under; the service sniffs
// the container from the extension.
func (r Recording) Filename() string {
	return "audio." + r.Format
}

func (r Recording) ContentType() string {
	switch r.Format {
	case FormatFLAC:
		return "audio/flac"
	default:
		return "audio/wav"
	}
}

type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
}

func New(format string) (Encoder, error) {
	switch format {
	case FormatWAV, "":
		return NewWav(), nil
	case FormatFLAC:
		return NewFlac()
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// Encode runs samples through a fresh encoder of the given format in
// BlockSize pieces.
func Encode(format string, samples []int16) (Recording, error) {
	if format == "" {
		format = FormatWAV
	}
	enc, err := New(format)
	if err != nil {
		return Recording{}, err
	}
	for i := 0; i < len(samples); i += BlockSize {
		end := min(i+BlockSize, len(samples))
		if err := enc.EncodeBlock(samples[i:end]); err != nil {
			return Recording{}, fmt.Errorf("encoding %s: %w", format, err)
		}
	}
	if err := enc.Close(); err != nil {
		return Recording{}, fmt.Errorf("finalizing %s: %w", format, err)
	}
	return Recording{
		Data:       enc.Bytes(),
		Format:     format,
		SampleRate: SampleRate,
		Channels:   Channels,
		Frames:     int(enc.TotalFrames()),
	}, nil
}
