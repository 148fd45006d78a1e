// Package beep plays the start and success cues.
package beep

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync/atomic"

	"talkclip/encoder"
	"talkclip/log"
)

var disabled atomic.Bool

// Disable turns every Player into a no-op, e.g. for headless test runs.
func Disable() { disabled.Store(true) }

const (
	tickRate = 44100

	// Start tick: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// Success tick: medium pitch, slightly longer
	successFreq   = 900
	successVolume = 0.5
	successDecay  = 40

	tickDuration = 0.2
)

// Cue is a decoded clip ready for playback.
type Cue struct {
	Samples    []int16 // interleaved
	SampleRate int
	Channels   int
}

func (c Cue) frames() int {
	if c.Channels < 1 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

type Player struct {
	start   Cue
	success Cue
	play    func(Cue) error
}

// New loads the start and success cues from WAV files. A missing or
// unreadable file falls back to a synthesized tick.
func New(startPath, successPath string) *Player {
	return &Player{
		start:   loadOrTick(startPath, startFreq, startVolume, startDecay),
		success: loadOrTick(successPath, successFreq, successVolume, successDecay),
		play:    playback,
	}
}

func loadOrTick(path string, freq, volume, decay float64) Cue {
	if path != "" {
		cue, err := Load(path)
		if err == nil {
			return cue
		}
		if !errors.Is(err, os.ErrNotExist) {
			log.Warnf("cue %s: %v", path, err)
		}
	}
	return Cue{Samples: generateTick(tickRate, freq, tickDuration, volume, decay), SampleRate: tickRate, Channels: 1}
}

// Load decodes a 16-bit PCM WAV file.
func Load(path string) (Cue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Cue{}, err
	}
	samples, rate, chans, err := encoder.DecodeWAV(data)
	if err != nil {
		return Cue{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	if chans < 1 || chans > 2 {
		return Cue{}, fmt.Errorf("%s: %d channels unsupported", path, chans)
	}
	return Cue{Samples: samples, SampleRate: rate, Channels: chans}, nil
}

// PlayStart starts the start cue without waiting for it to finish.
func (p *Player) PlayStart() error {
	return p.playCue(p.start)
}

// PlaySuccess starts the success cue without waiting for it to finish.
func (p *Player) PlaySuccess() error {
	return p.playCue(p.success)
}

func (p *Player) playCue(c Cue) error {
	if disabled.Load() || c.frames() == 0 {
		return nil
	}
	return p.play(c)
}

func generateTick(sampleRate int, freq float64, duration float64, volume float64, decay float64) []int16 {
	n := int(float64(sampleRate) * duration)
	samples := make([]int16, n)
	for i := range n {
		t := float64(i) / float64(sampleRate)
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}
