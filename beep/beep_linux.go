//go:build linux

package beep

import (
	"fmt"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

// playback opens a pulse stream synchronously and drains it in the
// background.
func playback(c Cue) error {
	client, err := pulse.NewClient(pulse.ClientApplicationName("talkclip"))
	if err != nil {
		return fmt.Errorf("pulse: %w", err)
	}

	samples := stereo(c)
	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})

	stream, err := client.NewPlayback(reader,
		pulse.PlaybackStereo,
		pulse.PlaybackSampleRate(c.SampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm), uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		client.Close()
		return fmt.Errorf("pulse playback: %w", err)
	}

	go func() {
		defer client.Close()
		stream.Start()
		stream.Drain()
		stream.Stop()
		stream.Close()
	}()
	return nil
}

// stereo returns the cue as interleaved stereo, duplicating mono samples.
func stereo(c Cue) []int16 {
	if c.Channels == 2 {
		return c.Samples
	}
	out := make([]int16, 2*len(c.Samples))
	for i, s := range c.Samples {
		out[2*i] = s
		out[2*i+1] = s
	}
	return out
}
