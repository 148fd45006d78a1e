package session

import (
	"errors"
	"fmt"
	"sync"

	"talkclip/audio"
	"talkclip/encoder"
)

// capture owns one backend stream per recording.
type capture struct {
	ctx    audio.Context
	device *audio.DeviceInfo

	mu      sync.Mutex
	running bool
	stream  audio.CaptureDevice
}

func newCapture(ctx audio.Context, device *audio.DeviceInfo) *capture {
	return &capture{ctx: ctx, device: device}
}

func (c *capture) deviceName() string {
	if c.device != nil {
		return c.device.Name
	}
	return "system default"
}

// start opens a 16 kHz mono stream and forwards each callback to onBlock
// until stop. onBlock runs with c.mu held.
func (c *capture) start(onBlock func(Block)) error {
	stream, err := c.ctx.NewCapture(c.device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceOpen, err)
	}

	stream.SetCallback(func(data []byte, _ uint32) {
		if len(data) < audio.BytesPerSample {
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.running {
			return
		}
		onBlock(Block{Channels: encoder.Channels, Samples: audio.Int16s(data)})
	})

	c.mu.Lock()
	c.running = true
	c.stream = stream
	c.mu.Unlock()

	if err := stream.Start(); err != nil {
		c.mu.Lock()
		c.running = false
		c.stream = nil
		c.mu.Unlock()
		stream.ClearCallback()
		stream.Close()
		return fmt.Errorf("%w: %w", ErrDeviceOpen, err)
	}
	return nil
}

// stop returns once no callback can reach onBlock any more. Errors from
// the backend while shutting down are wrapped in ErrDeviceClose.
func (c *capture) stop() error {
	c.mu.Lock()
	stream := c.stream
	c.running = false
	c.stream = nil
	c.mu.Unlock()

	if stream == nil {
		return nil
	}
	stream.ClearCallback()

	var errs []error
	if err := stream.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := stream.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrDeviceClose, errors.Join(errs...))
	}
	return nil
}
