//go:build !linux

package beep

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"talkclip/audio"
)

var (
	malgoOnce sync.Once
	malgoCtx  *malgo.AllocatedContext
	malgoErr  error
)

// playback initializes a malgo device for the cue and tears it down once
// every frame has been handed to the backend.
func playback(c Cue) error {
	malgoOnce.Do(func() {
		malgoCtx, malgoErr = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	})
	if malgoErr != nil {
		return fmt.Errorf("malgo: %w", malgoErr)
	}

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = uint32(c.Channels)
	config.SampleRate = uint32(c.SampleRate)

	data := audio.Bytes(c.Samples)
	var pos atomic.Uint32
	done := make(chan struct{})
	var doneOnce sync.Once

	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) {
			p := pos.Load()
			n := uint32(copy(out, data[p:]))
			for i := n; i < uint32(len(out)); i++ {
				out[i] = 0
			}
			pos.Store(p + n)
			if p+n >= uint32(len(data)) {
				doneOnce.Do(func() { close(done) })
			}
		},
	}

	device, err := malgo.InitDevice(malgoCtx.Context, config, callbacks)
	if err != nil {
		return fmt.Errorf("malgo playback: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("malgo playback start: %w", err)
	}

	go func() {
		<-done
		device.Stop()
		device.Uninit()
	}()
	return nil
}
