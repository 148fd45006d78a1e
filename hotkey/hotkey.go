// Package hotkey delivers presses of the global recording key (F9).
package hotkey

import (
	"context"
)

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
}

// Listen calls toggle on its own goroutine for every keydown until ctx is
// done, so a slow toggle never delays the next key event.
func Listen(ctx context.Context, hk Hotkey, toggle func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hk.Keydown():
			go toggle()
		}
	}
}
