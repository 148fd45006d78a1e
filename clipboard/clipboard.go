// Package clipboard writes transcripts to the system clipboard and can
// paste them into the focused window.
package clipboard

import (
	"errors"

	cb "github.com/atotto/clipboard"
)

var ErrUnsupported = errors.New("no clipboard utility available (install xclip, xsel or wl-clipboard)")

func Read() (string, error) {
	if cb.Unsupported {
		return "", ErrUnsupported
	}
	return cb.ReadAll()
}

func Copy(text string) error {
	if cb.Unsupported {
		return ErrUnsupported
	}
	return cb.WriteAll(text)
}

// System is the process clipboard.
type System struct{}

func (System) Copy(text string) error { return Copy(text) }

// Verify round-trips a probe string and restores the previous contents.
func Verify() (string, error) {
	prev, err := Read()
	if err != nil {
		return "", err
	}
	const probe = "talkclip clipboard check"
	if err := Copy(probe); err != nil {
		return "", err
	}
	got, err := Read()
	Copy(prev)
	if err != nil {
		return "", err
	}
	if got != probe {
		return "", errors.New("clipboard read back different text")
	}
	return "clipboard read/write OK", nil
}
