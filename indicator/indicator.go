// Package indicator renders the "capturing audio" status line while a
// recording is active.
package indicator

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"talkclip/log"
)

const (
	DefaultInterval = 500 * time.Millisecond
	label           = "🎤 Capturing audio"
	clearWidth      = 30
)

var frames = []string{"", ".", "..", "..."}

var labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))

type StartCue interface {
	PlayStart() error
}

// Loop is restartable: each Start after a Stop begins a fresh animation.
type Loop struct {
	out      io.Writer
	cue      StartCue
	interval time.Duration
	styled   bool

	mu     sync.Mutex
	cancel chan struct{}
	done   chan struct{}
}

// New renders to out. cue may be nil.
func New(out io.Writer, cue StartCue) *Loop {
	styled := false
	if f, ok := out.(*os.File); ok {
		styled = term.IsTerminal(int(f.Fd()))
	}
	return &Loop{out: out, cue: cue, interval: DefaultInterval, styled: styled}
}

// SetInterval changes the frame cadence for subsequent starts.
func (l *Loop) SetInterval(d time.Duration) {
	l.mu.Lock()
	l.interval = d
	l.mu.Unlock()
}

// Frame returns the status text for tick i, padded to a constant width.
func Frame(i int) string {
	dots := frames[i%len(frames)]
	padding := strings.Repeat(" ", len(frames[len(frames)-1])-len(dots))
	return label + dots + padding
}

func (l *Loop) Start() {
	l.mu.Lock()
	if l.cancel != nil {
		l.mu.Unlock()
		return
	}
	l.cancel = make(chan struct{})
	l.done = make(chan struct{})
	cancel, done, interval := l.cancel, l.done, l.interval
	l.mu.Unlock()

	if l.cue != nil {
		if err := l.cue.PlayStart(); err != nil {
			log.Warnf("start cue: %v", err)
			fmt.Fprintf(l.out, "\nCould not play start sound: %v\n", err)
		}
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			l.render(Frame(i))
			select {
			case <-cancel:
				fmt.Fprint(l.out, "\r"+strings.Repeat(" ", clearWidth)+"\r")
				return
			case <-ticker.C:
			}
		}
	}()
}

func (l *Loop) render(text string) {
	if l.styled {
		text = labelStyle.Render(text)
	}
	fmt.Fprint(l.out, text+"\r")
}

// Stop cancels the loop and returns after the line has been cleared.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	close(cancel)
	<-done
}
