package indicator

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer guards a bytes.Buffer written by the loop goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type countingCue struct {
	n   int
	err error
}

func (c *countingCue) PlayStart() error {
	c.n++
	return c.err
}

func TestFrame(t *testing.T) {
	for i, want := range []string{
		"🎤 Capturing audio   ",
		"🎤 Capturing audio.  ",
		"🎤 Capturing audio.. ",
		"🎤 Capturing audio...",
		"🎤 Capturing audio   ",
	} {
		if got := Frame(i); got != want {
			t.Errorf("Frame(%d) = %q, want %q", i, got, want)
		}
	}
}

func TestLoopRendersAndClears(t *testing.T) {
	out := &syncBuffer{}
	cue := &countingCue{}
	l := New(out, cue)
	l.SetInterval(5 * time.Millisecond)

	l.Start()
	time.Sleep(40 * time.Millisecond)
	l.Stop()

	got := out.String()
	if cue.n != 1 {
		t.Errorf("start cue played %d times, want 1", cue.n)
	}
	if !strings.Contains(got, Frame(0)+"\r") || !strings.Contains(got, Frame(1)+"\r") {
		t.Errorf("missing animation frames in %q", got)
	}
	cleared := "\r" + strings.Repeat(" ", clearWidth) + "\r"
	if !strings.HasSuffix(got, cleared) {
		t.Errorf("output should end with a cleared line, got %q", got)
	}

	// nothing is written once Stop has returned
	n := len(out.String())
	time.Sleep(20 * time.Millisecond)
	if len(out.String()) != n {
		t.Error("loop wrote after Stop")
	}
}

func TestStopIdempotent(t *testing.T) {
	l := New(&syncBuffer{}, nil)
	l.Stop()
	l.Start()
	l.Stop()
	l.Stop()
}

func TestRestart(t *testing.T) {
	out := &syncBuffer{}
	cue := &countingCue{}
	l := New(out, cue)
	l.SetInterval(time.Millisecond)
	for range 3 {
		l.Start()
		l.Start() // ignored while running
		l.Stop()
	}
	if cue.n != 3 {
		t.Errorf("start cue played %d times, want 3", cue.n)
	}
}

func TestCueFailureIsNotFatal(t *testing.T) {
	out := &syncBuffer{}
	l := New(out, &countingCue{err: errors.New("no device")})
	l.SetInterval(time.Millisecond)
	l.Start()
	l.Stop()
	if !strings.Contains(out.String(), "Could not play start sound: no device") {
		t.Errorf("cue failure not reported: %q", out.String())
	}
}
