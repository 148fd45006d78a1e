package transcriber

import (
	"context"
	"fmt"
	"sync"

	"talkclip/encoder"
)

// FakeTranscriber returns a canned result and records what it was sent.
type FakeTranscriber struct {
	text string
	err  error

	mu    sync.Mutex
	calls []encoder.Recording
	block chan struct{}
}

func NewFake(text string, err error) *FakeTranscriber {
	return &FakeTranscriber{text: text, err: err}
}

func (f *FakeTranscriber) Name() string { return "fake" }

// Hold makes Transcribe block until the returned func is called or the
// request context ends.
func (f *FakeTranscriber) Hold() (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.block = ch
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (f *FakeTranscriber) Transcribe(ctx context.Context, rec encoder.Recording) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, rec)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %w", ErrTransport, ctx.Err())
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *FakeTranscriber) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// Last returns the most recent recording passed to Transcribe.
func (f *FakeTranscriber) Last() (encoder.Recording, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return encoder.Recording{}, false
	}
	return f.calls[len(f.calls)-1], true
}
