package session

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"talkclip/audio"
	"talkclip/encoder"
	"talkclip/log"
	"talkclip/transcriber"
)

const DefaultOutputPath = "recorded_audio.wav"

type Options struct {
	Audio       audio.Context
	Device      *audio.DeviceInfo // nil for the system default
	Transcriber transcriber.Transcriber
	Clipboard   Clipboard
	Paster      Paster // nil disables autopaste
	Cues        CuePlayer
	Indicator   Indicator
	Events      EventSink

	OutputPath   string        // WAV written after every non-empty session
	UploadFormat string        // encoder.FormatWAV or encoder.FormatFLAC
	Timeout      time.Duration // bound on one transcription call
}

// Controller is the session state machine. Toggle is safe to call from any
// goroutine; the post-stop pipeline runs on its own goroutine.
type Controller struct {
	opts    Options
	capture *capture

	// toggleMu serializes transitions so a start cannot race a stop.
	toggleMu sync.Mutex
	closed   bool

	mu       sync.Mutex
	state    State
	buf      sink
	id       string
	started  time.Time
	sessions int

	pipelines sync.WaitGroup
}

func New(opts Options) *Controller {
	if opts.Events == nil {
		opts.Events = nopEvents{}
	}
	if opts.Indicator == nil {
		opts.Indicator = nopIndicator{}
	}
	if opts.OutputPath == "" {
		opts.OutputPath = DefaultOutputPath
	}
	if opts.UploadFormat == "" {
		opts.UploadFormat = encoder.FormatWAV
	}
	if opts.Timeout <= 0 {
		opts.Timeout = transcriber.DefaultTimeout
	}
	return &Controller{
		opts:    opts,
		capture: newCapture(opts.Audio, opts.Device),
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Sessions reports how many pipelines have finished.
func (c *Controller) Sessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions
}

// Toggle starts a recording when idle and stops it when recording. While
// the previous session is still being processed the toggle is ignored.
// It returns the resulting state.
func (c *Controller) Toggle() State {
	c.toggleMu.Lock()
	defer c.toggleMu.Unlock()

	state := c.State()
	if c.closed {
		return state
	}
	switch state {
	case Idle:
		return c.start()
	case Recording:
		return c.stop()
	default:
		log.Infof("toggle_ignored state=%s", state)
		return state
	}
}

// Wait blocks until no pipeline is in flight.
func (c *Controller) Wait() {
	c.pipelines.Wait()
}

// Close abandons an active recording without transcribing it and waits
// for any running pipeline. Later toggles are ignored.
func (c *Controller) Close() {
	c.toggleMu.Lock()
	c.closed = true
	if c.State() == Recording {
		c.mu.Lock()
		c.state = Stopping
		id := c.id
		c.mu.Unlock()

		c.opts.Indicator.Stop()
		if err := c.capture.stop(); err != nil {
			log.Warnf("session %s: %v", id, err)
		}

		c.mu.Lock()
		c.buf.reset()
		c.state = Idle
		c.mu.Unlock()
		log.Infof("session %s: recording discarded", id)
	}
	c.toggleMu.Unlock()

	c.pipelines.Wait()
}

func (c *Controller) push(b Block) {
	c.mu.Lock()
	c.buf.push(b)
	c.mu.Unlock()
}

func (c *Controller) start() State {
	id := uuid.NewString()

	c.mu.Lock()
	c.buf.reset()
	c.id = id
	c.mu.Unlock()

	if err := c.capture.start(c.push); err != nil {
		log.Errorf("session %s: %v", id, err)
		c.opts.Events.Failure(err)
		return Idle
	}

	c.mu.Lock()
	c.state = Recording
	c.started = time.Now()
	c.mu.Unlock()

	log.RecordingStart(id, c.capture.deviceName())
	c.opts.Events.RecordingStart()
	c.opts.Indicator.Start()
	if w, ok := c.opts.Transcriber.(transcriber.Warmer); ok {
		go w.Warm()
	}
	return Recording
}

// stop tears down in a fixed order: indicator, capture, then drain.
func (c *Controller) stop() State {
	c.mu.Lock()
	c.state = Stopping
	id, started := c.id, c.started
	c.mu.Unlock()

	c.opts.Indicator.Stop()

	if err := c.capture.stop(); err != nil {
		log.Warnf("session %s: %v", id, err)
		c.opts.Events.Failure(err)
	}

	c.mu.Lock()
	blocks, frames := c.buf.len(), c.buf.frames
	samples := c.buf.drain()
	c.mu.Unlock()

	log.RecordingStop(id, blocks, frames, float64(frames)/encoder.SampleRate)
	c.opts.Events.RecordingStop(time.Since(started))

	c.pipelines.Add(1)
	go func() {
		defer c.pipelines.Done()
		c.process(id, samples)

		c.mu.Lock()
		c.state = Idle
		c.sessions++
		c.mu.Unlock()
	}()
	return Stopping
}

func (c *Controller) fail(id string, err error) {
	log.Errorf("session %s: %v", id, err)
	c.opts.Events.Failure(err)
}

func (c *Controller) process(id string, samples []int16) {
	if len(samples) == 0 {
		c.fail(id, ErrEmptyCapture)
		return
	}

	rec, err := encoder.Encode(encoder.FormatWAV, samples)
	if err != nil {
		c.fail(id, fmt.Errorf("%w: %w", ErrEncodeOrWrite, err))
		return
	}
	// A failed write still leaves the payload in memory, so carry on.
	if err := os.WriteFile(c.opts.OutputPath, rec.Data, 0644); err != nil {
		c.fail(id, fmt.Errorf("%w: %w", ErrEncodeOrWrite, err))
	} else {
		c.opts.Events.Saved(c.opts.OutputPath)
	}

	upload := rec
	if c.opts.UploadFormat == encoder.FormatFLAC {
		flac, err := encoder.Encode(encoder.FormatFLAC, samples)
		if err != nil {
			log.Warnf("session %s: flac encode failed, uploading wav: %v", id, err)
		} else {
			upload = flac
		}
	}

	ctx, cancel := context.WithTimeout(log.WithSession(context.Background(), id), c.opts.Timeout)
	text, err := c.opts.Transcriber.Transcribe(ctx, upload)
	cancel()
	if err != nil {
		c.fail(id, err)
		return
	}
	if strings.TrimSpace(text) == "" {
		c.fail(id, transcriber.ErrEmptyResult)
		return
	}
	c.opts.Events.Transcription(text)

	copied := false
	if c.opts.Clipboard != nil {
		if err := c.opts.Clipboard.Copy(text); err != nil {
			c.fail(id, fmt.Errorf("%w: %w", ErrClipboard, err))
		} else {
			copied = true
		}
	}
	if c.opts.Cues != nil {
		if err := c.opts.Cues.PlaySuccess(); err != nil {
			c.fail(id, fmt.Errorf("%w: %w", ErrPlayback, err))
		}
	}
	if copied && c.opts.Paster != nil {
		if err := c.opts.Paster.Paste(); err != nil {
			c.fail(id, fmt.Errorf("%w: %w", ErrClipboard, err))
		}
	}
}
