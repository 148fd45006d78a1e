package audio

import (
	"errors"
	"os"
	"sync"
	"time"

	"talkclip/encoder"
)

const (
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
)

// FakeContext hands out FakeCaptures that replay a fixed PCM clip. The *Err
// fields inject failures into the next capture's lifecycle calls.
type FakeContext struct {
	OpenErr  error
	StartErr error
	StopErr  error
	CloseErr error

	pcm      []byte
	realtime bool

	mu       sync.Mutex
	last     *FakeCapture
	captures int
}

// NewFakeContext replays pcm (little-endian S16 mono) on every Start. With
// realtime set the clip is paced at the capture sample rate.
func NewFakeContext(pcm []byte, realtime bool) *FakeContext {
	return &FakeContext{pcm: pcm, realtime: realtime}
}

// NewFakeContextFromWAV loads a 16 kHz mono 16-bit WAV file as the clip.
func NewFakeContextFromWAV(wavPath string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	samples, rate, chans, err := encoder.DecodeWAV(data)
	if err != nil {
		return nil, err
	}
	if rate != encoder.SampleRate || chans != encoder.Channels {
		return nil, errors.New("fake capture needs 16kHz mono wav")
	}
	return NewFakeContext(Bytes(samples), realtime), nil
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	f.captures++
	f.last = &FakeCapture{
		pcm:       f.pcm,
		realtime:  f.realtime,
		startErr:  f.StartErr,
		stopErr:   f.StopErr,
		closeErr:  f.CloseErr,
		audioDone: make(chan struct{}),
	}
	return f.last, nil
}

// Last returns the most recently created capture, or nil.
func (f *FakeContext) Last() *FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// Captures reports how many captures have been opened.
func (f *FakeContext) Captures() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.captures
}

type FakeCapture struct {
	pcm      []byte
	realtime bool
	startErr error
	stopErr  error
	closeErr error

	mu        sync.Mutex
	cb        DataCallback
	started   bool
	closed    bool
	stopCh    chan struct{}
	feedDone  chan struct{}
	audioDone chan struct{}
}

// AudioDone is closed once the whole clip has been delivered.
func (f *FakeCapture) AudioDone() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audioDone
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

func (f *FakeCapture) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Emit delivers data to the registered callback as the backend would.
// It reports whether a callback received it.
func (f *FakeCapture) Emit(data []byte) bool {
	f.mu.Lock()
	cb := f.cb
	running := f.started
	f.mu.Unlock()
	if cb == nil || !running {
		return false
	}
	cb(data, uint32(len(data)/fakeBytesPerFrame))
	return true
}

func (f *FakeCapture) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return errors.New("fake capture already started")
	}
	f.started = true
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	stop, feedDone, audioDone := f.stopCh, f.feedDone, f.audioDone
	f.mu.Unlock()

	interval := time.Duration(fakeFrameSize) * time.Second / time.Duration(encoder.SampleRate)
	chunkBytes := fakeFrameSize * fakeBytesPerFrame

	go func() {
		defer close(feedDone)
		for pos := 0; pos < len(f.pcm); {
			end := min(pos+chunkBytes, len(f.pcm))
			chunk := make([]byte, end-pos)
			copy(chunk, f.pcm[pos:end])
			f.Emit(chunk)
			pos = end

			if !f.realtime {
				select {
				case <-stop:
					return
				default:
				}
				continue
			}
			select {
			case <-stop:
				return
			case <-time.After(interval):
			}
		}
		close(audioDone)
	}()
	return nil
}

func (f *FakeCapture) Stop() error {
	f.mu.Lock()
	if !f.started {
		f.mu.Unlock()
		return f.stopErr
	}
	f.started = false
	close(f.stopCh)
	feedDone := f.feedDone
	f.mu.Unlock()

	<-feedDone

	f.mu.Lock()
	select {
	case <-f.audioDone:
		f.audioDone = make(chan struct{}) // reset for replay
	default:
	}
	f.mu.Unlock()
	return f.stopErr
}

func (f *FakeCapture) Close() error {
	f.Stop()
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return f.closeErr
}
