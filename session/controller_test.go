package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"talkclip/audio"
	"talkclip/encoder"
	"talkclip/transcriber"
)

type fakeClipboard struct {
	mu     sync.Mutex
	value  string
	writes []string
	err    error
}

func (f *fakeClipboard) Copy(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.writes = append(f.writes, text)
	f.value = text
	return nil
}

func (f *fakeClipboard) Writes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.writes)
}

type fakeCues struct {
	mu    sync.Mutex
	plays int
	err   error
}

func (f *fakeCues) PlaySuccess() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays++
	return f.err
}

func (f *fakeCues) Plays() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.plays
}

type fakePaster struct {
	mu     sync.Mutex
	pastes int
}

func (f *fakePaster) Paste() error {
	f.mu.Lock()
	f.pastes++
	f.mu.Unlock()
	return nil
}

// fakeIndicator records whether capture was still live when it was stopped.
type fakeIndicator struct {
	ctx *audio.FakeContext

	mu                 sync.Mutex
	starts, stops      int
	captureLiveAtStops []bool
}

func (f *fakeIndicator) Start() {
	f.mu.Lock()
	f.starts++
	f.mu.Unlock()
}

func (f *fakeIndicator) Stop() {
	live := false
	if capture := f.ctx.Last(); capture != nil {
		live = capture.Started()
	}
	f.mu.Lock()
	f.stops++
	f.captureLiveAtStops = append(f.captureLiveAtStops, live)
	f.mu.Unlock()
}

type recordedEvents struct {
	mu             sync.Mutex
	starts, stops  int
	saved          []string
	transcriptions []string
	failures       []error
}

func (r *recordedEvents) RecordingStart() {
	r.mu.Lock()
	r.starts++
	r.mu.Unlock()
}

func (r *recordedEvents) RecordingStop(time.Duration) {
	r.mu.Lock()
	r.stops++
	r.mu.Unlock()
}

func (r *recordedEvents) Saved(path string) {
	r.mu.Lock()
	r.saved = append(r.saved, path)
	r.mu.Unlock()
}

func (r *recordedEvents) Transcription(text string) {
	r.mu.Lock()
	r.transcriptions = append(r.transcriptions, text)
	r.mu.Unlock()
}

func (r *recordedEvents) Failure(err error) {
	r.mu.Lock()
	r.failures = append(r.failures, err)
	r.mu.Unlock()
}

func (r *recordedEvents) failed(target error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, err := range r.failures {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type harness struct {
	ctrl      *Controller
	audio     *audio.FakeContext
	tr        *transcriber.FakeTranscriber
	clip      *fakeClipboard
	cues      *fakeCues
	indicator *fakeIndicator
	events    *recordedEvents
	out       string
}

func newHarness(t *testing.T, tr *transcriber.FakeTranscriber, mutate ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		audio:  audio.NewFakeContext(nil, false),
		tr:     tr,
		clip:   &fakeClipboard{},
		cues:   &fakeCues{},
		events: &recordedEvents{},
		out:    filepath.Join(t.TempDir(), "recorded_audio.wav"),
	}
	h.indicator = &fakeIndicator{ctx: h.audio}
	opts := Options{
		Audio:       h.audio,
		Transcriber: tr,
		Clipboard:   h.clip,
		Cues:        h.cues,
		Indicator:   h.indicator,
		Events:      h.events,
		OutputPath:  h.out,
		Timeout:     5 * time.Second,
	}
	for _, m := range mutate {
		m(&opts)
	}
	h.ctrl = New(opts)
	t.Cleanup(h.ctrl.Close)
	return h
}

func (h *harness) emit(t *testing.T, samples []int16) {
	t.Helper()
	capture := h.audio.Last()
	if capture == nil {
		t.Fatal("no capture opened")
	}
	if !capture.Emit(audio.Bytes(samples)) {
		t.Fatal("capture did not accept block")
	}
}

func (h *harness) record(t *testing.T, blocks ...[]int16) {
	t.Helper()
	if got := h.ctrl.Toggle(); got != Recording {
		t.Fatalf("Toggle from idle = %v, want recording", got)
	}
	for _, b := range blocks {
		h.emit(t, b)
	}
	if got := h.ctrl.Toggle(); got != Stopping {
		t.Fatalf("Toggle from recording = %v, want stopping", got)
	}
	h.ctrl.Wait()
}

func TestToggleAlternates(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("hi", nil))

	for i := range 3 {
		h.record(t, make([]int16, 160))
		if got := h.ctrl.State(); got != Idle {
			t.Fatalf("round %d: state after pipeline = %v, want idle", i, got)
		}
	}
	if got := h.audio.Captures(); got != 3 {
		t.Errorf("captures opened = %d, want 3", got)
	}
	if got := h.ctrl.Sessions(); got != 3 {
		t.Errorf("sessions = %d, want 3", got)
	}
	if h.indicator.starts != 3 || h.indicator.stops != 3 {
		t.Errorf("indicator starts/stops = %d/%d, want 3/3", h.indicator.starts, h.indicator.stops)
	}
}

func TestToggleIgnoredWhileStopping(t *testing.T) {
	tr := transcriber.NewFake("hi", nil)
	release := tr.Hold()
	h := newHarness(t, tr)

	h.ctrl.Toggle()
	h.emit(t, make([]int16, 160))
	h.ctrl.Toggle()

	for range 3 {
		if got := h.ctrl.Toggle(); got != Stopping {
			t.Fatalf("Toggle while stopping = %v, want stopping", got)
		}
	}
	if got := h.audio.Captures(); got != 1 {
		t.Errorf("captures opened = %d, want 1", got)
	}

	release()
	h.ctrl.Wait()
	if got := h.ctrl.State(); got != Idle {
		t.Errorf("state = %v, want idle", got)
	}
	if got := h.ctrl.Toggle(); got != Recording {
		t.Errorf("Toggle after pipeline = %v, want recording", got)
	}
}

func TestConcurrentToggles(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("hi", nil))

	var mu sync.Mutex
	var results []State
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := h.ctrl.Toggle()
			mu.Lock()
			results = append(results, s)
			mu.Unlock()
		}()
	}
	wg.Wait()
	if h.ctrl.State() == Recording {
		h.ctrl.Toggle()
	}
	h.ctrl.Wait()

	started := 0
	for _, s := range results {
		if s == Recording {
			started++
		}
	}
	if started == 0 {
		t.Fatal("no toggle started a recording")
	}
	if got := h.audio.Captures(); got != started {
		t.Errorf("captures opened = %d, recordings started = %d", got, started)
	}
	if h.audio.Last().Started() {
		t.Error("capture left running")
	}
	if got := h.ctrl.State(); got != Idle {
		t.Errorf("state = %v, want idle", got)
	}
}

func TestStopOrdering(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("hi", nil))
	h.record(t, make([]int16, 160))

	if len(h.indicator.captureLiveAtStops) != 1 || !h.indicator.captureLiveAtStops[0] {
		t.Error("indicator must stop before the capture stream")
	}
	capture := h.audio.Last()
	if capture.Started() || !capture.Closed() {
		t.Error("capture should be stopped and closed after stop")
	}
	if capture.Emit(audio.Bytes([]int16{1, 2, 3})) {
		t.Error("capture accepted a block after stop")
	}
}

func TestDrainOrderThroughCapture(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("hi", nil))

	var want []int16
	var blocks [][]int16
	pos := 0
	for _, n := range []int{1, 100, 4096, 7, 2048} {
		b := seqBlock(pos, n).Samples
		blocks = append(blocks, b)
		want = append(want, b...)
		pos += n
	}
	h.record(t, blocks...)

	rec, ok := h.tr.Last()
	if !ok {
		t.Fatal("transcriber not called")
	}
	got, _, _, err := encoder.DecodeWAV(rec.Data)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, want) {
		t.Errorf("uploaded samples differ from pushed blocks (%d vs %d)", len(got), len(want))
	}
}

func TestZeroBlocks(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("hi", nil))
	h.record(t)

	if !h.events.failed(ErrEmptyCapture) {
		t.Error("expected ErrEmptyCapture")
	}
	if _, err := os.Stat(h.out); !os.IsNotExist(err) {
		t.Errorf("output file should not exist, stat err = %v", err)
	}
	if got := h.tr.Calls(); got != 0 {
		t.Errorf("transcriber calls = %d, want 0", got)
	}
	if got := h.ctrl.State(); got != Idle {
		t.Errorf("state = %v, want idle", got)
	}
}

func TestSuccessPublishesOnce(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("hello world", nil))
	h.record(t, make([]int16, 1600))

	if got := h.clip.Writes(); !slices.Equal(got, []string{"hello world"}) {
		t.Errorf("clipboard writes = %q", got)
	}
	if got := h.cues.Plays(); got != 1 {
		t.Errorf("success cues = %d, want 1", got)
	}
	if len(h.events.transcriptions) != 1 || h.events.transcriptions[0] != "hello world" {
		t.Errorf("transcription events = %q", h.events.transcriptions)
	}
}

func TestEmptyTextPublishesNothing(t *testing.T) {
	for _, text := range []string{"", "   \n"} {
		h := newHarness(t, transcriber.NewFake(text, nil))
		h.record(t, make([]int16, 1600))

		if got := h.clip.Writes(); len(got) != 0 {
			t.Errorf("%q: clipboard writes = %q, want none", text, got)
		}
		if got := h.cues.Plays(); got != 0 {
			t.Errorf("%q: success cues = %d, want 0", text, got)
		}
		if !h.events.failed(transcriber.ErrEmptyResult) {
			t.Errorf("%q: expected ErrEmptyResult", text)
		}
	}
}

func TestThreeSecondsOfSilence(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("hello world", nil))
	second := make([]int16, encoder.SampleRate)
	h.record(t, second, second, second)

	data, err := os.ReadFile(h.out)
	if err != nil {
		t.Fatalf("output file: %v", err)
	}
	samples, rate, chans, err := encoder.DecodeWAV(data)
	if err != nil {
		t.Fatal(err)
	}
	if rate != encoder.SampleRate || chans != 1 {
		t.Errorf("format = %d Hz x %d, want 16000 Hz mono", rate, chans)
	}
	if len(samples) != 3*encoder.SampleRate {
		t.Errorf("samples = %d, want %d", len(samples), 3*encoder.SampleRate)
	}
	if got := h.clip.Writes(); !slices.Equal(got, []string{"hello world"}) {
		t.Errorf("clipboard writes = %q", got)
	}
	if got := h.cues.Plays(); got != 1 {
		t.Errorf("success cues = %d, want 1", got)
	}
	if len(h.events.saved) != 1 || h.events.saved[0] != h.out {
		t.Errorf("saved events = %q", h.events.saved)
	}
}

func TestTransportErrorLeavesClipboard(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("", fmt.Errorf("%w: connection reset", transcriber.ErrTransport)))
	h.clip.value = "previous"
	h.record(t, make([]int16, 1600))

	if !h.events.failed(transcriber.ErrTransport) {
		t.Error("expected ErrTransport to be reported")
	}
	if h.clip.value != "previous" {
		t.Errorf("clipboard = %q, want previous value", h.clip.value)
	}
	if got := h.cues.Plays(); got != 0 {
		t.Errorf("success cues = %d, want 0", got)
	}
	if got := h.ctrl.State(); got != Idle {
		t.Errorf("state = %v, want idle", got)
	}
}

func TestDeviceOpenFailure(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("hi", nil))
	h.audio.OpenErr = errors.New("no such device")

	if got := h.ctrl.Toggle(); got != Idle {
		t.Fatalf("Toggle = %v, want idle", got)
	}
	if !h.events.failed(ErrDeviceOpen) {
		t.Error("expected ErrDeviceOpen")
	}
	if h.indicator.starts != 0 {
		t.Error("indicator started despite open failure")
	}

	h.audio.OpenErr = nil
	if got := h.ctrl.Toggle(); got != Recording {
		t.Errorf("Toggle after recovery = %v, want recording", got)
	}
}

func TestDeviceStartFailureReleasesStream(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("hi", nil))
	h.audio.StartErr = errors.New("device busy")

	if got := h.ctrl.Toggle(); got != Idle {
		t.Fatalf("Toggle = %v, want idle", got)
	}
	if !h.events.failed(ErrDeviceOpen) {
		t.Error("expected ErrDeviceOpen")
	}
	if !h.audio.Last().Closed() {
		t.Error("partially opened stream was not closed")
	}
}

func TestDeviceCloseErrorIsNonFatal(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("hello", nil))
	h.audio.CloseErr = errors.New("close failed")
	h.record(t, make([]int16, 1600))

	if !h.events.failed(ErrDeviceClose) {
		t.Error("expected ErrDeviceClose")
	}
	if got := h.clip.Writes(); !slices.Equal(got, []string{"hello"}) {
		t.Errorf("clipboard writes = %q", got)
	}
}

func TestWriteFailureStillTranscribes(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("hello", nil), func(o *Options) {
		o.OutputPath = filepath.Join(t.TempDir(), "missing", "out.wav")
	})
	h.record(t, make([]int16, 1600))

	if !h.events.failed(ErrEncodeOrWrite) {
		t.Error("expected ErrEncodeOrWrite")
	}
	if got := h.tr.Calls(); got != 1 {
		t.Errorf("transcriber calls = %d, want 1", got)
	}
	if got := h.clip.Writes(); !slices.Equal(got, []string{"hello"}) {
		t.Errorf("clipboard writes = %q", got)
	}
}

func TestClipboardFailureStillPlaysCue(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("hello", nil))
	h.clip.err = errors.New("no display")
	h.record(t, make([]int16, 1600))

	if !h.events.failed(ErrClipboard) {
		t.Error("expected ErrClipboard")
	}
	if got := h.cues.Plays(); got != 1 {
		t.Errorf("success cues = %d, want 1", got)
	}
}

func TestPlaybackFailureIsReported(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("hello", nil))
	h.cues.err = errors.New("no output device")
	h.record(t, make([]int16, 1600))

	if !h.events.failed(ErrPlayback) {
		t.Error("expected ErrPlayback")
	}
	if got := h.clip.Writes(); !slices.Equal(got, []string{"hello"}) {
		t.Errorf("clipboard writes = %q", got)
	}
}

func TestAutoPasteAfterCopy(t *testing.T) {
	paster := &fakePaster{}
	h := newHarness(t, transcriber.NewFake("hello", nil), func(o *Options) { o.Paster = paster })
	h.record(t, make([]int16, 1600))
	if paster.pastes != 1 {
		t.Errorf("pastes = %d, want 1", paster.pastes)
	}

	h.clip.err = errors.New("denied")
	h.record(t, make([]int16, 1600))
	if paster.pastes != 1 {
		t.Errorf("pasted without a successful copy")
	}
}

func TestFlacUpload(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("hello", nil), func(o *Options) {
		o.UploadFormat = encoder.FormatFLAC
	})
	h.record(t, make([]int16, 1600))

	rec, ok := h.tr.Last()
	if !ok {
		t.Fatal("transcriber not called")
	}
	if rec.Format != encoder.FormatFLAC || string(rec.Data[:4]) != "fLaC" {
		t.Errorf("upload format = %q", rec.Format)
	}
	data, err := os.ReadFile(h.out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data[:4]) != "RIFF" {
		t.Error("output file should stay WAV")
	}
}

func TestTranscriptionTimeout(t *testing.T) {
	tr := transcriber.NewFake("late", nil)
	tr.Hold()
	h := newHarness(t, tr, func(o *Options) { o.Timeout = 50 * time.Millisecond })
	h.record(t, make([]int16, 1600))

	if !h.events.failed(transcriber.ErrTransport) {
		t.Error("timeout should surface as ErrTransport")
	}
	if got := h.ctrl.State(); got != Idle {
		t.Errorf("state = %v, want idle", got)
	}
}

func TestCloseDiscardsRecording(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("hello", nil))
	h.ctrl.Toggle()
	h.emit(t, make([]int16, 1600))

	h.ctrl.Close()
	if got := h.ctrl.State(); got != Idle {
		t.Errorf("state = %v, want idle", got)
	}
	if got := h.tr.Calls(); got != 0 {
		t.Errorf("transcriber calls = %d, want 0", got)
	}
	if !h.audio.Last().Closed() {
		t.Error("capture not closed")
	}
	if got := h.ctrl.Toggle(); got != Idle {
		t.Errorf("Toggle after Close = %v, want idle", got)
	}
}

func TestWarmOnStart(t *testing.T) {
	w := &warmingTranscriber{FakeTranscriber: transcriber.NewFake("hi", nil), warmed: make(chan struct{}, 1)}
	h := newHarness(t, nil, func(o *Options) { o.Transcriber = w })
	h.ctrl.Toggle()
	select {
	case <-w.warmed:
	case <-time.After(2 * time.Second):
		t.Fatal("Warm not called on start")
	}
}

type warmingTranscriber struct {
	*transcriber.FakeTranscriber
	warmed chan struct{}
}

func (w *warmingTranscriber) Warm() { w.warmed <- struct{}{} }

var _ transcriber.Warmer = (*warmingTranscriber)(nil)

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{Idle: "idle", Recording: "recording", Stopping: "stopping", State(9): "unknown"} {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", s, got, want)
		}
	}
}
