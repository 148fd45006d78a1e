// Package session implements the push-to-toggle recording state machine:
// capture into an in-memory sink, then encode, save, transcribe and publish.
package session

import (
	"errors"
	"time"
)

type State int

const (
	Idle State = iota
	Recording
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Stopping:
		return "stopping"
	}
	return "unknown"
}

var (
	ErrDeviceOpen    = errors.New("failed to start recording")
	ErrDeviceClose   = errors.New("error closing stream")
	ErrEmptyCapture  = errors.New("no audio was recorded")
	ErrEncodeOrWrite = errors.New("failed to save recording")
	ErrClipboard     = errors.New("failed to copy to clipboard")
	ErrPlayback      = errors.New("could not play sound")
)

// EventSink receives user-facing progress of each session.
type EventSink interface {
	RecordingStart()
	RecordingStop(duration time.Duration)
	Saved(path string)
	Transcription(text string)
	Failure(err error)
}

// Indicator runs while a session is recording. Stop must block until the
// indicator has finished writing.
type Indicator interface {
	Start()
	Stop()
}

type Clipboard interface {
	Copy(text string) error
}

// Paster sends the platform paste shortcut after a successful copy.
type Paster interface {
	Paste() error
}

type CuePlayer interface {
	PlaySuccess() error
}

type nopEvents struct{}

func (nopEvents) RecordingStart()             {}
func (nopEvents) RecordingStop(time.Duration) {}
func (nopEvents) Saved(string)                {}
func (nopEvents) Transcription(string)        {}
func (nopEvents) Failure(error)               {}

type nopIndicator struct{}

func (nopIndicator) Start() {}
func (nopIndicator) Stop()  {}
