package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"talkclip/session"
	"talkclip/transcriber"
)

// console prints session events as status lines. Lines start with \n so
// they never land on top of the indicator.
type console struct {
	mu     sync.Mutex
	out    io.Writer
	styled bool

	textStyle  lipgloss.Style
	errorStyle lipgloss.Style
	dimStyle   lipgloss.Style
}

func newConsole(out io.Writer) *console {
	styled := false
	if f, ok := out.(*os.File); ok {
		styled = term.IsTerminal(int(f.Fd()))
	}
	return &console{
		out:        out,
		styled:     styled,
		textStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		errorStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		dimStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
	}
}

func (c *console) println(style lipgloss.Style, line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.styled {
		line = style.Render(line)
	}
	fmt.Fprintln(c.out, line)
}

func (c *console) banner() {
	c.println(c.dimStyle, "talkclip is running.")
	c.println(c.dimStyle, "Press 'F9' to toggle recording.")
}

func (c *console) RecordingStart() {}

func (c *console) RecordingStop(d time.Duration) {
	c.println(c.dimStyle, fmt.Sprintf("Recording stopped (%.1fs).", d.Seconds()))
}

func (c *console) Saved(path string) {
	c.println(c.dimStyle, "Recording saved to "+path)
}

func (c *console) Transcription(text string) {
	c.println(c.textStyle, "Transcription: "+text)
}

func (c *console) Failure(err error) {
	c.println(c.errorStyle, statusLine(err))
}

// statusLine turns a pipeline error into the line shown to the user.
func statusLine(err error) string {
	switch {
	case errors.Is(err, session.ErrEmptyCapture):
		return "No audio was recorded."
	case errors.Is(err, session.ErrDeviceOpen),
		errors.Is(err, session.ErrDeviceClose),
		errors.Is(err, session.ErrEncodeOrWrite),
		errors.Is(err, session.ErrClipboard),
		errors.Is(err, session.ErrPlayback):
		return capitalize(err.Error())
	case errors.Is(err, transcriber.ErrTransport):
		return "Error during transcription: " + strings.TrimPrefix(err.Error(), transcriber.ErrTransport.Error()+": ")
	default:
		return "Error: " + err.Error()
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
