package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var ErrPickerCancelled = errors.New("device selection cancelled")

var (
	pickerTitle    = lipgloss.NewStyle().Bold(true)
	pickerSelected = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
)

type pickerAction int

const (
	pickerMove pickerAction = iota
	pickerConfirm
	pickerCancel
)

// pickerStep applies one raw-mode key read to the cursor.
func pickerStep(cursor, n int, key []byte) (int, pickerAction) {
	switch {
	case len(key) == 1 && (key[0] == '\r' || key[0] == '\n'):
		return cursor, pickerConfirm
	case len(key) == 1 && (key[0] == 3 || key[0] == 'q'): // Ctrl+C
		return cursor, pickerCancel
	case len(key) == 1 && key[0] == 'j',
		len(key) == 3 && key[0] == 0x1b && key[1] == '[' && key[2] == 'B':
		if cursor < n-1 {
			cursor++
		}
	case len(key) == 1 && key[0] == 'k',
		len(key) == 3 && key[0] == 0x1b && key[1] == '[' && key[2] == 'A':
		if cursor > 0 {
			cursor--
		}
	}
	return cursor, pickerMove
}

// renderPicker draws the list with raw-mode line endings.
func renderPicker(devices []DeviceInfo, cursor int) string {
	var b strings.Builder
	b.WriteString("\r\x1b[J")
	b.WriteString(pickerTitle.Render("Select input device (↑/↓, Enter to confirm):"))
	b.WriteString("\r\n\r\n")
	for i, d := range devices {
		if i == cursor {
			b.WriteString("  " + pickerSelected.Render("▶ "+d.Name) + "\r\n")
		} else {
			b.WriteString("    " + d.Name + "\r\n")
		}
	}
	return b.String()
}

func pick(devices []DeviceInfo, in io.Reader, out io.Writer) (*DeviceInfo, error) {
	cursor := 0
	fmt.Fprint(out, renderPicker(devices, cursor))

	buf := make([]byte, 3)
	for {
		n, err := in.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		var action pickerAction
		cursor, action = pickerStep(cursor, len(devices), buf[:n])
		switch action {
		case pickerConfirm:
			fmt.Fprint(out, "\r\n")
			return &devices[cursor], nil
		case pickerCancel:
			fmt.Fprint(out, "\r\n")
			return nil, ErrPickerCancelled
		}
		fmt.Fprintf(out, "\x1b[%dA", len(devices)+2)
		fmt.Fprint(out, renderPicker(devices, cursor))
	}
}

// SelectDevice presents an interactive device picker and returns the selected device.
// If only one device is available, it returns that device without prompting.
func SelectDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}

	if len(devices) == 0 {
		return nil, fmt.Errorf("no capture devices found")
	}

	if len(devices) == 1 {
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("device picker needs a terminal (use -device)")
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	return pick(devices, os.Stdin, os.Stdout)
}
