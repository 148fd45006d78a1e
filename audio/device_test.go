package audio

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

// keyReader returns one key sequence per Read, like a raw-mode terminal.
type keyReader struct {
	keys [][]byte
}

func (k *keyReader) Read(p []byte) (int, error) {
	if len(k.keys) == 0 {
		return 0, io.EOF
	}
	n := copy(p, k.keys[0])
	k.keys = k.keys[1:]
	return n, nil
}

var (
	keyUp    = []byte{0x1b, '[', 'A'}
	keyDown  = []byte{0x1b, '[', 'B'}
	keyEnter = []byte{'\r'}
)

func TestPickerStep(t *testing.T) {
	tests := []struct {
		name       string
		cursor     int
		key        []byte
		wantCursor int
		wantAction pickerAction
	}{
		{"down", 0, keyDown, 1, pickerMove},
		{"down clamps", 2, keyDown, 2, pickerMove},
		{"up", 2, keyUp, 1, pickerMove},
		{"up clamps", 0, keyUp, 0, pickerMove},
		{"vim j", 0, []byte{'j'}, 1, pickerMove},
		{"vim k", 1, []byte{'k'}, 0, pickerMove},
		{"enter", 1, keyEnter, 1, pickerConfirm},
		{"ctrl-c", 1, []byte{3}, 1, pickerCancel},
		{"other key", 1, []byte{'x'}, 1, pickerMove},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cursor, action := pickerStep(tt.cursor, 3, tt.key)
			if cursor != tt.wantCursor || action != tt.wantAction {
				t.Errorf("pickerStep = (%d, %d), want (%d, %d)", cursor, action, tt.wantCursor, tt.wantAction)
			}
		})
	}
}

func TestPickSelectsDevice(t *testing.T) {
	devices := []DeviceInfo{{ID: "a", Name: "Built-in"}, {ID: "b", Name: "USB Mic"}, {ID: "c", Name: "Headset"}}
	in := &keyReader{keys: [][]byte{keyDown, keyDown, keyUp, keyEnter}}
	var out bytes.Buffer

	dev, err := pick(devices, in, &out)
	if err != nil {
		t.Fatal(err)
	}
	if dev.Name != "USB Mic" {
		t.Errorf("picked %q, want USB Mic", dev.Name)
	}
	if !strings.Contains(out.String(), "Select input device") {
		t.Errorf("picker did not render title: %q", out.String())
	}
}

func TestPickCancelled(t *testing.T) {
	devices := []DeviceInfo{{Name: "a"}, {Name: "b"}}
	in := &keyReader{keys: [][]byte{{3}}}
	if _, err := pick(devices, in, io.Discard); !errors.Is(err, ErrPickerCancelled) {
		t.Errorf("err = %v, want ErrPickerCancelled", err)
	}
}

func TestPickInputClosed(t *testing.T) {
	devices := []DeviceInfo{{Name: "a"}, {Name: "b"}}
	if _, err := pick(devices, &keyReader{}, io.Discard); err == nil {
		t.Error("expected error when input closes")
	}
}

func TestSelectDeviceSingle(t *testing.T) {
	dev, err := SelectDevice(NewFakeContext(nil, false))
	if err != nil {
		t.Fatal(err)
	}
	if dev.Name != "fake" {
		t.Errorf("got %q, want fake", dev.Name)
	}
}
