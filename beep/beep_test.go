package beep

import (
	"os"
	"path/filepath"
	"testing"

	"talkclip/encoder"
)

func writeWAV(t *testing.T, samples []int16) string {
	t.Helper()
	rec, err := encoder.Encode(encoder.FormatWAV, samples)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "cue.wav")
	if err := os.WriteFile(path, rec.Data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAsset(t *testing.T) {
	path := writeWAV(t, []int16{1, -2, 3, -4, 5})
	cue, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cue.SampleRate != encoder.SampleRate || cue.Channels != 1 || len(cue.Samples) != 5 {
		t.Errorf("cue = %+v", cue)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	os.WriteFile(path, []byte("not a wav file at all"), 0644)
	if _, err := Load(path); err == nil {
		t.Error("expected error for garbage file")
	}
}

func TestMissingAssetFallsBackToTick(t *testing.T) {
	p := New(filepath.Join(t.TempDir(), "start.wav"), "")
	for name, c := range map[string]Cue{"start": p.start, "success": p.success} {
		if c.SampleRate != tickRate || c.Channels != 1 {
			t.Errorf("%s: cue format %d/%d", name, c.SampleRate, c.Channels)
		}
		if want := int(tickRate * tickDuration); len(c.Samples) != want {
			t.Errorf("%s: %d samples, want %d", name, len(c.Samples), want)
		}
	}
}

func TestPlayUsesLoadedCues(t *testing.T) {
	start := writeWAV(t, []int16{7, 7, 7})
	p := New(start, "")
	var played []Cue
	p.play = func(c Cue) error {
		played = append(played, c)
		return nil
	}

	if err := p.PlayStart(); err != nil {
		t.Fatal(err)
	}
	if err := p.PlaySuccess(); err != nil {
		t.Fatal(err)
	}
	if len(played) != 2 {
		t.Fatalf("played %d cues, want 2", len(played))
	}
	if len(played[0].Samples) != 3 {
		t.Errorf("start cue should come from the asset, got %d samples", len(played[0].Samples))
	}
	if played[1].SampleRate != tickRate {
		t.Errorf("success cue should be the synthesized tick")
	}
}

func TestGenerateTickDecays(t *testing.T) {
	s := generateTick(tickRate, startFreq, tickDuration, startVolume, startDecay)
	peak := func(part []int16) int16 {
		var m int16
		for _, v := range part {
			if v < 0 {
				v = -v
			}
			m = max(m, v)
		}
		return m
	}
	head, tail := peak(s[:len(s)/10]), peak(s[len(s)*9/10:])
	if head <= tail {
		t.Errorf("tick should decay: head peak %d, tail peak %d", head, tail)
	}
}

// Runs last: Disable is process-wide.
func TestDisable(t *testing.T) {
	p := New("", "")
	calls := 0
	p.play = func(Cue) error { calls++; return nil }
	Disable()
	p.PlayStart()
	p.PlaySuccess()
	if calls != 0 {
		t.Errorf("play called %d times after Disable", calls)
	}
}
