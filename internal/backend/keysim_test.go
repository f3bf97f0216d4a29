// ABOUTME: Tests for the key-simulation backend and stroke mapping
// ABOUTME: Verifies row/modifier layout across all three octave bands
package backend

import (
	"errors"
	"testing"

	"github.com/clavier-project/clavier-go/internal/score"
)

// recordingInjector captures taps for assertions.
type recordingInjector struct {
	strokes []KeyStroke
	err     error
}

func (r *recordingInjector) Tap(stroke KeyStroke) error {
	if r.err != nil {
		return r.err
	}
	r.strokes = append(r.strokes, stroke)
	return nil
}

func TestStrokeForNaturals(t *testing.T) {
	cases := []struct {
		pitch int
		key   rune
	}{
		{48, 'z'}, // C3, bottom band
		{50, 'x'}, // D3
		{59, 'm'}, // B3
		{60, 'a'}, // C4, middle band
		{65, 'f'}, // F4
		{71, 'j'}, // B4
		{72, 'q'}, // C5, top band
		{79, 't'}, // G5
		{83, 'u'}, // B5
	}
	for _, tc := range cases {
		stroke, err := StrokeFor(tc.pitch)
		if err != nil {
			t.Errorf("StrokeFor(%d): %v", tc.pitch, err)
			continue
		}
		if stroke.Key != tc.key || stroke.Mod != ModNone {
			t.Errorf("StrokeFor(%d) = %q/%s, want %q/none", tc.pitch, stroke.Key, stroke.Mod, tc.key)
		}
	}
}

func TestStrokeForSharps(t *testing.T) {
	cases := []struct {
		pitch int
		key   rune
	}{
		{49, 'z'}, // C#3 = shift+C3
		{54, 'v'}, // F#3
		{61, 'a'}, // C#4
		{70, 'h'}, // A#4
		{82, 'y'}, // A#5
	}
	for _, tc := range cases {
		stroke, err := StrokeFor(tc.pitch)
		if err != nil {
			t.Errorf("StrokeFor(%d): %v", tc.pitch, err)
			continue
		}
		if stroke.Key != tc.key || stroke.Mod != ModShift {
			t.Errorf("StrokeFor(%d) = %q/%s, want %q/shift", tc.pitch, stroke.Key, stroke.Mod, tc.key)
		}
	}
}

func TestStrokeForOutOfRange(t *testing.T) {
	for _, pitch := range []int{47, 84, 0, 127} {
		if _, err := StrokeFor(pitch); err == nil {
			t.Errorf("StrokeFor(%d) succeeded outside the key table", pitch)
		}
	}
}

func TestKeySimTapsOnNoteOn(t *testing.T) {
	inj := &recordingInjector{}
	k := NewKeySim(inj)

	if err := k.NoteOn(60, 100); err != nil {
		t.Fatal(err)
	}
	if err := k.NoteOff(60); err != nil {
		t.Fatal(err)
	}
	if len(inj.strokes) != 1 {
		t.Fatalf("expected 1 tap, got %d", len(inj.strokes))
	}
	if inj.strokes[0].Key != 'a' {
		t.Errorf("tapped %q, want 'a'", inj.strokes[0].Key)
	}
}

func TestKeySimFoldsOutOfRangePitches(t *testing.T) {
	cases := []struct {
		pitch int
		key   rune
		mod   Modifier
	}{
		{46, 'n', ModShift}, // A#2 folds up to A#3
		{36, 'z', ModNone},  // C2 folds up to C3
		{84, 'q', ModNone},  // C6 folds down to C5
		{95, 'u', ModNone},  // B6 folds down to B5
	}
	for _, tc := range cases {
		inj := &recordingInjector{}
		k := NewKeySim(inj)
		if err := k.NoteOn(tc.pitch, 100); err != nil {
			t.Errorf("NoteOn(%d): %v", tc.pitch, err)
			continue
		}
		got := inj.strokes[0]
		if got.Key != tc.key || got.Mod != tc.mod {
			t.Errorf("NoteOn(%d) tapped %q/%s, want %q/%s", tc.pitch, got.Key, got.Mod, tc.key, tc.mod)
		}
	}
}

func TestKeySimWrapsInjectorError(t *testing.T) {
	boom := errors.New("window gone")
	k := NewKeySim(&recordingInjector{err: boom})

	err := k.NoteOn(60, 100)
	if err == nil {
		t.Fatal("expected an error")
	}
	var be *Error
	if !errors.As(err, &be) {
		t.Fatalf("error %T is not a backend error", err)
	}
	if !errors.Is(err, boom) {
		t.Error("injector error lost in wrapping")
	}
}

func TestKeySimCapabilities(t *testing.T) {
	k := NewKeySim(nil)
	if k.SupportsSustain() || k.SupportsVelocity() {
		t.Error("key simulation cannot sustain or express velocity")
	}
	want := score.PitchRange{Low: KeySimLow, High: KeySimHigh}
	if got := k.SupportedRange(); got != want {
		t.Errorf("range = %v, want %v", got, want)
	}
}

func TestScalePCM(t *testing.T) {
	// One stereo frame at full scale.
	pcm := []byte{0x00, 0x40, 0x00, 0xc0} // +16384, -16384

	full := scalePCM(pcm, 127)
	if full[1] != 0x40 || full[3] != 0xc0 {
		t.Errorf("full velocity altered samples: % x", full)
	}

	half := scalePCM(pcm, 64)
	hi := int16(uint16(half[0]) | uint16(half[1])<<8)
	if hi < 8000 || hi > 8500 {
		t.Errorf("half velocity sample = %d, want ~8258", hi)
	}

	silent := scalePCM(pcm, 0)
	for i, b := range silent {
		if b != 0 {
			t.Fatalf("zero velocity byte %d = %#x, want 0", i, b)
		}
	}
}

func TestScalePCMOddLength(t *testing.T) {
	out := scalePCM([]byte{0x01, 0x02, 0x03}, 127)
	if len(out) != 2 {
		t.Errorf("odd input produced %d bytes, want trailing byte dropped", len(out))
	}
}

func TestPitchForName(t *testing.T) {
	cases := map[string]int{
		"C4":  60,
		"A4":  69,
		"C2":  36,
		"G#6": 92,
		"C#3": 49,
	}
	for name, want := range cases {
		got, err := pitchForName(name)
		if err != nil {
			t.Errorf("pitchForName(%q): %v", name, err)
			continue
		}
		if got != want {
			t.Errorf("pitchForName(%q) = %d, want %d", name, got, want)
		}
	}
}

func TestPitchForNameRejectsGarbage(t *testing.T) {
	for _, name := range []string{"", "H4", "C", "C#x", "Db4"} {
		if _, err := pitchForName(name); err == nil {
			t.Errorf("pitchForName(%q) succeeded", name)
		}
	}
}

func TestSampleMapNamesParse(t *testing.T) {
	for name := range sampleFiles {
		if _, err := pitchForName(name); err != nil {
			t.Errorf("sample map entry %q: %v", name, err)
		}
	}
}
