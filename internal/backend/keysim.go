// ABOUTME: Key-simulation backend mapping pitches to keyboard taps
// ABOUTME: Three octave bands on letter rows, Shift for sharps, Ctrl for flats
package backend

import (
	"fmt"
	"log"

	"github.com/clavier-project/clavier-go/internal/score"
)

// Modifier is a keyboard modifier held while tapping a base key.
type Modifier int

const (
	ModNone Modifier = iota
	ModShift          // raises the base key a semitone (sharp)
	ModCtrl           // lowers the base key a semitone (flat)
)

func (m Modifier) String() string {
	switch m {
	case ModShift:
		return "shift"
	case ModCtrl:
		return "ctrl"
	default:
		return "none"
	}
}

// KeyStroke is one simulated key press.
type KeyStroke struct {
	Key rune
	Mod Modifier
}

// KeyInjector delivers simulated key presses to the target window.
// Low-level event injection is an external collaborator; the engine
// only emits strokes.
type KeyInjector interface {
	Tap(stroke KeyStroke) error
}

// LogInjector writes strokes to the log instead of injecting them.
// Useful as a dry-run target and in tests.
type LogInjector struct{}

func (LogInjector) Tap(stroke KeyStroke) error {
	log.Printf("keysim: tap %q mod=%s", stroke.Key, stroke.Mod)
	return nil
}

const (
	// KeySimLow and KeySimHigh bound the static key table: C3..B5.
	KeySimLow  = 48
	KeySimHigh = 83
)

// keyRows holds the base key for each scale degree (C D E F G A B) in
// the three octave bands, lowest band first.
var keyRows = [3][7]rune{
	{'z', 'x', 'c', 'v', 'b', 'n', 'm'},
	{'a', 's', 'd', 'f', 'g', 'h', 'j'},
	{'q', 'w', 'e', 'r', 't', 'y', 'u'},
}

// degreeOf maps a pitch class to its natural scale degree, or -1 for
// the five black keys.
var degreeOf = [12]int{0, -1, 1, -1, 2, 3, -1, 4, -1, 5, -1, 6}

// StrokeFor maps a pitch to its key stroke. Black keys are spelled as
// sharps: Shift plus the natural a semitone below. The lookup is
// strict; callers fold pitches outside C3..B5 into range first.
func StrokeFor(pitch int) (KeyStroke, error) {
	base := pitch
	mod := ModNone
	if degreeOf[((pitch%12)+12)%12] < 0 {
		base = pitch - 1
		mod = ModShift
	}
	if base < KeySimLow || base > KeySimHigh {
		return KeyStroke{}, fmt.Errorf("pitch %s outside key table", score.NoteName(pitch))
	}
	band := (base - KeySimLow) / 12
	degree := degreeOf[(base-KeySimLow)%12]
	return KeyStroke{Key: keyRows[band][degree], Mod: mod}, nil
}

// KeySim simulates keyboard presses for each note onset. It cannot
// hold a key, so every note sounds as a single trigger regardless of
// gate length.
type KeySim struct {
	injector KeyInjector
}

// NewKeySim creates a key-simulation backend. A nil injector falls
// back to LogInjector.
func NewKeySim(injector KeyInjector) *KeySim {
	if injector == nil {
		injector = LogInjector{}
	}
	return &KeySim{injector: injector}
}

// NoteOn taps the key for pitch. Pitches admitted past the strict
// range by analysis tolerance fold by whole octaves into the table.
func (k *KeySim) NoteOn(pitch, velocity int) error {
	stroke, err := StrokeFor(foldIntoRange(pitch, KeySimLow, KeySimHigh))
	if err != nil {
		return &Error{Device: "keysim", Op: "note on", Err: err}
	}
	if err := k.injector.Tap(stroke); err != nil {
		return &Error{Device: "keysim", Op: "note on", Err: err}
	}
	return nil
}

// NoteOff is a no-op: a tapped key has already released.
func (k *KeySim) NoteOff(pitch int) error { return nil }

func (k *KeySim) Name() string { return "keysim" }

func (k *KeySim) SupportedRange() score.PitchRange {
	return score.PitchRange{Low: KeySimLow, High: KeySimHigh}
}

func (k *KeySim) SupportsSustain() bool  { return false }
func (k *KeySim) SupportsVelocity() bool { return false }

func (k *KeySim) Close() error { return nil }
