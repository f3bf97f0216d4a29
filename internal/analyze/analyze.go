// ABOUTME: Range analyzer - decides how a score maps onto a backend's range
// ABOUTME: Full ensemble when it fits, otherwise octave-shifted melody
package analyze

import (
	"fmt"

	"github.com/clavier-project/clavier-go/internal/score"
)

// Mode is the playback mode chosen for a score.
type Mode int

const (
	// FullEnsemble plays every voice untransposed.
	FullEnsemble Mode = iota
	// MelodyOnly plays the first voice, shifted by whole octaves to fit.
	MelodyOnly
)

func (m Mode) String() string {
	if m == MelodyOnly {
		return "melody"
	}
	return "full ensemble"
}

// Decision is the analyzer's output, consumed by the sequencer.
type Decision struct {
	Mode         Mode
	Voices       []int // indices into Score.Voices
	OctaveOffset int   // semitones, always a multiple of 12
}

// UnplayableError reports a score that cannot fit the backend's range
// even after octave transposition of the melody.
type UnplayableError struct {
	Score     string
	Range     score.PitchRange
	Supported score.PitchRange
}

func (e *UnplayableError) Error() string {
	return fmt.Sprintf("score %q range %s does not fit backend range %s", e.Score, e.Range, e.Supported)
}

// maxOctaveShifts bounds the shift search; MIDI pitch space is under
// 11 octaves wide, so nothing beyond that can ever help.
const maxOctaveShifts = 11

// Analyze selects voices and transposition for playing s on a backend
// supporting the given range. Tolerance widens the acceptance window
// for full-ensemble playback only; melody transposition targets the
// strict backend range.
func Analyze(s *score.Score, supported score.PitchRange, tolerance int) (Decision, error) {
	if tolerance < 0 {
		tolerance = 0
	}

	full, ok := s.FullRange()
	if !ok {
		return Decision{}, &UnplayableError{Score: s.Title, Supported: supported}
	}

	window := score.PitchRange{Low: supported.Low - tolerance, High: supported.High + tolerance}
	if window.Contains(full) {
		voices := make([]int, len(s.Voices))
		for i := range voices {
			voices[i] = i
		}
		return Decision{Mode: FullEnsemble, Voices: voices}, nil
	}

	melody, ok := s.Range([]int{0})
	if !ok {
		return Decision{}, &UnplayableError{Score: s.Title, Range: full, Supported: supported}
	}

	if melody.Width() > supported.Width() {
		return Decision{}, &UnplayableError{Score: s.Title, Range: melody, Supported: supported}
	}

	// Smallest absolute whole-octave shift that brings the melody fully
	// inside the supported range; equidistant candidates resolve to the
	// lower octave.
	for n := 0; n <= maxOctaveShifts; n++ {
		for _, shift := range []int{-12 * n, 12 * n} {
			if supported.Contains(melody.Transpose(shift)) {
				return Decision{Mode: MelodyOnly, Voices: []int{0}, OctaveOffset: shift}, nil
			}
		}
	}

	return Decision{}, &UnplayableError{Score: s.Title, Range: melody, Supported: supported}
}
