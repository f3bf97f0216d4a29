// ABOUTME: In-memory score model consumed by the playback engine
// ABOUTME: Defines voices, notes, dynamics, and pitch ranges
package score

import "fmt"

// Dynamic is a notated dynamic marking.
type Dynamic int

const (
	DynamicNone Dynamic = iota
	DynamicPP
	DynamicP
	DynamicMP
	DynamicMF
	DynamicF
	DynamicFF
)

func (d Dynamic) String() string {
	switch d {
	case DynamicPP:
		return "pp"
	case DynamicP:
		return "p"
	case DynamicMP:
		return "mp"
	case DynamicMF:
		return "mf"
	case DynamicF:
		return "f"
	case DynamicFF:
		return "ff"
	default:
		return "none"
	}
}

// Note is a single notated note within a voice.
type Note struct {
	Pitch       int     // MIDI semitone number 0..127
	Onset       float64 // beat position within the voice
	Duration    float64 // notated length in beats
	Dynamic     Dynamic
	Staccato    bool
	TieFromPrev bool
	TieToNext   bool
}

// Voice is one melodic line. Notes are ordered by onset.
type Voice struct {
	Name  string
	Notes []Note
}

// Score is an immutable parsed score: ordered voices plus a tempo map.
type Score struct {
	Title  string
	Tempo  TempoMap
	Voices []Voice
}

// Beats returns the beat position where the last note of any voice ends.
func (s *Score) Beats() float64 {
	var end float64
	for _, v := range s.Voices {
		for _, n := range v.Notes {
			if off := n.Onset + n.Duration; off > end {
				end = off
			}
		}
	}
	return end
}

// PitchRange is an inclusive span of MIDI semitone numbers.
type PitchRange struct {
	Low  int
	High int
}

func (r PitchRange) Width() int { return r.High - r.Low }

func (r PitchRange) Contains(other PitchRange) bool {
	return other.Low >= r.Low && other.High <= r.High
}

// Transpose shifts both ends by the given number of semitones.
func (r PitchRange) Transpose(semitones int) PitchRange {
	return PitchRange{Low: r.Low + semitones, High: r.High + semitones}
}

func (r PitchRange) String() string {
	return fmt.Sprintf("%s..%s", NoteName(r.Low), NoteName(r.High))
}

// Range computes the pitch extent over the given voice indices.
// The second return is false when those voices contain no notes.
func (s *Score) Range(voices []int) (PitchRange, bool) {
	r := PitchRange{Low: 128, High: -1}
	for _, vi := range voices {
		if vi < 0 || vi >= len(s.Voices) {
			continue
		}
		for _, n := range s.Voices[vi].Notes {
			if n.Pitch < r.Low {
				r.Low = n.Pitch
			}
			if n.Pitch > r.High {
				r.High = n.Pitch
			}
		}
	}
	if r.High < 0 {
		return PitchRange{}, false
	}
	return r, true
}

// FullRange computes the pitch extent over all voices combined.
func (s *Score) FullRange() (PitchRange, bool) {
	all := make([]int, len(s.Voices))
	for i := range all {
		all[i] = i
	}
	return s.Range(all)
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName renders a MIDI pitch as scientific pitch notation (60 -> "C4").
func NoteName(pitch int) string {
	octave := pitch/12 - 1
	return fmt.Sprintf("%s%d", noteNames[((pitch%12)+12)%12], octave)
}
