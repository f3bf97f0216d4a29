// ABOUTME: Tempo map with piecewise beat-to-seconds integration
// ABOUTME: Handles mid-score tempo changes when flattening a score
package score

import "time"

// DefaultBPM is used when a score carries no tempo marking.
const DefaultBPM = 120.0

// TempoChange sets a new tempo from a given beat position onward.
type TempoChange struct {
	Beat float64
	BPM  float64
}

// TempoMap is an ordered list of tempo changes. An empty map plays at
// DefaultBPM throughout.
type TempoMap []TempoChange

// SecondsAt converts a beat position to seconds from the score start,
// integrating across every tempo segment before it.
func (m TempoMap) SecondsAt(beat float64) time.Duration {
	if beat <= 0 {
		return 0
	}
	bpm := DefaultBPM
	segStart := 0.0
	seconds := 0.0
	for _, tc := range m {
		if tc.Beat >= beat {
			break
		}
		if tc.BPM <= 0 {
			continue
		}
		if tc.Beat > segStart {
			seconds += (tc.Beat - segStart) * 60.0 / bpm
			segStart = tc.Beat
		}
		bpm = tc.BPM
	}
	seconds += (beat - segStart) * 60.0 / bpm
	return time.Duration(seconds * float64(time.Second))
}

// BPMAt returns the tempo in effect at a beat position.
func (m TempoMap) BPMAt(beat float64) float64 {
	bpm := DefaultBPM
	for _, tc := range m {
		if tc.Beat > beat {
			break
		}
		if tc.BPM > 0 {
			bpm = tc.BPM
		}
	}
	return bpm
}
