// ABOUTME: Event sequencer - flattens a score into a timed action list
// ABOUTME: Resolves tempo, ties, staccato, and dynamics at build time
package sequence

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/clavier-project/clavier-go/internal/analyze"
	"github.com/clavier-project/clavier-go/internal/score"
)

// ErrEmptyTimeline reports a score with nothing playable after analysis.
var ErrEmptyTimeline = errors.New("sequence: no playable events")

// Kind distinguishes timeline actions.
type Kind int

const (
	NoteOn Kind = iota
	NoteOff
)

func (k Kind) String() string {
	if k == NoteOff {
		return "off"
	}
	return "on"
}

// Event is one timed backend action. Gate is only meaningful on NoteOn
// and is the sounding duration after articulation adjustments.
type Event struct {
	Time     time.Duration
	Kind     Kind
	Pitch    int
	Velocity int
	Gate     time.Duration
}

func (e Event) String() string {
	return fmt.Sprintf("%v %s %s v%d", e.Time, e.Kind, score.NoteName(e.Pitch), e.Velocity)
}

// Timeline is an immutable ordered event list. Events are sorted by
// time; at equal times NoteOff sorts before NoteOn so re-struck pitches
// release before they retrigger.
type Timeline []Event

// Duration returns the time of the last event.
func (t Timeline) Duration() time.Duration {
	if len(t) == 0 {
		return 0
	}
	return t[len(t)-1].Time
}

// Policy holds the tunable sequencing constants.
type Policy struct {
	// StaccatoFraction scales the gate of staccato notes. Onsets of
	// later notes are unaffected.
	StaccatoFraction float64
	// Velocities maps each explicit dynamic to a MIDI velocity. Missing
	// entries fall back to DefaultPolicy values.
	Velocities map[score.Dynamic]int
}

// DefaultPolicy halves the sounding duration of staccato notes and
// plays unmarked passages at mf.
func DefaultPolicy() Policy {
	return Policy{
		StaccatoFraction: 0.5,
		Velocities: map[score.Dynamic]int{
			score.DynamicPP: 30,
			score.DynamicP:  45,
			score.DynamicMP: 60,
			score.DynamicMF: 76,
			score.DynamicF:  95,
			score.DynamicFF: 110,
		},
	}
}

func (p Policy) velocity(d score.Dynamic) int {
	if v, ok := p.Velocities[d]; ok {
		return v
	}
	return DefaultPolicy().Velocities[d]
}

// Build flattens the selected voices into a Timeline, applying the
// analyzer's octave offset, merging tied chains into single on/off
// pairs, shortening staccato gates, and mapping dynamics to velocity.
// Building the same (score, decision, policy) twice yields identical
// timelines.
func Build(s *score.Score, dec analyze.Decision, pol Policy) (Timeline, error) {
	if pol.StaccatoFraction <= 0 || pol.StaccatoFraction > 1 {
		pol.StaccatoFraction = DefaultPolicy().StaccatoFraction
	}

	var events Timeline
	for _, vi := range dec.Voices {
		if vi < 0 || vi >= len(s.Voices) {
			continue
		}
		events = append(events, sequenceVoice(s, s.Voices[vi], dec.OctaveOffset, pol)...)
	}

	if len(events) == 0 {
		return nil, ErrEmptyTimeline
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Time != events[j].Time {
			return events[i].Time < events[j].Time
		}
		return events[i].Kind == NoteOff && events[j].Kind == NoteOn
	})

	return events, nil
}

// sequenceVoice walks one voice, merging tie chains as it goes. A chain
// of N tied notes becomes exactly one NoteOn/NoteOff pair spanning the
// summed duration.
func sequenceVoice(s *score.Score, v score.Voice, offset int, pol Policy) []Event {
	var events []Event
	currentDynamic := score.DynamicMF

	for i := 0; i < len(v.Notes); {
		head := v.Notes[i]
		if head.Dynamic != score.DynamicNone {
			currentDynamic = head.Dynamic
		}

		// Extend across the tie chain: consecutive same-pitch notes
		// linked tied-to-next -> tied-from-previous.
		endBeat := head.Onset + head.Duration
		last := head
		j := i + 1
		for last.TieToNext && j < len(v.Notes) && v.Notes[j].Pitch == head.Pitch && v.Notes[j].TieFromPrev {
			last = v.Notes[j]
			endBeat = last.Onset + last.Duration
			j++
		}

		onTime := s.Tempo.SecondsAt(head.Onset)
		offTime := s.Tempo.SecondsAt(endBeat)
		gate := offTime - onTime
		if head.Staccato {
			gate = time.Duration(float64(gate) * pol.StaccatoFraction)
			offTime = onTime + gate
		}

		pitch := head.Pitch + offset
		events = append(events,
			Event{Time: onTime, Kind: NoteOn, Pitch: pitch, Velocity: pol.velocity(currentDynamic), Gate: gate},
			Event{Time: offTime, Kind: NoteOff, Pitch: pitch},
		)
		i = j
	}

	return events
}
