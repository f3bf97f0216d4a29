// ABOUTME: Output backend capability contract
// ABOUTME: Uniform NoteOn/NoteOff interface over keysim, sampler, and MIDI
package backend

import (
	"fmt"

	"github.com/clavier-project/clavier-go/internal/score"
)

// Backend renders NoteOn/NoteOff actions on some output device. All
// methods must be safe to call from the scheduler goroutine.
//
// Pitches may arrive outside SupportedRange when analysis was run with
// a tolerance; range-limited devices fold such pitches by whole
// octaves rather than failing the session.
type Backend interface {
	// Name is a short device identifier for status display.
	Name() string

	NoteOn(pitch, velocity int) error
	NoteOff(pitch int) error

	// SupportedRange is queried by the range analyzer before sequencing.
	SupportedRange() score.PitchRange

	// SupportsSustain reports whether the device can hold a note for
	// its full gate. When false, long and tied notes render as discrete
	// triggers; that is a documented limitation, not an error.
	SupportsSustain() bool

	// SupportsVelocity reports whether dynamics are audible. When
	// false, velocity values are accepted and ignored.
	SupportsVelocity() bool

	Close() error
}

// Error reports a device-level failure during playback. The session
// aborts with best-effort note cleanup and is not retried.
type Error struct {
	Device string
	Op     string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s backend: %s: %v", e.Device, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// foldIntoRange shifts a pitch by whole octaves until it lies inside
// the inclusive range. Requires a range at least an octave wide.
func foldIntoRange(pitch, lo, hi int) int {
	for pitch < lo {
		pitch += 12
	}
	for pitch > hi {
		pitch -= 12
	}
	return pitch
}
