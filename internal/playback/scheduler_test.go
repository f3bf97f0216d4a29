// ABOUTME: Tests for the real-time playback scheduler
// ABOUTME: Covers pause/resume accounting, stop cleanup, and failures
package playback

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/clavier-project/clavier-go/internal/score"
	"github.com/clavier-project/clavier-go/internal/sequence"
)

// recordingBackend captures backend calls with wall-clock timestamps.
type recordingBackend struct {
	mu     sync.Mutex
	calls  []call
	failOn int // pitch whose NoteOn fails; 0 disables
}

type call struct {
	kind  sequence.Kind
	pitch int
	at    time.Time
}

func (b *recordingBackend) NoteOn(pitch, velocity int) error {
	if b.failOn != 0 && pitch == b.failOn {
		return errors.New("device gone")
	}
	b.record(sequence.NoteOn, pitch)
	return nil
}

func (b *recordingBackend) NoteOff(pitch int) error {
	b.record(sequence.NoteOff, pitch)
	return nil
}

func (b *recordingBackend) record(kind sequence.Kind, pitch int) {
	b.mu.Lock()
	b.calls = append(b.calls, call{kind: kind, pitch: pitch, at: time.Now()})
	b.mu.Unlock()
}

func (b *recordingBackend) snapshot() []call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]call(nil), b.calls...)
}

func (b *recordingBackend) Name() string { return "recording" }
func (b *recordingBackend) SupportedRange() score.PitchRange {
	return score.PitchRange{Low: 0, High: 127}
}
func (b *recordingBackend) SupportsSustain() bool  { return true }
func (b *recordingBackend) SupportsVelocity() bool { return true }
func (b *recordingBackend) Close() error           { return nil }

func at(ms int, kind sequence.Kind, pitch int) sequence.Event {
	return sequence.Event{Time: time.Duration(ms) * time.Millisecond, Kind: kind, Pitch: pitch, Velocity: 76}
}

func waitResult(t *testing.T, s *Scheduler, timeout time.Duration) Result {
	t.Helper()
	select {
	case res := <-s.Done():
		return res
	case <-time.After(timeout):
		t.Fatal("scheduler did not terminate in time")
		return Result{}
	}
}

func TestPlaysTimelineInOrder(t *testing.T) {
	b := &recordingBackend{}
	tl := sequence.Timeline{
		at(0, sequence.NoteOn, 60),
		at(30, sequence.NoteOff, 60),
		at(30, sequence.NoteOn, 64),
		at(60, sequence.NoteOff, 64),
	}

	s := New(tl, b)
	s.Start()
	res := waitResult(t, s, 2*time.Second)

	if res.Err != nil || res.Stopped {
		t.Fatalf("expected natural finish, got %+v", res)
	}
	calls := b.snapshot()
	if len(calls) != 4 {
		t.Fatalf("expected 4 calls, got %d", len(calls))
	}
	for i, want := range tl {
		if calls[i].kind != want.Kind || calls[i].pitch != want.Pitch {
			t.Errorf("call %d: got %v %d, want %v %d", i, calls[i].kind, calls[i].pitch, want.Kind, want.Pitch)
		}
	}
}

func TestEventTimingRoughlyHonored(t *testing.T) {
	b := &recordingBackend{}
	tl := sequence.Timeline{
		at(0, sequence.NoteOn, 60),
		at(100, sequence.NoteOff, 60),
	}

	s := New(tl, b)
	start := time.Now()
	s.Start()
	waitResult(t, s, 2*time.Second)

	calls := b.snapshot()
	gap := calls[1].at.Sub(start)
	if gap < 90*time.Millisecond || gap > 300*time.Millisecond {
		t.Errorf("NoteOff fired at %v, expected ~100ms", gap)
	}
}

func TestStopReleasesOpenNotes(t *testing.T) {
	b := &recordingBackend{}
	tl := sequence.Timeline{
		at(0, sequence.NoteOn, 60),
		at(0, sequence.NoteOn, 64),
		at(0, sequence.NoteOn, 67),
		at(10000, sequence.NoteOff, 60),
		at(10000, sequence.NoteOff, 64),
		at(10000, sequence.NoteOff, 67),
	}

	s := New(tl, b)
	s.Start()
	time.Sleep(50 * time.Millisecond)

	stopAt := time.Now()
	s.Stop()
	res := waitResult(t, s, time.Second)
	if !res.Stopped {
		t.Errorf("expected stopped result, got %+v", res)
	}
	if gap := time.Since(stopAt); gap > 200*time.Millisecond {
		t.Errorf("stop took %v, should interrupt the wait immediately", gap)
	}

	offs := map[int]bool{}
	for _, c := range b.snapshot() {
		if c.kind == sequence.NoteOff {
			offs[c.pitch] = true
		}
	}
	for _, pitch := range []int{60, 64, 67} {
		if !offs[pitch] {
			t.Errorf("pitch %d left sounding after stop", pitch)
		}
	}
}

func TestPausePreservesElapsed(t *testing.T) {
	b := &recordingBackend{}
	tl := sequence.Timeline{
		at(0, sequence.NoteOn, 60),
		at(200, sequence.NoteOff, 60),
	}

	s := New(tl, b)
	s.Start()
	time.Sleep(60 * time.Millisecond)

	s.Pause()
	time.Sleep(30 * time.Millisecond) // let the pause land
	pausedAt := s.Elapsed()

	time.Sleep(150 * time.Millisecond) // wall clock advances, play time must not
	frozen := s.Elapsed()
	if frozen != pausedAt {
		t.Errorf("elapsed moved while paused: %v -> %v", pausedAt, frozen)
	}

	s.Resume()
	res := waitResult(t, s, 2*time.Second)
	if res.Err != nil || res.Stopped {
		t.Fatalf("expected natural finish, got %+v", res)
	}

	// The NoteOff fired at play-time 200ms, so wall time from start is
	// roughly 200ms plus the paused span.
	calls := b.snapshot()
	total := calls[1].at.Sub(calls[0].at)
	if total < 300*time.Millisecond {
		t.Errorf("playback finished in %v, pause seems to have been skipped", total)
	}
}

func TestStopWhilePaused(t *testing.T) {
	b := &recordingBackend{}
	tl := sequence.Timeline{
		at(0, sequence.NoteOn, 60),
		at(5000, sequence.NoteOff, 60),
	}

	s := New(tl, b)
	s.Start()
	time.Sleep(30 * time.Millisecond)
	s.Pause()
	time.Sleep(30 * time.Millisecond)

	s.Stop()
	res := waitResult(t, s, time.Second)
	if !res.Stopped {
		t.Errorf("expected stopped result, got %+v", res)
	}

	calls := b.snapshot()
	last := calls[len(calls)-1]
	if last.kind != sequence.NoteOff || last.pitch != 60 {
		t.Errorf("expected cleanup NoteOff for 60, got %v %d", last.kind, last.pitch)
	}
}

func TestBackendFailureAbortsWithCleanup(t *testing.T) {
	b := &recordingBackend{failOn: 64}
	tl := sequence.Timeline{
		at(0, sequence.NoteOn, 60),
		at(20, sequence.NoteOn, 64), // fails
		at(5000, sequence.NoteOff, 60),
		at(5000, sequence.NoteOff, 64),
	}

	s := New(tl, b)
	s.Start()
	res := waitResult(t, s, 2*time.Second)

	if res.Err == nil {
		t.Fatal("expected a backend error")
	}

	// The already-sounding 60 must have been released.
	var sawOff60 bool
	for _, c := range b.snapshot() {
		if c.kind == sequence.NoteOff && c.pitch == 60 {
			sawOff60 = true
		}
	}
	if !sawOff60 {
		t.Error("pitch 60 left sounding after backend failure")
	}
}

func TestDoubleStartIgnored(t *testing.T) {
	b := &recordingBackend{}
	tl := sequence.Timeline{at(0, sequence.NoteOn, 60), at(10, sequence.NoteOff, 60)}

	s := New(tl, b)
	s.Start()
	s.Start() // must not spawn a second run
	waitResult(t, s, time.Second)

	if n := len(b.snapshot()); n != 2 {
		t.Errorf("expected 2 calls, got %d", n)
	}
}

func TestControlsBeforeStartAreSafe(t *testing.T) {
	s := New(sequence.Timeline{at(0, sequence.NoteOn, 60), at(5, sequence.NoteOff, 60)}, &recordingBackend{})
	s.Pause()
	s.Resume()
	if s.Elapsed() != 0 {
		t.Errorf("expected zero elapsed before start, got %v", s.Elapsed())
	}
	s.Start()
	waitResult(t, s, time.Second)
}
