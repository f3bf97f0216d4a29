// ABOUTME: Real-time playback scheduler walking a timeline against a backend
// ABOUTME: Cancellable drift-free waits with pause/resume time accounting
package playback

import (
	"log"
	"sync"
	"time"

	"github.com/clavier-project/clavier-go/internal/backend"
	"github.com/clavier-project/clavier-go/internal/sequence"
)

// Result is delivered on Done when the scheduler terminates. A nil Err
// with Stopped false means the timeline played to its natural end.
type Result struct {
	Stopped bool
	Err     error
}

type command int

const (
	cmdPause command = iota
	cmdResume
)

// Scheduler realizes one timeline's timing on one backend. It owns a
// single goroutine between Start and the Done delivery; control calls
// are asynchronous requests observed at the next wait-check.
type Scheduler struct {
	timeline sequence.Timeline
	out      backend.Backend

	ctrl     chan command
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan Result

	mu      sync.Mutex
	anchor  time.Time     // monotonic reference for the running segment
	elapsed time.Duration // accumulated play time before the anchor
	paused  bool
	started bool
}

// New creates a scheduler for one playback session. Schedulers are
// single-shot: one Start, one Done delivery.
func New(timeline sequence.Timeline, out backend.Backend) *Scheduler {
	return &Scheduler{
		timeline: timeline,
		out:      out,
		ctrl:     make(chan command, 8),
		stopCh:   make(chan struct{}),
		done:     make(chan Result, 1),
	}
}

// Start launches the timing goroutine. Calling it twice is a bug.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		log.Printf("scheduler: Start called twice; ignoring")
		return
	}
	s.started = true
	s.anchor = time.Now()
	s.mu.Unlock()

	go s.run()
}

// Pause requests suspension. Elapsed play time is preserved.
func (s *Scheduler) Pause() {
	select {
	case s.ctrl <- cmdPause:
	default:
	}
}

// Resume re-anchors the clock so playback continues where it paused.
func (s *Scheduler) Resume() {
	select {
	case s.ctrl <- cmdResume:
	default:
	}
}

// Stop cancels playback immediately, interrupting any in-progress
// wait. Open notes are released before Done fires.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Done delivers exactly one Result when the goroutine has terminated,
// including its NoteOff cleanup.
func (s *Scheduler) Done() <-chan Result {
	return s.done
}

// Elapsed reports accumulated play time, excluding paused spans.
func (s *Scheduler) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused || !s.started {
		return s.elapsed
	}
	return s.elapsed + time.Since(s.anchor)
}

func (s *Scheduler) run() {
	open := make(map[int]bool)

	for _, ev := range s.timeline {
		if !s.waitUntil(ev.Time) {
			s.finish(open, Result{Stopped: true})
			return
		}

		var err error
		switch ev.Kind {
		case sequence.NoteOn:
			if err = s.out.NoteOn(ev.Pitch, ev.Velocity); err == nil {
				open[ev.Pitch] = true
			}
		case sequence.NoteOff:
			if err = s.out.NoteOff(ev.Pitch); err == nil {
				delete(open, ev.Pitch)
			}
		}
		if err != nil {
			log.Printf("scheduler: backend failure: %v", err)
			s.finish(open, Result{Err: err})
			return
		}
	}

	s.finish(open, Result{})
}

// waitUntil blocks until the timeline position target has elapsed,
// servicing pause/resume along the way. Returns false on stop.
func (s *Scheduler) waitUntil(target time.Duration) bool {
	for {
		s.mu.Lock()
		paused := s.paused
		remaining := target - s.elapsed
		if !paused {
			remaining -= time.Since(s.anchor)
		}
		s.mu.Unlock()

		if paused {
			select {
			case <-s.stopCh:
				return false
			case cmd := <-s.ctrl:
				s.apply(cmd)
			}
			continue
		}

		if remaining <= 0 {
			return true
		}

		timer := time.NewTimer(remaining)
		select {
		case <-s.stopCh:
			timer.Stop()
			return false
		case cmd := <-s.ctrl:
			timer.Stop()
			s.apply(cmd)
		case <-timer.C:
			return true
		}
	}
}

func (s *Scheduler) apply(cmd command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch cmd {
	case cmdPause:
		if !s.paused {
			s.elapsed += time.Since(s.anchor)
			s.paused = true
		}
	case cmdResume:
		if s.paused {
			s.anchor = time.Now()
			s.paused = false
		}
	}
}

// finish releases every still-sounding pitch and delivers the result.
// Cleanup is best-effort: a failing NoteOff must not mask the original
// error or leave the rest of the set untried.
func (s *Scheduler) finish(open map[int]bool, res Result) {
	for pitch := range open {
		if err := s.out.NoteOff(pitch); err != nil {
			log.Printf("scheduler: cleanup NoteOff %d failed: %v", pitch, err)
		}
	}
	s.done <- res
}
