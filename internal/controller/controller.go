// ABOUTME: Hotkey-driven playback state machine
// ABOUTME: Owns score selection, session lifecycle, and auto-advance
package controller

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clavier-project/clavier-go/internal/analyze"
	"github.com/clavier-project/clavier-go/internal/backend"
	"github.com/clavier-project/clavier-go/internal/library"
	"github.com/clavier-project/clavier-go/internal/playback"
	"github.com/clavier-project/clavier-go/internal/sequence"
	"github.com/google/uuid"
)

// Event is a discrete, already-debounced control signal.
type Event int

const (
	SelectPrevious Event = iota
	SelectNext
	StartOrResume
	Stop
	PauseToggle
	Quit
)

// State is the controller's playback state.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// Status is a snapshot for display.
type Status struct {
	State    State
	Track    string
	Detail   string // playback mode description, e.g. "melody +12"
	Index    int    // selected/playing index, -1 when none
	Total    int
	Mode     string
	Message  string // last user-visible notice
	Elapsed  time.Duration
	Duration time.Duration
}

// Config tunes the controller.
type Config struct {
	Mode         string // sequential or random
	Tolerance    int
	Policy       sequence.Policy
	AdvanceDelay time.Duration
}

// session is one active playback: a sequenced score bound to the
// backend through a scheduler. Created on start, destroyed on stop or
// score switch; the backend has exactly one session at a time.
type session struct {
	id       uuid.UUID
	index    int
	detail   string
	timeline sequence.Timeline
	sched    *playback.Scheduler
}

// Controller serializes all state transitions on a single goroutine.
// The UI posts events; the scheduler posts results; nobody else
// mutates state.
type Controller struct {
	cfg Config
	lib *library.Library
	out backend.Backend

	events   chan Event
	quit     chan struct{}
	quitOnce sync.Once

	// loop-owned
	state     State
	sess      *session
	sessRef   atomic.Pointer[session] // mirror of sess for Snapshot
	sel       *selector
	pointer   int // explicit selection pointer
	chosen    bool
	advTimer  *time.Timer
	advanceCh <-chan time.Time
	message   string

	statusMu   sync.Mutex
	lastStatus Status
	onStatus   func(Status)
}

// New creates a controller. onStatus, when non-nil, is invoked after
// every state change (from the controller goroutine).
func New(cfg Config, lib *library.Library, out backend.Backend, onStatus func(Status)) *Controller {
	if cfg.AdvanceDelay <= 0 {
		cfg.AdvanceDelay = 3 * time.Second
	}
	c := &Controller{
		cfg:      cfg,
		lib:      lib,
		out:      out,
		events:   make(chan Event, 16),
		quit:     make(chan struct{}),
		sel:      newSelector(cfg.Mode, lib.Len()),
		pointer:  -1,
		onStatus: onStatus,
	}
	c.lastStatus = c.status()
	return c
}

// Events is where hotkey events arrive. Sends never block the caller.
func (c *Controller) Events() chan<- Event { return c.events }

// Quit closes when the controller has shut down.
func (c *Controller) Quit() <-chan struct{} { return c.quit }

// Snapshot returns the most recent status. Safe from any goroutine.
func (c *Controller) Snapshot() Status {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	s := c.lastStatus
	if c.sched() != nil {
		s.Elapsed = c.sched().Elapsed()
	}
	return s
}

// sched returns the active scheduler, guarded for Snapshot use.
func (c *Controller) sched() *playback.Scheduler {
	if s := c.sessRef.Load(); s != nil {
		return s.sched
	}
	return nil
}

func (c *Controller) setSession(s *session) {
	c.sess = s
	c.sessRef.Store(s)
}

func (c *Controller) clearSession() {
	c.sess = nil
	c.sessRef.Store(nil)
}

// Run processes events until Quit. It is the single writer of all
// controller state.
func (c *Controller) Run() {
	defer c.shutdown()

	for {
		var doneCh <-chan playback.Result
		if c.sess != nil {
			doneCh = c.sess.sched.Done()
		}

		select {
		case ev := <-c.events:
			if c.handle(ev) {
				return
			}
		case res := <-doneCh:
			c.handleResult(res)
		case <-c.advanceCh:
			c.advanceCh = nil
			c.advTimer = nil
			c.startNext()
		}
		c.notify()
	}
}

// handle applies one hotkey event. Returns true on quit.
func (c *Controller) handle(ev Event) bool {
	switch ev {
	case SelectPrevious:
		c.movePointer(-1)
	case SelectNext:
		c.movePointer(+1)
	case StartOrResume:
		c.startOrResume()
	case Stop:
		c.stop()
	case PauseToggle:
		c.pauseToggle()
	case Quit:
		c.teardown()
		return true
	}
	return false
}

// movePointer updates the selection pointer only; playback state never
// changes.
func (c *Controller) movePointer(dir int) {
	n := c.lib.Len()
	if n == 0 {
		c.message = "no scores found"
		return
	}
	base := c.pointer
	if base < 0 {
		base = c.sel.last
	}
	c.pointer = ((base+dir)%n + n) % n
	c.chosen = true
	c.message = "selected " + c.lib.Name(c.pointer)
}

func (c *Controller) startOrResume() {
	switch c.state {
	case Paused:
		if c.sess == nil {
			// Held in the advance gap: move on to the next track.
			c.startChosenOrNext()
			return
		}
		c.sess.sched.Resume()
		c.state = Playing
	case Playing:
		if c.sess == nil {
			// In the auto-advance gap: skip the rest of the delay.
			c.cancelAdvance()
			c.startChosenOrNext()
			return
		}
		log.Printf("controller: start ignored, already playing")
	case Stopped:
		if c.lib.Len() == 0 {
			c.message = "no scores found"
			return
		}
		c.startChosenOrNext()
	}
}

// startChosenOrNext starts an explicitly selected score when one is
// pending, otherwise advances per the selection mode.
func (c *Controller) startChosenOrNext() {
	if c.chosen {
		idx := c.pointer
		c.chosen = false
		c.sel.played(idx)
		c.startScore(idx)
		return
	}
	c.startNext()
}

func (c *Controller) stop() {
	c.cancelAdvance()
	if c.state == Stopped && c.sess == nil {
		return
	}
	c.teardown()
	c.state = Stopped
}

func (c *Controller) pauseToggle() {
	switch c.state {
	case Playing:
		if c.sess == nil {
			// Pausing during the gap holds the pending auto-advance
			// until the user starts or unpauses.
			c.cancelAdvance()
			c.state = Paused
			return
		}
		c.sess.sched.Pause()
		c.state = Paused
	case Paused:
		if c.sess == nil {
			c.startChosenOrNext()
			return
		}
		c.sess.sched.Resume()
		c.state = Playing
	case Stopped:
		log.Printf("controller: pause ignored, nothing playing")
	}
}

// handleResult reacts to the scheduler terminating on its own.
func (c *Controller) handleResult(res playback.Result) {
	finished := c.sess
	c.clearSession()

	switch {
	case res.Err != nil:
		// Device failure: surface it, stop this session, no retry.
		c.message = res.Err.Error()
		c.state = Stopped
	case res.Stopped:
		c.state = Stopped
	default:
		log.Printf("controller: %s finished, next in %v", c.lib.Name(finished.index), c.cfg.AdvanceDelay)
		c.advTimer = time.NewTimer(c.cfg.AdvanceDelay)
		c.advanceCh = c.advTimer.C
	}
}

// startNext advances per the selection mode and starts playing.
func (c *Controller) startNext() {
	if c.lib.Len() == 0 {
		c.state = Stopped
		c.message = "no scores found"
		return
	}
	c.startScore(c.sel.next())
}

// startScore builds and starts a session for index idx. Score-level
// failures (parse, unplayable, empty) skip to the next candidate
// rather than halting; only a full cycle of failures gives up.
func (c *Controller) startScore(idx int) {
	c.teardown()

	for attempt := 0; attempt < c.lib.Len(); attempt++ {
		timeline, detail, err := c.prepare(idx)
		if err != nil {
			log.Printf("controller: skipping %s: %v", c.lib.Name(idx), err)
			c.message = "skipped " + c.lib.Name(idx) + ": " + err.Error()
			idx = c.sel.next()
			continue
		}

		sess := &session{
			id:       uuid.New(),
			index:    idx,
			detail:   detail,
			timeline: timeline,
			sched:    playback.New(timeline, c.out),
		}
		c.setSession(sess)
		c.pointer = idx
		c.state = Playing
		c.message = ""
		log.Printf("controller: session %s playing %s (%s)", sess.id, c.lib.Name(idx), detail)
		sess.sched.Start()
		return
	}

	c.state = Stopped
	c.message = "no playable scores"
}

// prepare loads, analyzes, and sequences one score.
func (c *Controller) prepare(idx int) (sequence.Timeline, string, error) {
	s, err := c.lib.Load(idx)
	if err != nil {
		return nil, "", err
	}

	dec, err := analyze.Analyze(s, c.out.SupportedRange(), c.cfg.Tolerance)
	if err != nil {
		return nil, "", err
	}

	timeline, err := sequence.Build(s, dec, c.cfg.Policy)
	if err != nil {
		return nil, "", err
	}

	detail := dec.Mode.String()
	if dec.OctaveOffset != 0 {
		detail = fmt.Sprintf("%s %+d", detail, dec.OctaveOffset)
	}
	return timeline, detail, nil
}

// teardown stops the active session and waits for its NoteOff cleanup,
// so the backend is free before anything else starts.
func (c *Controller) teardown() {
	c.cancelAdvance()
	if c.sess == nil {
		return
	}
	c.sess.sched.Stop()
	<-c.sess.sched.Done()
	c.clearSession()
}

func (c *Controller) cancelAdvance() {
	if c.advTimer != nil {
		c.advTimer.Stop()
		c.advTimer = nil
		c.advanceCh = nil
	}
}

func (c *Controller) shutdown() {
	c.notify()
	c.quitOnce.Do(func() { close(c.quit) })
}

func (c *Controller) status() Status {
	st := Status{
		State:   c.state,
		Index:   c.pointer,
		Total:   c.lib.Len(),
		Mode:    c.cfg.Mode,
		Message: c.message,
	}
	if c.sess != nil {
		st.Track = c.lib.Name(c.sess.index)
		st.Detail = c.sess.detail
		st.Duration = c.sess.timeline.Duration()
		st.Elapsed = c.sess.sched.Elapsed()
	} else if c.pointer >= 0 && c.pointer < c.lib.Len() {
		st.Track = c.lib.Name(c.pointer)
	}
	return st
}

func (c *Controller) notify() {
	st := c.status()
	c.statusMu.Lock()
	c.lastStatus = st
	c.statusMu.Unlock()
	if c.onStatus != nil {
		c.onStatus(st)
	}
}
