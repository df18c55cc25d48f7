// Package autosave debounces note-text edits and commits the latest value
// to storage, exposing a tri-state status per session:
//
//	idle → saving → saved → idle
//
// An edit enters saving and schedules a commit after the debounce window.
// Further edits inside the window reschedule it, so one quiescent period
// produces exactly one storage write carrying the last text. Commits for a
// session never overlap: a debounce window that elapses while a write is
// in flight queues its text and runs immediately after, which keeps writes
// strictly ordered per session.
package autosave

import (
	"context"
	"sync"
	"time"

	"github.com/clarifio/clarifio/internal/logging"
	"github.com/clarifio/clarifio/internal/timex"
)

// Status is the observable autosave state of one session.
type Status int

const (
	StatusIdle Status = iota
	StatusSaving
	StatusSaved
)

func (s Status) String() string {
	switch s {
	case StatusSaving:
		return "saving"
	case StatusSaved:
		return "saved"
	default:
		return "idle"
	}
}

const (
	// DefaultDebounce is the quiet period required after the last edit
	// before the commit fires.
	DefaultDebounce = 1000 * time.Millisecond
	// DefaultDisplay is how long the "saved" status is shown before the
	// session returns to idle.
	DefaultDisplay = 2000 * time.Millisecond
)

// Saver issues the storage write for a session's notes.
type Saver interface {
	SaveNotes(ctx context.Context, sessionID, notes string, updatedAt time.Time) error
}

// Engine coordinates debounced autosave across sessions.
type Engine struct {
	saver    Saver
	clock    timex.Clock
	log      logging.Logger
	debounce time.Duration
	display  time.Duration
	onStatus func(sessionID string, st Status)

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	lastCommitted string
	pendingText   string
	debounceTimer timex.Timer
	displayTimer  timex.Timer
	// Generation counters stamp each scheduled callback. Timer.Stop can
	// report false when the callback has already fired and is waiting on
	// e.mu; such a stale callback must not act, and the stamp is how it
	// finds out.
	debounceGen uint64
	displayGen  uint64
	status      Status
	inFlight    bool
	queued      *string
	closed      bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock swaps the timer source; tests use a virtual clock.
func WithClock(c timex.Clock) Option { return func(e *Engine) { e.clock = c } }

// WithWindows overrides the debounce and saved-display windows.
func WithWindows(debounce, display time.Duration) Option {
	return func(e *Engine) {
		e.debounce = debounce
		e.display = display
	}
}

// WithStatusFunc registers an observer invoked on every status transition.
// It is called outside the engine's lock, in transition order per session.
func WithStatusFunc(f func(sessionID string, st Status)) Option {
	return func(e *Engine) { e.onStatus = f }
}

func NewEngine(saver Saver, log logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		saver:    saver,
		clock:    timex.RealClock(),
		log:      log,
		debounce: DefaultDebounce,
		display:  DefaultDisplay,
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Track registers a session and seeds its last-committed marker with the
// notes text currently held in storage. Re-tracking an open session only
// reseeds the marker.
func (e *Engine) Track(sessionID, currentNotes string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[sessionID]
	if !ok || s.closed {
		e.sessions[sessionID] = &session{lastCommitted: currentNotes}
		return
	}
	s.lastCommitted = currentNotes
}

// Status returns the session's current autosave status.
func (e *Engine) Status(sessionID string) Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.sessions[sessionID]; ok {
		return s.status
	}
	return StatusIdle
}

// NotesChanged records an edit. If text equals the last committed value
// nothing is written; a pending commit for intermediate text is cancelled
// since the stored value is already current. Otherwise the session enters
// saving and the commit is (re)scheduled after the debounce window.
func (e *Engine) NotesChanged(sessionID, text string) {
	e.mu.Lock()
	s, ok := e.sessions[sessionID]
	if !ok {
		s = &session{}
		e.sessions[sessionID] = s
	}
	if s.closed {
		e.mu.Unlock()
		return
	}

	if text == s.lastCommitted {
		var notify func()
		if s.debounceTimer != nil {
			s.debounceTimer.Stop()
			s.debounceTimer = nil
			if !s.inFlight {
				notify = e.setStatusLocked(s, sessionID, StatusIdle)
			}
		}
		e.mu.Unlock()
		if notify != nil {
			notify()
		}
		return
	}

	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	if s.displayTimer != nil {
		s.displayTimer.Stop()
		s.displayTimer = nil
	}
	s.pendingText = text
	notify := e.setStatusLocked(s, sessionID, StatusSaving)
	s.debounceGen++
	gen := s.debounceGen
	s.debounceTimer = e.clock.AfterFunc(e.debounce, func() { e.windowElapsed(sessionID, gen) })
	e.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// Close tears down the session's editing context. A pending debounce timer
// is cancelled without committing: an edit that never reached the end of
// its window is lost by design. An in-flight write is left to finish; only
// its status transitions are suppressed.
func (e *Engine) Close(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[sessionID]
	if !ok {
		return
	}
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
		s.debounceTimer = nil
	}
	if s.displayTimer != nil {
		s.displayTimer.Stop()
		s.displayTimer = nil
	}
	s.queued = nil
	s.closed = true
	s.status = StatusIdle
}

func (e *Engine) windowElapsed(sessionID string, gen uint64) {
	e.mu.Lock()
	s, ok := e.sessions[sessionID]
	if !ok || s.closed || s.debounceTimer == nil || gen != s.debounceGen {
		// Stale firing: the window was cancelled or rescheduled after this
		// callback left the timer but before it took the lock.
		e.mu.Unlock()
		return
	}
	s.debounceTimer = nil
	text := s.pendingText
	if s.inFlight {
		// Coalesce into the next commit; it runs when the current one
		// completes, preserving write order.
		s.queued = &text
		e.mu.Unlock()
		return
	}
	e.commitLocked(s, sessionID, text)
}

// commitLocked starts a commit. Called with e.mu held; releases it.
func (e *Engine) commitLocked(s *session, sessionID, text string) {
	prev := s.lastCommitted
	// Advance the marker before the write fires so an edit arriving during
	// the in-flight write compares against the value being written and
	// re-triggers a new debounce cycle instead of being dropped.
	s.lastCommitted = text
	s.inFlight = true
	now := e.clock.Now()
	e.mu.Unlock()

	err := e.saver.SaveNotes(context.Background(), sessionID, text, now)
	e.completeCommit(sessionID, text, prev, err)
}

func (e *Engine) completeCommit(sessionID, text, prev string, err error) {
	e.mu.Lock()
	s, ok := e.sessions[sessionID]
	if !ok {
		e.mu.Unlock()
		return
	}
	s.inFlight = false

	if err != nil {
		e.log.Error(context.Background(), "autosave commit failed", "session_id", sessionID, "error", err)
		// Re-arm the marker so the same text can be retried by a later
		// edit, unless a newer value has been scheduled meanwhile.
		if s.lastCommitted == text {
			s.lastCommitted = prev
		}
	}

	if q := s.queued; q != nil {
		s.queued = nil
		if !s.closed && *q != s.lastCommitted {
			e.commitLocked(s, sessionID, *q)
			return
		}
	}

	if s.closed {
		e.mu.Unlock()
		return
	}

	var notify func()
	if err != nil {
		if s.debounceTimer == nil {
			notify = e.setStatusLocked(s, sessionID, StatusIdle)
		}
	} else if s.debounceTimer == nil {
		// No new edit has re-entered saving; show saved, then fall back
		// to idle after the display window.
		notify = e.setStatusLocked(s, sessionID, StatusSaved)
		s.displayGen++
		gen := s.displayGen
		s.displayTimer = e.clock.AfterFunc(e.display, func() { e.displayElapsed(sessionID, gen) })
	}
	e.mu.Unlock()
	if notify != nil {
		notify()
	}
}

func (e *Engine) displayElapsed(sessionID string, gen uint64) {
	e.mu.Lock()
	s, ok := e.sessions[sessionID]
	if !ok || s.closed || s.status != StatusSaved || s.displayTimer == nil || gen != s.displayGen {
		e.mu.Unlock()
		return
	}
	s.displayTimer = nil
	notify := e.setStatusLocked(s, sessionID, StatusIdle)
	e.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// setStatusLocked updates the status and returns the observer call to run
// after the lock is released.
func (e *Engine) setStatusLocked(s *session, sessionID string, st Status) func() {
	if s.status == st {
		return nil
	}
	s.status = st
	if e.onStatus == nil {
		return nil
	}
	cb := e.onStatus
	return func() { cb(sessionID, st) }
}
