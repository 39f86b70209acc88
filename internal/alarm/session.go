// Package alarm drives the due-reminder lifecycle: the scheduler finds a
// matching reminder and opens a session, the resolver rings until a
// gesture or a timeout resolves it, and the button controller may steal
// the resolution. Exactly one party wins the cleanup via the phase tag.
package alarm

import (
	"sync"
	"sync/atomic"
	"time"
)

// Phase is the alarm handshake state tag.
type Phase int32

const (
	// PhaseIdle: no alarm in flight.
	PhaseIdle Phase = iota
	// PhaseRinging: an alarm is active and still unresolved.
	PhaseRinging
	// PhaseResolving: one party has claimed the resolution and owns the
	// cleanup. Everyone else backs off.
	PhaseResolving
)

// Session is the shared alarm handshake between the scheduler, the
// resolver, and the button controller.
type Session struct {
	phase atomic.Int32
	gen   atomic.Uint64

	start chan struct{}
	done  chan struct{}

	mu          sync.Mutex
	index       int
	startedAt   time.Time
	snoozeIndex int
	snoozeUntil time.Time
}

func NewSession() *Session {
	return &Session{
		start:       make(chan struct{}, 1),
		done:        make(chan struct{}, 1),
		snoozeIndex: -1,
	}
}

// Phase returns the current handshake tag.
func (s *Session) Phase() Phase { return Phase(s.phase.Load()) }

// Begin opens a session for the reminder at the given store index. It
// fails when another alarm is already in flight.
func (s *Session) Begin(index int, now time.Time) bool {
	if !s.phase.CompareAndSwap(int32(PhaseIdle), int32(PhaseRinging)) {
		return false
	}
	s.gen.Add(1)
	s.mu.Lock()
	s.index = index
	s.startedAt = now
	s.mu.Unlock()
	select {
	case s.start <- struct{}{}:
	default:
	}
	return true
}

// Generation identifies which Begin the current session belongs to. A
// handler that captured an older generation is working a dead session.
func (s *Session) Generation() uint64 { return s.gen.Load() }

// TryResolve claims the resolution of whatever session rings right now.
// The winner must eventually call Finish; losers get false and must not
// touch the alarm further.
func (s *Session) TryResolve() bool {
	return s.phase.CompareAndSwap(int32(PhaseRinging), int32(PhaseResolving))
}

// TryResolveOwn claims the resolution only while the session opened with
// the captured generation is still the live one. A stale handler that
// raced a Finish-then-Begin gets false and the new session rings on.
// Begin cannot run while the phase is held at Resolving, so the
// generation read after the swap is stable.
func (s *Session) TryResolveOwn(gen uint64) bool {
	if !s.phase.CompareAndSwap(int32(PhaseRinging), int32(PhaseResolving)) {
		return false
	}
	if s.gen.Load() != gen {
		s.phase.Store(int32(PhaseRinging))
		return false
	}
	return true
}

// Finish closes the session and releases the scheduler.
func (s *Session) Finish() {
	s.phase.Store(int32(PhaseIdle))
	select {
	case s.done <- struct{}{}:
	default:
	}
}

// Start signals once per Begin; the resolver parks on it.
func (s *Session) Start() <-chan struct{} { return s.start }

// Done signals once per Finish; the scheduler parks on it.
func (s *Session) Done() <-chan struct{} { return s.done }

// Current returns the store index and opening time of the in-flight
// session.
func (s *Session) Current() (index int, startedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index, s.startedAt
}

// ArmSnooze schedules a silent re-fire of the reminder at the given store
// index. A new snooze replaces any pending one.
func (s *Session) ArmSnooze(index int, until time.Time) {
	s.mu.Lock()
	s.snoozeIndex = index
	s.snoozeUntil = until
	s.mu.Unlock()
}

// ClearSnooze cancels any pending snooze.
func (s *Session) ClearSnooze() {
	s.mu.Lock()
	s.snoozeIndex = -1
	s.mu.Unlock()
}

// SnoozeDue reports, and consumes, a snooze whose deadline has passed.
func (s *Session) SnoozeDue(now time.Time) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snoozeIndex < 0 || now.Before(s.snoozeUntil) {
		return -1, false
	}
	idx := s.snoozeIndex
	s.snoozeIndex = -1
	return idx, true
}
