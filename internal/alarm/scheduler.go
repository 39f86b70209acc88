package alarm

import (
	"context"
	"log/slog"
	"time"

	"remindbox/internal/clock"
	"remindbox/internal/screen"
	"remindbox/internal/store"
	"remindbox/internal/timeutil"
)

// DueNotifier is told about every reminder that fires, before the alarm
// session opens. Implementations must not block.
type DueNotifier interface {
	ReminderDue(r store.Reminder)
}

// DefaultTick is the scheduler poll interval.
const DefaultTick = 100 * time.Millisecond

// Scheduler watches the clock and opens an alarm session when a reminder
// matches the current minute. While a session is in flight the scheduler
// blocks, so at most one alarm rings at a time.
type Scheduler struct {
	store    *store.Store
	session  *Session
	clk      clock.Clock
	scr      *screen.Screen
	state    *screen.State
	notifier DueNotifier
	log      *slog.Logger

	Tick time.Duration

	lastMinute int
}

// NewScheduler wires the scheduler. notifier may be nil.
func NewScheduler(st *store.Store, sess *Session, clk clock.Clock, scr *screen.Screen, state *screen.State, notifier DueNotifier, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		store:      st,
		session:    sess,
		clk:        clk,
		scr:        scr,
		state:      state,
		notifier:   notifier,
		log:        log.With("component", "scheduler"),
		Tick:       DefaultTick,
		lastMinute: -1,
	}
}

// Run drives the scheduler until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		s.Step(ctx)
	}
}

// Step runs one scheduler tick. Exposed so tests can drive the loop with
// a fake clock.
func (s *Scheduler) Step(ctx context.Context) {
	if !s.clk.Synced() {
		return
	}
	now := s.clk.Now()

	if s.state.Idle() && !s.scr.AlarmShown() {
		s.scr.DrawIdle(now, s.nextUpcoming(now))
	}

	if now.Minute() != s.lastMinute {
		s.lastMinute = now.Minute()
		today := timeutil.DateOf(now)
		if r, idx, ok := s.store.FindDue(today, now.Hour(), now.Minute()); ok {
			s.fire(ctx, r, idx, now)
			return
		}
	}

	// Snoozes only re-fire while nothing else rings.
	if s.session.Phase() == PhaseIdle {
		if idx, ok := s.session.SnoozeDue(now); ok {
			if r, err := s.store.Get(idx); err == nil {
				s.log.Info("snooze expired", "id", r.ID)
				s.fire(ctx, r, idx, now)
			}
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, r store.Reminder, idx int, now time.Time) {
	if !s.session.Begin(idx, now) {
		return
	}
	// A live alarm supersedes any armed snooze.
	s.session.ClearSnooze()
	s.log.Info("reminder due", "id", r.ID, "content", r.Content,
		"time", timeutil.FormatTime(r.Hour, r.Minute))
	if s.notifier != nil {
		s.notifier.ReminderDue(r)
	}
	if s.state.Idle() {
		s.scr.ShowAlarm(r)
	}
	select {
	case <-ctx.Done():
	case <-s.session.Done():
	}
}

// nextUpcoming picks the soonest reminder that can still fire today, for
// the idle screen teaser.
func (s *Scheduler) nextUpcoming(now time.Time) *store.Reminder {
	today := timeutil.DateOf(now)
	nowMin := now.Hour()*60 + now.Minute()
	var best *store.Reminder
	bestMin := 0
	for _, r := range s.store.Snapshot() {
		if r.Status == store.StatusCompleted {
			continue
		}
		if r.Status != store.StatusRepeat && r.Date != today {
			continue
		}
		m := r.Hour*60 + r.Minute
		if m < nowMin {
			continue
		}
		if best == nil || m < bestMin {
			rc := r
			best = &rc
			bestMin = m
		}
	}
	return best
}
