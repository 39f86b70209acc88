package alarm

import (
	"context"
	"log/slog"
	"time"

	"remindbox/internal/clock"
	"remindbox/internal/gesture"
	"remindbox/internal/screen"
	"remindbox/internal/store"
)

// Sounder drives the alarm buzzer. Implementations must not block.
type Sounder interface {
	SetBuzzer(on bool)
}

// Feedback strings shown after a resolution.
const (
	FeedbackSnoozed   = "BAO LAI SAU 5 PHUT"
	FeedbackCompleted = "DA HOAN THANH"
)

const (
	// DefaultSnoozeDelay is how far a snoozed reminder is pushed out.
	DefaultSnoozeDelay = 5 * time.Minute
	// DefaultRingTimeout bounds how long an unanswered alarm rings.
	DefaultRingTimeout = 180 * time.Second

	defaultPollInterval  = 20 * time.Millisecond
	defaultFeedbackPause = 900 * time.Millisecond
)

// Resolver rings the buzzer for each alarm session and resolves it from
// swipe gestures: a lone swipe completes the reminder once its window
// expires, a double swipe snoozes it, and an unanswered alarm snoozes
// itself after the ring timeout.
type Resolver struct {
	session *Session
	store   *store.Store
	rec     *gesture.Recognizer
	scr     *screen.Screen
	state   *screen.State
	snd     Sounder
	clk     clock.Clock
	log     *slog.Logger

	SnoozeDelay   time.Duration
	RingTimeout   time.Duration
	PollInterval  time.Duration
	FeedbackPause time.Duration
}

// NewResolver wires the resolver. snd may be nil.
func NewResolver(sess *Session, st *store.Store, rec *gesture.Recognizer, scr *screen.Screen, state *screen.State, snd Sounder, clk clock.Clock, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		session:       sess,
		store:         st,
		rec:           rec,
		scr:           scr,
		state:         state,
		snd:           snd,
		clk:           clk,
		log:           log.With("component", "resolver"),
		SnoozeDelay:   DefaultSnoozeDelay,
		RingTimeout:   DefaultRingTimeout,
		PollInterval:  defaultPollInterval,
		FeedbackPause: defaultFeedbackPause,
	}
}

// Run parks until an alarm session opens, then rings it to resolution.
func (r *Resolver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.session.Start():
		}
		r.Handle(ctx)
	}
}

// Handle rings one alarm session. Exposed so tests can drive a session
// directly.
func (r *Resolver) Handle(ctx context.Context) {
	gen := r.session.Generation()
	idx, startedAt := r.session.Current()
	rem, err := r.store.Get(idx)
	if err != nil {
		// The reminder vanished between match and ring.
		r.log.Error("alarm reminder missing", "index", idx, "err", err)
		if r.session.TryResolveOwn(gen) {
			r.session.Finish()
		}
		return
	}
	r.setBuzzer(true)
	r.rec.Enable()
	r.log.Info("alarm ringing", "id", rem.ID, "content", rem.Content)

	// The ring timeout only covers a fully unanswered alarm; the first
	// swipe hands the session over to the double-swipe window.
	sawSwipe := false

	for {
		select {
		case <-ctx.Done():
			r.standDown()
			return

		case outcome := <-r.rec.Outcomes():
			switch outcome {
			case gesture.OutcomeSingle:
				sawSwipe = true
			case gesture.OutcomeTimeout:
				if r.resolveCompleted(ctx, gen, rem) {
					return
				}
			case gesture.OutcomeDouble:
				if r.resolveSnoozed(ctx, gen, rem, idx) {
					return
				}
			}

		case <-time.After(r.PollInterval):
			if r.session.Generation() != gen || r.session.Phase() != PhaseRinging {
				// Someone else resolved this session and owns cleanup;
				// anything ringing now belongs to a newer Begin.
				r.standDown()
				return
			}
			// Queued outcomes take priority over the deadline.
			if !sawSwipe && len(r.rec.Outcomes()) == 0 &&
				r.clk.Now().Sub(startedAt) >= r.RingTimeout {
				r.log.Info("alarm unanswered", "id", rem.ID)
				if r.resolveExpired(ctx, gen, rem, idx) {
					return
				}
			}
		}
	}
}

// resolveCompleted marks the reminder done. Returns false when another
// party won the resolution race.
func (r *Resolver) resolveCompleted(ctx context.Context, gen uint64, rem store.Reminder) bool {
	if !r.session.TryResolveOwn(gen) {
		return false
	}
	r.setBuzzer(false)
	if err := r.store.SetStatus(rem.ID, store.StatusCompleted); err != nil {
		r.log.Error("mark completed", "id", rem.ID, "err", err)
	}
	r.session.ClearSnooze()
	r.log.Info("reminder completed", "id", rem.ID)
	r.scr.ShowFeedback(FeedbackCompleted, screen.ColorGreen)
	r.cleanup(ctx)
	return true
}

// resolveSnoozed is the double-swipe exit: the reminder flips to daily
// repeat and a snooze is armed. A reminder that was still pending also
// gets its clock time rolled to the snooze deadline, so the repeat fires
// then rather than tomorrow.
func (r *Resolver) resolveSnoozed(ctx context.Context, gen uint64, rem store.Reminder, idx int) bool {
	if !r.session.TryResolveOwn(gen) {
		return false
	}
	r.setBuzzer(false)
	now := r.clk.Now()
	if rem.Status == store.StatusPending {
		total := now.Hour()*60 + now.Minute() + int(r.SnoozeDelay/time.Minute)
		hour, minute := (total/60)%24, total%60
		st := store.StatusRepeat
		err := r.store.Update(rem.ID, store.Patch{Hour: &hour, Minute: &minute, Status: &st})
		if err != nil {
			r.log.Error("snooze update", "id", rem.ID, "err", err)
		}
	} else if err := r.store.SetStatus(rem.ID, store.StatusRepeat); err != nil {
		r.log.Error("snooze status", "id", rem.ID, "err", err)
	}
	r.session.ArmSnooze(idx, now.Add(r.SnoozeDelay))
	r.log.Info("reminder snoozed", "id", rem.ID, "until", now.Add(r.SnoozeDelay))
	r.scr.ShowFeedback(FeedbackSnoozed, screen.ColorYellow)
	r.cleanup(ctx)
	return true
}

// resolveExpired is the ring-timeout exit: the reminder flips to daily
// repeat and a snooze is armed, but the stored clock time is left alone.
func (r *Resolver) resolveExpired(ctx context.Context, gen uint64, rem store.Reminder, idx int) bool {
	if !r.session.TryResolveOwn(gen) {
		return false
	}
	r.setBuzzer(false)
	if err := r.store.SetStatus(rem.ID, store.StatusRepeat); err != nil {
		r.log.Error("timeout status", "id", rem.ID, "err", err)
	}
	now := r.clk.Now()
	r.session.ArmSnooze(idx, now.Add(r.SnoozeDelay))
	r.log.Info("reminder snoozed after timeout", "id", rem.ID, "until", now.Add(r.SnoozeDelay))
	r.scr.ShowFeedback(FeedbackSnoozed, screen.ColorYellow)
	r.cleanup(ctx)
	return true
}

// standDown silences this resolver without closing the session; the
// resolution winner calls Finish.
func (r *Resolver) standDown() {
	r.setBuzzer(false)
	r.rec.Disable()
}

func (r *Resolver) cleanup(ctx context.Context) {
	r.rec.Disable()
	if err := r.store.Save(); err != nil {
		r.log.Error("save after resolution", "err", err)
	}
	if r.FeedbackPause > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(r.FeedbackPause):
		}
	}
	if r.state.Idle() {
		r.scr.InvalidateIdle()
	}
	r.session.Finish()
}

func (r *Resolver) setBuzzer(on bool) {
	if r.snd != nil {
		r.snd.SetBuzzer(on)
	}
}
