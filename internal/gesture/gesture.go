// Package gesture classifies hand-swipes over a photoresistor. A swipe is
// a momentary occlusion-then-clearance of the sensor: the reading drops
// below the light threshold, stays there at least the debounce time, and
// comes back up. Two swipes inside the double-swipe window form a double
// swipe.
package gesture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"remindbox/internal/clock"
)

// Outcome is the 3-way classification delivered to the consumer.
type Outcome int

const (
	// OutcomeTimeout: a single swipe was seen and no second swipe
	// arrived inside the double-swipe window.
	OutcomeTimeout Outcome = 0
	// OutcomeSingle: first swipe of a possible pair; the recognizer
	// keeps listening for the second.
	OutcomeSingle Outcome = 1
	// OutcomeDouble: two swipes inside the double-swipe window.
	OutcomeDouble Outcome = 2
)

// Sampler reads one raw light sample. Transient failures are expected and
// absorbed by averaging.
type Sampler interface {
	Sample() (int, error)
}

// Indicator drives the physical feedback outputs. Implementations must
// not block.
type Indicator interface {
	SetLED(on bool)
	PulseBuzzer()
}

var ErrNilSampler = errors.New("gesture: nil sampler")

// Config carries the calibration constants of the recognizer.
type Config struct {
	LightThreshold    int
	Debounce          time.Duration
	DoubleSwipeWindow time.Duration
	ScanInterval      time.Duration
	Samples           int
}

func (c *Config) withDefaults() {
	if c.LightThreshold <= 0 {
		c.LightThreshold = 2000
	}
	if c.Debounce <= 0 {
		c.Debounce = 50 * time.Millisecond
	}
	if c.DoubleSwipeWindow <= 0 {
		c.DoubleSwipeWindow = 5 * time.Second
	}
	if c.ScanInterval <= 0 {
		c.ScanInterval = 20 * time.Millisecond
	}
	if c.Samples <= 0 {
		c.Samples = 8
	}
}

// Recognizer owns the gesture session state. It is armed and disarmed by
// the alarm resolver; sampling never runs while disarmed.
type Recognizer struct {
	cfg     Config
	sampler Sampler
	ind     Indicator
	log     *slog.Logger

	mu         sync.Mutex
	enabled    bool
	swipeCount int
	lastSwipe  time.Time
	below      bool
	belowSince time.Time
	ledOn      bool

	out chan Outcome
}

// New builds a disarmed recognizer. ind may be nil.
func New(cfg Config, sampler Sampler, ind Indicator, log *slog.Logger) (*Recognizer, error) {
	if sampler == nil {
		return nil, ErrNilSampler
	}
	if log == nil {
		log = slog.Default()
	}
	cfg.withDefaults()
	return &Recognizer{
		cfg:     cfg,
		sampler: sampler,
		ind:     ind,
		log:     log.With("component", "gesture"),
		out:     make(chan Outcome, 4),
	}, nil
}

// Outcomes is the channel the recognizer delivers classifications on. The
// channel is buffered; outcomes nobody consumes are dropped.
func (r *Recognizer) Outcomes() <-chan Outcome { return r.out }

// Enable arms the recognizer with a fresh gesture session. Idempotent.
func (r *Recognizer) Enable() {
	r.mu.Lock()
	r.resetLocked()
	r.enabled = true
	r.mu.Unlock()
	// Stale outcomes from a previous session must not leak into this one.
	for {
		select {
		case <-r.out:
		default:
			r.log.Info("scanning enabled")
			return
		}
	}
}

// Disable disarms the recognizer and resets the gesture session. Idempotent.
func (r *Recognizer) Disable() {
	r.mu.Lock()
	r.enabled = false
	r.resetLocked()
	r.mu.Unlock()
	r.log.Info("scanning disabled")
}

// Enabled reports whether the recognizer is armed.
func (r *Recognizer) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

func (r *Recognizer) resetLocked() {
	r.swipeCount = 0
	r.below = false
	if r.ledOn {
		r.ledOn = false
		if r.ind != nil {
			r.ind.SetLED(false)
		}
	}
}

// Run drives the sampling loop until ctx is done. Reads that fail outright
// are skipped and retried on the next tick.
func (r *Recognizer) Run(ctx context.Context, clk clock.Clock) {
	ticker := time.NewTicker(r.cfg.ScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !r.Enabled() {
			continue
		}
		value, ok := r.read()
		if !ok {
			r.log.Warn("sensor read failed, retrying next tick")
			continue
		}
		r.Observe(value, clk.Now())
	}
}

// read averages the configured number of samples, discarding failed ones.
// It reports false only when every sample failed.
func (r *Recognizer) read() (int, bool) {
	sum, valid := 0, 0
	for i := 0; i < r.cfg.Samples; i++ {
		v, err := r.sampler.Sample()
		if err != nil {
			continue
		}
		sum += v
		valid++
	}
	if valid == 0 {
		return 0, false
	}
	return sum / valid, true
}

// Observe feeds one averaged sample with its timestamp through the swipe
// detector. Safe to call directly; no-op while disarmed.
func (r *Recognizer) Observe(value int, now time.Time) {
	r.mu.Lock()
	outcome, fired := r.observeLocked(value, now)
	r.mu.Unlock()
	if fired {
		r.emit(outcome)
	}
}

func (r *Recognizer) observeLocked(value int, now time.Time) (Outcome, bool) {
	if !r.enabled {
		return 0, false
	}

	// A lone swipe expires once the double-swipe window passes.
	if r.swipeCount == 1 && r.ledOn && now.Sub(r.lastSwipe) >= r.cfg.DoubleSwipeWindow {
		r.setLEDLocked(false)
		r.swipeCount = 0
		r.log.Info("single swipe window expired")
		return OutcomeTimeout, true
	}

	switch {
	case value < r.cfg.LightThreshold && !r.below:
		r.below = true
		r.belowSince = now

	case value >= r.cfg.LightThreshold && r.below:
		held := now.Sub(r.belowSince)
		r.below = false
		if held < r.cfg.Debounce {
			// Too short to be a hand; treat as sensor bounce.
			return 0, false
		}
		if r.swipeCount == 0 || now.Sub(r.lastSwipe) <= r.cfg.DoubleSwipeWindow {
			r.swipeCount++
		} else {
			r.swipeCount = 1
		}
		r.lastSwipe = now
		if r.swipeCount == 1 {
			r.setLEDLocked(true)
			return OutcomeSingle, true
		}
		r.setLEDLocked(false)
		r.swipeCount = 0
		if r.ind != nil {
			r.ind.PulseBuzzer()
		}
		return OutcomeDouble, true
	}
	return 0, false
}

func (r *Recognizer) setLEDLocked(on bool) {
	if r.ledOn == on {
		return
	}
	r.ledOn = on
	if r.ind != nil {
		r.ind.SetLED(on)
	}
}

func (r *Recognizer) emit(o Outcome) {
	select {
	case r.out <- o:
	default:
		r.log.Warn("outcome dropped, consumer not keeping up", "outcome", int(o))
	}
}
