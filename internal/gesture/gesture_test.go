package gesture

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSampler struct{ v int }

func (s *stubSampler) Sample() (int, error) { return s.v, nil }

type fakeIndicator struct {
	mu     sync.Mutex
	led    bool
	pulses int
}

func (f *fakeIndicator) SetLED(on bool) {
	f.mu.Lock()
	f.led = on
	f.mu.Unlock()
}

func (f *fakeIndicator) PulseBuzzer() {
	f.mu.Lock()
	f.pulses++
	f.mu.Unlock()
}

func (f *fakeIndicator) ledOn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.led
}

func newEnabled(t *testing.T, ind Indicator) *Recognizer {
	t.Helper()
	r, err := New(Config{LightThreshold: 2000}, &stubSampler{v: 3000}, ind, nil)
	require.NoError(t, err)
	r.Enable()
	return r
}

func drain(r *Recognizer) []Outcome {
	var out []Outcome
	for {
		select {
		case o := <-r.Outcomes():
			out = append(out, o)
		default:
			return out
		}
	}
}

// swipe feeds an occlusion of the given hold length ending at end.
func swipe(r *Recognizer, end time.Time, hold time.Duration) {
	r.Observe(100, end.Add(-hold))
	r.Observe(3000, end)
}

func TestNewRequiresSampler(t *testing.T) {
	_, err := New(Config{}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrNilSampler)
}

func TestShortOcclusionIsBounce(t *testing.T) {
	r := newEnabled(t, nil)
	t0 := time.Now()
	swipe(r, t0, 10*time.Millisecond)
	assert.Empty(t, drain(r))
}

func TestSingleSwipeThenWindowExpiry(t *testing.T) {
	ind := &fakeIndicator{}
	r := newEnabled(t, ind)
	t0 := time.Now()

	swipe(r, t0, 60*time.Millisecond)
	assert.Equal(t, []Outcome{OutcomeSingle}, drain(r))
	assert.True(t, ind.ledOn())

	// Nothing more inside the window.
	r.Observe(3000, t0.Add(2*time.Second))
	assert.Empty(t, drain(r))

	// Past the window the lone swipe resolves as a timeout.
	r.Observe(3000, t0.Add(5100*time.Millisecond))
	assert.Equal(t, []Outcome{OutcomeTimeout}, drain(r))
	assert.False(t, ind.ledOn())
}

func TestDoubleSwipe(t *testing.T) {
	ind := &fakeIndicator{}
	r := newEnabled(t, ind)
	t0 := time.Now()

	swipe(r, t0, 60*time.Millisecond)
	swipe(r, t0.Add(time.Second), 60*time.Millisecond)

	assert.Equal(t, []Outcome{OutcomeSingle, OutcomeDouble}, drain(r))
	assert.False(t, ind.ledOn())
	assert.Equal(t, 1, ind.pulses)
}

func TestSwipeAfterDoubleStartsFresh(t *testing.T) {
	r := newEnabled(t, nil)
	t0 := time.Now()
	swipe(r, t0, 60*time.Millisecond)
	swipe(r, t0.Add(time.Second), 60*time.Millisecond)
	drain(r)

	swipe(r, t0.Add(2*time.Second), 60*time.Millisecond)
	assert.Equal(t, []Outcome{OutcomeSingle}, drain(r))
}

func TestDisabledRecognizerIgnoresInput(t *testing.T) {
	r := newEnabled(t, nil)
	r.Disable()
	swipe(r, time.Now(), 60*time.Millisecond)
	assert.Empty(t, drain(r))
	assert.False(t, r.Enabled())
}

func TestEnableResetsSessionAndFlushesOutcomes(t *testing.T) {
	r := newEnabled(t, nil)
	t0 := time.Now()
	swipe(r, t0, 60*time.Millisecond)
	require.NotEmpty(t, drain(r))
	swipe(r, t0.Add(time.Second), 60*time.Millisecond)

	r.Disable()
	r.Enable()
	assert.Empty(t, drain(r))

	// A swipe after re-arming counts as the first of a new pair.
	swipe(r, t0.Add(3*time.Second), 60*time.Millisecond)
	assert.Equal(t, []Outcome{OutcomeSingle}, drain(r))
}

func TestDebounceBoundary(t *testing.T) {
	r := newEnabled(t, nil)
	t0 := time.Now()
	// Exactly the debounce hold counts as a swipe.
	swipe(r, t0, 50*time.Millisecond)
	assert.Equal(t, []Outcome{OutcomeSingle}, drain(r))
}
