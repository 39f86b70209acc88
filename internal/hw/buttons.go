package hw

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"remindbox/internal/ui"
)

const debounceHold = 10 * time.Millisecond

// Buttons reads the four front-panel switches. Inputs are pulled up;
// a press reads low.
type Buttons struct {
	pins [4]gpio.PinIO // ok, back, next, cancel
	down [4]bool
	last [4]time.Time
}

// OpenButtons claims the four named GPIO pins.
func OpenButtons(okPin, backPin, nextPin, cancelPin string) (*Buttons, error) {
	names := [4]string{okPin, backPin, nextPin, cancelPin}
	b := &Buttons{}
	for i, name := range names {
		pin := gpioreg.ByName(name)
		if pin == nil {
			return nil, fmt.Errorf("button pin %q not found", name)
		}
		if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("configure button %q: %w", name, err)
		}
		b.pins[i] = pin
	}
	return b, nil
}

// Scan samples all four buttons and reports fresh presses. A press only
// registers after the pin has been stable low past the debounce hold.
func (b *Buttons) Scan() ui.Edges {
	var pressed [4]bool
	now := time.Now()
	for i, pin := range b.pins {
		low := pin.Read() == gpio.Low
		switch {
		case low && !b.down[i]:
			if b.last[i].IsZero() {
				b.last[i] = now
			} else if now.Sub(b.last[i]) >= debounceHold {
				b.down[i] = true
				pressed[i] = true
			}
		case !low:
			b.down[i] = false
			b.last[i] = time.Time{}
		}
	}
	return ui.Edges{OK: pressed[0], Back: pressed[1], Next: pressed[2], Cancel: pressed[3]}
}
