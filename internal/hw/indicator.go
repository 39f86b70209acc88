package hw

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Indicator drives the status LED and the piezo buzzer. It serves both
// the gesture feedback outputs and the alarm sounder.
type Indicator struct {
	mu     sync.Mutex
	led    gpio.PinOut
	buzzer gpio.PinOut
}

// OpenIndicator claims the LED and buzzer output pins.
func OpenIndicator(ledPin, buzzerPin string) (*Indicator, error) {
	led := gpioreg.ByName(ledPin)
	buzzer := gpioreg.ByName(buzzerPin)
	if led == nil || buzzer == nil {
		return nil, fmt.Errorf("indicator pins %q/%q not found", ledPin, buzzerPin)
	}
	led.Out(gpio.Low)
	buzzer.Out(gpio.Low)
	return &Indicator{led: led, buzzer: buzzer}, nil
}

func (i *Indicator) SetLED(on bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.led.Out(gpio.Level(on))
}

// SetBuzzer switches the continuous alarm tone.
func (i *Indicator) SetBuzzer(on bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.buzzer.Out(gpio.Level(on))
}

// PulseBuzzer chirps three short beeps without blocking the caller.
func (i *Indicator) PulseBuzzer() {
	go func() {
		for n := 0; n < 3; n++ {
			i.SetBuzzer(true)
			time.Sleep(200 * time.Millisecond)
			i.SetBuzzer(false)
			time.Sleep(200 * time.Millisecond)
		}
	}()
}
