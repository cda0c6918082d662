// ABOUTME: GPIO-backed Line implementation using periph.io host drivers.
// ABOUTME: Configures the pin as a pulled-down input; the button drives it HIGH.

package sampler

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// GPIOLine reads a physical input pin. The pin is configured with a pull-down
// resistor, so the line idles LOW and a press pulls it HIGH. Polling only:
// edge interrupts are deliberately not requested.
type GPIOLine struct {
	pin gpio.PinIn
}

// OpenLine initializes the host drivers and claims the named pin as input.
// Names follow periph.io conventions (e.g. "GPIO4").
func OpenLine(name string) (*GPIOLine, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initializing host drivers: %w", err)
	}

	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("no such pin: %q", name)
	}

	if err := pin.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configuring pin %q as input: %w", name, err)
	}

	return &GPIOLine{pin: pin}, nil
}

// Read returns true while the line is HIGH.
func (l *GPIOLine) Read() (bool, error) {
	return l.pin.Read() == gpio.High, nil
}
