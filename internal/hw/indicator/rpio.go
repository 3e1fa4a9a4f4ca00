package indicator

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/debug"
)

// LEDPanel is the real implementation driving LEDs through go-rpio.
// Requires access to /dev/gpiomem or root.
type LEDPanel struct {
	pins map[Slot]rpio.Pin
}

// NewLEDPanel maps slots to BCM pin numbers and configures them as
// outputs, initially off.
func NewLEDPanel(pins map[Slot]int) (*LEDPanel, error) {
	debug.Info("Initializing LED indicator panel (go-rpio)")

	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open GPIO: %w (are you running on a Raspberry Pi?)", err)
	}

	p := &LEDPanel{pins: make(map[Slot]rpio.Pin)}
	for slot, num := range pins {
		pin := rpio.Pin(num)
		pin.Output()
		pin.Low()
		p.pins[slot] = pin
	}
	return p, nil
}

func (p *LEDPanel) Set(slot Slot, on bool) {
	pin, ok := p.pins[slot]
	if !ok {
		return
	}
	debug.Trace("indicator %s = %v", slot, on)
	if on {
		pin.High()
	} else {
		pin.Low()
	}
}

func (p *LEDPanel) Close() error {
	debug.Trace("indicator close (rpio)")

	// Leave lamps off on exit.
	for _, pin := range p.pins {
		pin.Low()
	}
	return rpio.Close()
}
