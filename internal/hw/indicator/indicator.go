package indicator

import (
	"sync"

	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/debug"
)

// Slot identifies one status lamp on the indicator board.
type Slot int

const (
	YawFault Slot = iota
	PitchFault
)

func (s Slot) String() string {
	switch s {
	case YawFault:
		return "yaw-fault"
	case PitchFault:
		return "pitch-fault"
	default:
		return "unknown"
	}
}

// Panel defines the abstract interface for the status indicators.
// This allows plugging in real LEDs or a mock for development on PC.
type Panel interface {
	Set(slot Slot, on bool)
	Close() error
}

// NewPanel creates an indicator panel based on the chosen mode.
// If mock is true, returns a MockPanel (for dev/test).
func NewPanel(mock bool, yawFaultPin, pitchFaultPin int) (Panel, error) {
	if mock {
		debug.Info("Using MOCK indicator panel (development mode)")
		return NewMockPanel(), nil
	}
	return NewLEDPanel(map[Slot]int{
		YawFault:   yawFaultPin,
		PitchFault: pitchFaultPin,
	})
}

// MockPanel records the last state of each slot.
type MockPanel struct {
	mu    sync.Mutex
	state map[Slot]bool
}

func NewMockPanel() *MockPanel {
	return &MockPanel{state: make(map[Slot]bool)}
}

func (p *MockPanel) Set(slot Slot, on bool) {
	debug.Trace("indicator %s = %v", slot, on)
	p.mu.Lock()
	p.state[slot] = on
	p.mu.Unlock()
}

// Get returns the last state set for the slot.
func (p *MockPanel) Get(slot Slot) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state[slot]
}

func (p *MockPanel) Close() error {
	debug.Trace("indicator close (mock)")
	return nil
}
