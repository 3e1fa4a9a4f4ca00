package canbus

import (
	"context"
	"sync"

	"go.einride.tech/can"

	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/debug"
)

// Handler is invoked for every received frame matching a subscription.
// Handlers run on the bus receive goroutine and must not block.
type Handler func(frame can.Frame)

// Bus defines the abstract interface for the motor CAN bus.
// This allows plugging in a real SocketCAN implementation
// or a mock for development on PC.
type Bus interface {
	// TransmitFrame queues a frame for transmission. Non-blocking
	// from the caller's point of view; transmit failures are
	// surfaced through the returned error.
	TransmitFrame(frame can.Frame) error
	// Subscribe registers a handler for frames with the given CAN ID.
	Subscribe(id uint32, h Handler)
	// Run pumps received frames to subscribers until ctx is cancelled.
	Run(ctx context.Context) error
	Close() error
}

// NewBus creates a CAN bus based on the chosen mode.
// If mock is true, returns a MockBus (for dev/test).
// If mock is false, returns a real SocketCAN bus on the given interface.
func NewBus(mock bool, iface string) (Bus, error) {
	if mock {
		debug.Info("Using MOCK CAN bus (development mode)")
		return NewMockBus(), nil
	}
	return NewSocketCAN(iface)
}

// MockBus is a test implementation that records transmitted frames and
// lets tests inject received frames.
type MockBus struct {
	mu       sync.Mutex
	sent     []can.Frame
	handlers map[uint32][]Handler
}

func NewMockBus() *MockBus {
	return &MockBus{
		handlers: make(map[uint32][]Handler),
	}
}

func (m *MockBus) TransmitFrame(frame can.Frame) error {
	debug.Frame("tx", frame.ID, frame.Data[:])
	m.mu.Lock()
	m.sent = append(m.sent, frame)
	m.mu.Unlock()
	return nil
}

func (m *MockBus) Subscribe(id uint32, h Handler) {
	m.mu.Lock()
	m.handlers[id] = append(m.handlers[id], h)
	m.mu.Unlock()
}

// Inject dispatches a frame to subscribers as if it arrived on the wire.
func (m *MockBus) Inject(frame can.Frame) {
	debug.Frame("rx", frame.ID, frame.Data[:])
	m.mu.Lock()
	hs := append([]Handler(nil), m.handlers[frame.ID]...)
	m.mu.Unlock()
	for _, h := range hs {
		h(frame)
	}
}

// Sent returns a copy of all transmitted frames.
func (m *MockBus) Sent() []can.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]can.Frame(nil), m.sent...)
}

// LastSent returns the most recently transmitted frame with the given ID.
func (m *MockBus) LastSent(id uint32) (can.Frame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].ID == id {
			return m.sent[i], true
		}
	}
	return can.Frame{}, false
}

func (m *MockBus) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (m *MockBus) Close() error {
	debug.Trace("CAN close (mock)")
	return nil
}
