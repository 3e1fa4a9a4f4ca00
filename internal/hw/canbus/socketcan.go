package canbus

import (
	"context"
	"fmt"
	"net"
	"sync"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"

	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/debug"
)

// SocketCAN is the real implementation using the Linux SocketCAN stack.
type SocketCAN struct {
	conn net.Conn
	tx   *socketcan.Transmitter
	rx   *socketcan.Receiver

	mu       sync.Mutex
	handlers map[uint32][]Handler
}

// NewSocketCAN opens the given CAN interface (e.g. "can0").
// Requires a configured SocketCAN interface on the host.
func NewSocketCAN(iface string) (*SocketCAN, error) {
	debug.Info("Opening SocketCAN interface %s", iface)

	conn, err := socketcan.DialContext(context.Background(), "can", iface)
	if err != nil {
		return nil, fmt.Errorf("failed to open CAN interface %s: %w", iface, err)
	}

	return &SocketCAN{
		conn:     conn,
		tx:       socketcan.NewTransmitter(conn),
		rx:       socketcan.NewReceiver(conn),
		handlers: make(map[uint32][]Handler),
	}, nil
}

func (s *SocketCAN) TransmitFrame(frame can.Frame) error {
	debug.Frame("tx", frame.ID, frame.Data[:])
	return s.tx.TransmitFrame(context.Background(), frame)
}

func (s *SocketCAN) Subscribe(id uint32, h Handler) {
	s.mu.Lock()
	s.handlers[id] = append(s.handlers[id], h)
	s.mu.Unlock()
}

// Run receives frames and dispatches them to subscribers until ctx is
// cancelled or the receiver fails.
func (s *SocketCAN) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close() // unblocks rx.Receive
		case <-done:
		}
	}()

	for s.rx.Receive() {
		frame := s.rx.Frame()
		debug.Frame("rx", frame.ID, frame.Data[:])

		s.mu.Lock()
		hs := append([]Handler(nil), s.handlers[frame.ID]...)
		s.mu.Unlock()
		for _, h := range hs {
			h(frame)
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return s.rx.Err()
}

func (s *SocketCAN) Close() error {
	debug.Trace("CAN close (socketcan)")
	return s.conn.Close()
}
