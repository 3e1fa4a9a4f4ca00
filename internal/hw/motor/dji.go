package motor

import (
	"encoding/binary"
	"sync"
	"time"

	"go.einride.tech/can"

	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/debug"
	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/hw/canbus"
)

// CommandGroup owns the shared 8-byte command frame for up to four
// motors on one CAN ID. DJI speed controllers read their own 2-byte
// slot out of the shared frame, so motors on the same command ID must
// write through the same group.
type CommandGroup struct {
	bus canbus.Bus
	id  uint32

	mu   sync.Mutex
	data can.Data
}

// NewCommandGroup creates a command group for the given frame ID.
func NewCommandGroup(bus canbus.Bus, id uint32) *CommandGroup {
	return &CommandGroup{bus: bus, id: id}
}

// setSlot writes one motor's output into its slot and retransmits the
// whole frame, preserving sibling slots.
func (g *CommandGroup) setSlot(slot int, value int16) error {
	g.mu.Lock()
	binary.BigEndian.PutUint16(g.data[slot*2:], uint16(value))
	frame := can.Frame{ID: g.id, Length: 8, Data: g.data}
	g.mu.Unlock()
	return g.bus.TransmitFrame(frame)
}

// DJIConfig holds the bus identity of a DJI speed-controlled motor.
type DJIConfig struct {
	Name           string
	FeedbackID     uint32        // CAN ID of the controller's feedback frame
	CommandSlot    int           // 2-byte slot inside the shared command frame (0-3)
	OfflineTimeout time.Duration // no feedback for this long = offline
}

// maxCommand is the limit of the controller's signed command range.
const maxCommand = 16384

// DJI drives one DJI speed controller (C620/GM6020 family) over a CAN
// bus. Feedback frames carry the wrapped rotor angle (0-8191), the
// rotor speed in RPM and the torque current; commands are 16-bit
// values packed into a shared frame per controller group.
type DJI struct {
	group *CommandGroup
	cfg   DJIConfig
	now   func() time.Time

	mu           sync.Mutex
	encoder      uint16
	rpm          int16
	lastFeedback time.Time
}

// NewDJI creates a motor on the given bus and subscribes to its
// feedback frames.
func NewDJI(bus canbus.Bus, group *CommandGroup, cfg DJIConfig) *DJI {
	if cfg.OfflineTimeout <= 0 {
		cfg.OfflineTimeout = 100 * time.Millisecond
	}
	m := &DJI{
		group: group,
		cfg:   cfg,
		now:   time.Now,
	}
	bus.Subscribe(cfg.FeedbackID, m.handleFeedback)
	return m
}

func (m *DJI) handleFeedback(frame can.Frame) {
	if frame.Length < 4 {
		return
	}
	encoder := binary.BigEndian.Uint16(frame.Data[0:2])
	rpm := int16(binary.BigEndian.Uint16(frame.Data[2:4]))

	m.mu.Lock()
	wasOnline := m.onlineLocked()
	m.encoder = encoder
	m.rpm = rpm
	m.lastFeedback = m.now()
	m.mu.Unlock()

	if !wasOnline {
		debug.Fault(m.cfg.Name, true)
	}
}

func (m *DJI) Initialize() error {
	m.SetDesiredOutput(0)
	return nil
}

func (m *DJI) SetDesiredOutput(value float64) {
	cmd := value
	if cmd > maxCommand {
		cmd = maxCommand
	} else if cmd < -maxCommand {
		cmd = -maxCommand
	}
	debug.Command(m.cfg.Name, cmd)
	if err := m.group.setSlot(m.cfg.CommandSlot, int16(cmd)); err != nil {
		debug.Error(err)
	}
}

func (m *DJI) EncoderWrapped() uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.encoder
}

func (m *DJI) RPM() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.rpm)
}

func (m *DJI) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.onlineLocked()
}

func (m *DJI) onlineLocked() bool {
	if m.lastFeedback.IsZero() {
		return false
	}
	return m.now().Sub(m.lastFeedback) < m.cfg.OfflineTimeout
}

func (m *DJI) Name() string { return m.cfg.Name }
