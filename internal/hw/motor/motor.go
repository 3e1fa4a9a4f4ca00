package motor

import "sync"

// Motor is the high-level interface used by the control code.
// It represents an abstract speed-controlled gimbal motor, regardless
// of how it's driven (CAN speed controller, simulator, etc.).
type Motor interface {
	// Initialize prepares the motor and commands zero output.
	Initialize() error
	// SetDesiredOutput commands a raw speed output. The value is
	// clamped to the controller's command range.
	SetDesiredOutput(value float64)
	// EncoderWrapped returns the latest wrapped rotor position sample
	// (counts, resets every mechanical revolution).
	EncoderWrapped() uint16
	// RPM returns the latest measured rotor speed.
	RPM() float64
	// Online reports whether the motor is currently communicating.
	Online() bool
	Name() string
}

// Mock is a test implementation with settable sensor state and a
// recorded output history.
type Mock struct {
	mu      sync.Mutex
	name    string
	encoder uint16
	rpm     float64
	online  bool
	outputs []float64
}

// NewMock creates a mock motor that reports online by default.
func NewMock(name string) *Mock {
	return &Mock{name: name, online: true}
}

func (m *Mock) Initialize() error {
	m.SetDesiredOutput(0)
	return nil
}

func (m *Mock) SetDesiredOutput(value float64) {
	m.mu.Lock()
	m.outputs = append(m.outputs, value)
	m.mu.Unlock()
}

func (m *Mock) EncoderWrapped() uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.encoder
}

func (m *Mock) RPM() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rpm
}

func (m *Mock) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *Mock) Name() string { return m.name }

// SetEncoder sets the wrapped encoder sample returned to the controller.
func (m *Mock) SetEncoder(v uint16) {
	m.mu.Lock()
	m.encoder = v
	m.mu.Unlock()
}

// SetRPM sets the measured speed returned to the controller.
func (m *Mock) SetRPM(v float64) {
	m.mu.Lock()
	m.rpm = v
	m.mu.Unlock()
}

// SetOnline sets the reported health state.
func (m *Mock) SetOnline(v bool) {
	m.mu.Lock()
	m.online = v
	m.mu.Unlock()
}

// LastOutput returns the most recent commanded output, or 0 if none.
func (m *Mock) LastOutput() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.outputs) == 0 {
		return 0
	}
	return m.outputs[len(m.outputs)-1]
}

// Outputs returns a copy of every commanded output.
func (m *Mock) Outputs() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.outputs...)
}
