package imu

import (
	"fmt"
	"sync"

	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/debug"
)

// IMU is anything that can report the gimbal body orientation.
// The controller seeds it once at calibration and samples it for
// telemetry; it is not part of the control law.
type IMU interface {
	// Pose returns the current yaw and pitch in radians.
	Pose() (yaw, pitch float64, err error)
	// Seed sets the reference orientation at calibration time.
	Seed(yaw, pitch float64)
}

// New selects an IMU implementation based on the configured type string.
func New(typ, i2cBus string, addr uint16) (IMU, error) {
	switch typ {
	case "mock":
		debug.Info("Using MOCK IMU (development mode)")
		return NewMock(), nil
	case "mpu6500":
		return NewMPU6500(i2cBus, addr)
	default:
		return nil, fmt.Errorf("unsupported imu type: %s", typ)
	}
}

// Mock is a test implementation that returns whatever it was seeded
// or set with.
type Mock struct {
	mu         sync.Mutex
	yaw, pitch float64
}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Pose() (float64, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.yaw, m.pitch, nil
}

func (m *Mock) Seed(yaw, pitch float64) {
	m.mu.Lock()
	m.yaw, m.pitch = yaw, pitch
	m.mu.Unlock()
}

// SetPose overrides the reported orientation (for tests).
func (m *Mock) SetPose(yaw, pitch float64) {
	m.Seed(yaw, pitch)
}
