package imu

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/debug"
)

// MPU6500 register map (subset).
const (
	regPwrMgmt1   = 0x6B
	regWhoAmI     = 0x75
	regAccelXoutH = 0x3B

	whoAmIMPU6500 = 0x70
)

// MPU6500 reads orientation from an MPU6500 over I2C.
// Pitch is derived from the accelerometer tilt; yaw holds the seeded
// reference value (no magnetometer on this board).
type MPU6500 struct {
	dev *i2c.Dev

	mu        sync.Mutex
	seedYaw   float64
	seedPitch float64
}

// NewMPU6500 opens the named I2C bus ("" = first available) and wakes
// the sensor.
func NewMPU6500(busName string, addr uint16) (*MPU6500, error) {
	debug.Info("Initializing MPU6500 IMU (bus=%q addr=%#x)", busName, addr)

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}
	dev := &i2c.Dev{Addr: addr, Bus: bus}

	var who [1]byte
	if err := dev.Tx([]byte{regWhoAmI}, who[:]); err != nil {
		return nil, fmt.Errorf("read WHO_AM_I: %w", err)
	}
	if who[0] != whoAmIMPU6500 {
		debug.Info("Unexpected WHO_AM_I %#x (continuing)", who[0])
	}

	// Wake from sleep, auto-select clock source.
	if err := dev.Tx([]byte{regPwrMgmt1, 0x01}, nil); err != nil {
		return nil, fmt.Errorf("wake sensor: %w", err)
	}

	return &MPU6500{dev: dev}, nil
}

func (m *MPU6500) Pose() (float64, float64, error) {
	var raw [6]byte
	if err := m.dev.Tx([]byte{regAccelXoutH}, raw[:]); err != nil {
		return 0, 0, fmt.Errorf("read accel: %w", err)
	}
	ax := float64(int16(binary.BigEndian.Uint16(raw[0:2])))
	ay := float64(int16(binary.BigEndian.Uint16(raw[2:4])))
	az := float64(int16(binary.BigEndian.Uint16(raw[4:6])))

	// Tilt from gravity: pitch = atan2(-ax, sqrt(ay^2 + az^2)).
	pitch := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	m.mu.Lock()
	yaw := m.seedYaw
	m.mu.Unlock()
	return yaw, pitch, nil
}

func (m *MPU6500) Seed(yaw, pitch float64) {
	m.mu.Lock()
	m.seedYaw, m.seedPitch = yaw, pitch
	m.mu.Unlock()
}
