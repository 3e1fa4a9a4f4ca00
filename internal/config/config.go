package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MotorConfig holds the CAN identity of one gimbal motor.
type MotorConfig struct {
	Name             string `yaml:"name"`               // label used in logs
	FeedbackID       uint32 `yaml:"feedback_id"`        // CAN ID of the feedback frame
	CommandID        uint32 `yaml:"command_id"`         // CAN ID of the shared command frame
	CommandSlot      int    `yaml:"command_slot"`       // 2-byte slot inside the command frame (0-3)
	OfflineTimeoutMs int    `yaml:"offline_timeout_ms"` // no feedback for this long = offline
}

// AxisConfig holds the control-law constants for one axis.
type AxisConfig struct {
	Kp          float64 `yaml:"kp"`
	Ki          float64 `yaml:"ki"`
	Kd          float64 `yaml:"kd"`
	Scale       float64 `yaml:"scale"`         // manual stick deflection -> radians
	MinErrorRad float64 `yaml:"min_error_rad"` // position dead-zone
	MaxSpeed    float64 `yaml:"max_speed"`     // controller output clamp
	MinSpeed    float64 `yaml:"min_speed"`     // output dead-band
}

// ControlConfig groups the loop-wide constants.
type ControlConfig struct {
	LoopPeriodMs     int     `yaml:"loop_period_ms"`     // Refresh period
	InputTimeoutMs   int     `yaml:"input_timeout_ms"`   // input silence before neutral
	MotorSpeedFactor float64 `yaml:"motor_speed_factor"` // position error -> target RPM
	MaxYawErrorRad   float64 `yaml:"max_yaw_error_rad"`  // wrap-correction threshold
	GravityScalar    float64 `yaml:"gravity_scalar"`     // pitch feedforward magnitude
	LevelAngleRad    float64 `yaml:"level_angle_rad"`    // pitch reference for level
	StartingPitchRad float64 `yaml:"starting_pitch_rad"` // calibration seed for the IMU
}

// CANConfig describes how to reach the motor bus.
type CANConfig struct {
	Interface string `yaml:"interface"` // e.g. "can0"
	Mock      bool   `yaml:"mock"`      // use mock bus (true=dev/test, false=real hardware)
}

// IMUConfig describes the mounted IMU.
// Type selects a concrete implementation (e.g., "mpu6500").
type IMUConfig struct {
	Type    string `yaml:"type"`    // "mock" or "mpu6500"
	I2CBus  string `yaml:"i2c_bus"` // periph bus name; "" = first available
	Address uint16 `yaml:"address"` // I2C address, e.g. 0x68
}

// IndicatorConfig holds the status lamp pins.
type IndicatorConfig struct {
	Mock          bool `yaml:"mock"`
	YawFaultPin   int  `yaml:"yaw_fault_pin"`   // lit while the yaw motor is offline
	PitchFaultPin int  `yaml:"pitch_fault_pin"` // lit while the pitch motor is offline
}

// VisionConfig describes the MQTT bridge delivering tracking offsets.
type VisionConfig struct {
	Broker   string `yaml:"broker"`    // e.g. "tcp://localhost:1883"; "" = disabled
	Topic    string `yaml:"topic"`     // offsets topic
	ClientID string `yaml:"client_id"` // MQTT client id
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	EncoderResolution int `yaml:"encoder_resolution"` // counts per mechanical revolution
	DebugLevel        int `yaml:"debug_level"`        // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
}

// Config aggregates all application configuration.
type Config struct {
	CAN        CANConfig       `yaml:"can"`
	YawMotor   MotorConfig     `yaml:"yaw_motor"`
	PitchMotor MotorConfig     `yaml:"pitch_motor"`
	Yaw        AxisConfig      `yaml:"yaw"`
	Pitch      AxisConfig      `yaml:"pitch"`
	Control    ControlConfig   `yaml:"control"`
	IMU        IMUConfig       `yaml:"imu"`
	Indicators IndicatorConfig `yaml:"indicators"`
	Vision     VisionConfig    `yaml:"vision"`
	Defaults   DefaultsConfig  `yaml:"defaults"`
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	// Basic validation
	if cfg.YawMotor.FeedbackID == 0 {
		return nil, fmt.Errorf("yaw_motor.feedback_id is required")
	}
	if cfg.PitchMotor.FeedbackID == 0 {
		return nil, fmt.Errorf("pitch_motor.feedback_id is required")
	}
	if cfg.YawMotor.CommandSlot < 0 || cfg.YawMotor.CommandSlot > 3 {
		return nil, fmt.Errorf("yaw_motor.command_slot must be 0-3, got %d", cfg.YawMotor.CommandSlot)
	}
	if cfg.PitchMotor.CommandSlot < 0 || cfg.PitchMotor.CommandSlot > 3 {
		return nil, fmt.Errorf("pitch_motor.command_slot must be 0-3, got %d", cfg.PitchMotor.CommandSlot)
	}
	if cfg.Control.MaxYawErrorRad < 0 || cfg.Control.MaxYawErrorRad > 2*math.Pi {
		return nil, fmt.Errorf("control.max_yaw_error_rad must be within [0, 2pi], got %.4f", cfg.Control.MaxYawErrorRad)
	}
	if cfg.Defaults.EncoderResolution < 0 {
		return nil, fmt.Errorf("encoder_resolution must be positive, got %d", cfg.Defaults.EncoderResolution)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults fills zero-valued fields with reasonable values.
func applyDefaults(cfg *Config) {
	if cfg.CAN.Interface == "" {
		cfg.CAN.Interface = "can0"
	}
	if cfg.YawMotor.Name == "" {
		cfg.YawMotor.Name = "Yaw Motor"
	}
	if cfg.PitchMotor.Name == "" {
		cfg.PitchMotor.Name = "Pitch Motor"
	}
	if cfg.YawMotor.CommandID == 0 {
		cfg.YawMotor.CommandID = 0x1FF
	}
	if cfg.PitchMotor.CommandID == 0 {
		cfg.PitchMotor.CommandID = 0x1FF
	}
	if cfg.YawMotor.OfflineTimeoutMs <= 0 {
		cfg.YawMotor.OfflineTimeoutMs = 100
	}
	if cfg.PitchMotor.OfflineTimeoutMs <= 0 {
		cfg.PitchMotor.OfflineTimeoutMs = 100
	}
	if cfg.Defaults.EncoderResolution == 0 {
		cfg.Defaults.EncoderResolution = 8192 // DJI rotor encoder
	}
	if cfg.Control.LoopPeriodMs <= 0 {
		cfg.Control.LoopPeriodMs = 2
	}
	if cfg.Control.InputTimeoutMs <= 0 {
		cfg.Control.InputTimeoutMs = 250
	}
	if cfg.Control.MotorSpeedFactor == 0 {
		cfg.Control.MotorSpeedFactor = 1000
	}
	if cfg.Control.MaxYawErrorRad == 0 {
		cfg.Control.MaxYawErrorRad = math.Pi // pick the shorter rotational path
	}
	if cfg.Yaw.Scale == 0 {
		cfg.Yaw.Scale = 0.02
	}
	if cfg.Pitch.Scale == 0 {
		cfg.Pitch.Scale = 0.02
	}
	if cfg.Yaw.MaxSpeed == 0 {
		cfg.Yaw.MaxSpeed = 16000
	}
	if cfg.Pitch.MaxSpeed == 0 {
		cfg.Pitch.MaxSpeed = 16000
	}
	if cfg.IMU.Type == "" {
		cfg.IMU.Type = "mock"
	}
	if cfg.IMU.Address == 0 {
		cfg.IMU.Address = 0x68
	}
	if cfg.Vision.Topic == "" {
		cfg.Vision.Topic = "gimbal/cv/offset"
	}
	if cfg.Vision.ClientID == "" {
		cfg.Vision.ClientID = "gimbal-cv-subscriber"
	}
}

// LoopPeriod returns the control cycle period.
func (c *Config) LoopPeriod() time.Duration {
	return time.Duration(c.Control.LoopPeriodMs) * time.Millisecond
}

// InputTimeout returns how long input silence is tolerated before the
// gimbal is put in neutral.
func (c *Config) InputTimeout() time.Duration {
	return time.Duration(c.Control.InputTimeoutMs) * time.Millisecond
}

// YawOfflineTimeout returns the yaw motor feedback timeout.
func (c *Config) YawOfflineTimeout() time.Duration {
	return time.Duration(c.YawMotor.OfflineTimeoutMs) * time.Millisecond
}

// PitchOfflineTimeout returns the pitch motor feedback timeout.
func (c *Config) PitchOfflineTimeout() time.Duration {
	return time.Duration(c.PitchMotor.OfflineTimeoutMs) * time.Millisecond
}
