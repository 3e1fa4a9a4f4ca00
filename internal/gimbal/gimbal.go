package gimbal

import (
	"math"
	"sync"
	"time"

	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/control"
	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/debug"
	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/hw/imu"
	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/hw/indicator"
	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/hw/motor"
)

// Config holds the control-law constants for the gimbal.
type Config struct {
	EncoderResolution int // counts per mechanical revolution

	MotorSpeedFactor float64 // position error (rad) -> target rotor speed (RPM)
	MaxYawError      float64 // wrap-correction threshold, near pi

	YawMinimumRads   float64 // yaw position dead-zone
	PitchMinimumRads float64 // pitch position dead-zone
	MaxYawSpeed      float64 // yaw output clamp
	MinYawSpeed      float64 // yaw output dead-band
	MaxPitchSpeed    float64 // pitch output clamp
	MinPitchSpeed    float64 // pitch output dead-band

	YawScale   float64 // manual stick deflection -> radians
	PitchScale float64

	GravityScalar float64 // pitch feedforward magnitude
	LevelAngle    float64 // pitch reference for level
	StartingPitch float64 // calibration seed for the IMU
}

// Deps are the external capabilities the gimbal borrows. Motors, speed
// controllers, IMU and indicator panel are injected so the controller
// can run against hardware or mocks.
type Deps struct {
	YawMotor   motor.Motor
	PitchMotor motor.Motor
	YawSpeed   control.SpeedController
	PitchSpeed control.SpeedController
	IMU        imu.IMU
	Panel      indicator.Panel
	// Now returns monotonic milliseconds. Defaults to a clock anchored
	// at construction time.
	Now func() int64
}

// State is a read-only copy of the gimbal state for telemetry.
type State struct {
	CurrentYaw     float64 `json:"current_yaw"`
	CurrentPitch   float64 `json:"current_pitch"`
	TargetYaw      float64 `json:"target_yaw"`
	TargetPitch    float64 `json:"target_pitch"`
	StartingYaw    float64 `json:"starting_yaw"`
	StartingPitch  float64 `json:"starting_pitch"`
	YawOutput      float64 `json:"yaw_output"`
	PitchOutput    float64 `json:"pitch_output"`
	YawOnline      bool    `json:"yaw_online"`
	PitchOnline    bool    `json:"pitch_online"`
	HasActiveInput bool    `json:"has_active_input"`
	CycleMs        int64   `json:"cycle_ms"`
	IMUYaw         float64 `json:"imu_yaw"`
	IMUPitch       float64 `json:"imu_pitch"`
}

// Gimbal converts a desired orientation into motor speed commands for
// the yaw and pitch axes, compensating for angular wrap-around,
// gravitational torque on pitch and sensor/actuator dropout.
//
// All state is owned by the gimbal and mutated only through its own
// transitions. Inputs may arrive from other goroutines (web, vision
// bridge), so every transition runs under the mutex.
type Gimbal struct {
	cfg  Config
	deps Deps

	mu sync.Mutex

	currentYaw, currentPitch   float64
	targetYaw, targetPitch     float64
	startingYaw, startingPitch float64

	lastCycleMs int64
	cycleMs     int64

	initialized    bool
	hasActiveInput bool
	lastInputMs    int64

	// Transient per-cycle control state, kept only for telemetry.
	yawError, pitchError   float64
	yawOutput, pitchOutput float64
	yawOnline, pitchOnline bool
	imuYaw, imuPitch       float64
}

// MonotonicClock returns a millisecond clock anchored at the call.
func MonotonicClock() func() int64 {
	start := time.Now()
	return func() int64 {
		return time.Since(start).Milliseconds()
	}
}

// New wires a gimbal controller. Initialize must be called once before
// the first Refresh.
func New(deps Deps, cfg Config) *Gimbal {
	if deps.Now == nil {
		deps.Now = MonotonicClock()
	}
	if cfg.EncoderResolution <= 0 {
		cfg.EncoderResolution = 8192
	}
	if cfg.MaxYawError <= 0 {
		cfg.MaxYawError = math.Pi
	}
	return &Gimbal{cfg: cfg, deps: deps}
}

// Initialize performs the one-time calibration read and zeroes both
// outputs. The encoder values sampled here become the calibration
// reference for the lifetime of the controller.
func (g *Gimbal) Initialize() {
	g.mu.Lock()
	defer g.mu.Unlock()

	// The calibration reference is written exactly once.
	if g.initialized {
		return
	}
	g.initialized = true

	g.lastCycleMs = g.deps.Now()

	if g.deps.IMU != nil {
		g.deps.IMU.Seed(0, g.cfg.StartingPitch+g.cfg.LevelAngle)
	}

	if err := g.deps.YawMotor.Initialize(); err != nil {
		debug.Error(err)
	}
	g.deps.YawMotor.SetDesiredOutput(0)
	if err := g.deps.PitchMotor.Initialize(); err != nil {
		debug.Error(err)
	}
	g.deps.PitchMotor.SetDesiredOutput(0)

	g.startingYaw = WrappedEncoderToRadians(g.deps.YawMotor.EncoderWrapped(), g.cfg.EncoderResolution)
	g.startingPitch = WrappedEncoderToRadians(g.deps.PitchMotor.EncoderWrapped(), g.cfg.EncoderResolution)
	g.currentYaw = g.startingYaw
	g.currentPitch = g.startingPitch
	g.targetYaw = g.startingYaw
	g.targetPitch = g.startingPitch

	debug.Info("Gimbal calibrated: yaw=%.4f pitch=%.4f", g.startingYaw, g.startingPitch)
}

// Refresh advances the controller by one cycle: sense, arbitrate,
// control. It must be called periodically and never blocks.
func (g *Gimbal) Refresh() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.deps.Now()
	dt := now - g.lastCycleMs
	g.lastCycleMs = now
	// Guard the speed controllers against irregular call intervals.
	if dt < 1 {
		dt = 1
	} else if dt > 100 {
		dt = 100
	}
	g.cycleMs = dt

	g.yawOnline = g.deps.YawMotor.Online()
	g.pitchOnline = g.deps.PitchMotor.Online()
	if g.deps.Panel != nil {
		g.deps.Panel.Set(indicator.YawFault, !g.yawOnline)
		g.deps.Panel.Set(indicator.PitchFault, !g.pitchOnline)
	}

	if g.deps.IMU != nil {
		if yaw, pitch, err := g.deps.IMU.Pose(); err == nil {
			g.imuYaw, g.imuPitch = yaw, pitch
		}
	}

	if !g.hasActiveInput {
		// No command source: targets track the measurement so input
		// resumption cannot lurch, outputs stay zero.
		g.targetYaw = g.currentYaw
		g.targetPitch = g.currentPitch
		g.commandZeroLocked()
		return
	}

	if g.yawOnline {
		speed := g.deps.YawMotor.RPM()
		g.currentYaw = WrappedEncoderToRadians(g.deps.YawMotor.EncoderWrapped(), g.cfg.EncoderResolution)
		g.updateYawLocked(speed, dt)
	}
	if g.pitchOnline {
		speed := g.deps.PitchMotor.RPM()
		g.currentPitch = WrappedEncoderToRadians(g.deps.PitchMotor.EncoderWrapped(), g.cfg.EncoderResolution)
		g.updatePitchLocked(speed, dt)
	}
}

// updateYawLocked runs the yaw position-to-speed cascade: wrap-corrected
// position error scaled into a target rotor speed, tracked by the speed
// controller, clamped and dead-banded.
func (g *Gimbal) updateYawLocked(measuredRPM float64, dtMs int64) {
	err := wrapError(g.targetYaw-g.currentYaw, g.cfg.MaxYawError)
	g.yawError = err

	if math.Abs(err) < g.cfg.YawMinimumRads {
		// Inside the dead-zone: hold still rather than hunt.
		g.yawOutput = 0
		g.deps.YawMotor.SetDesiredOutput(0)
		return
	}

	g.deps.YawSpeed.RunController(err*g.cfg.MotorSpeedFactor, measuredRPM, time.Duration(dtMs)*time.Millisecond)
	out := clamp(g.deps.YawSpeed.Output(), -g.cfg.MaxYawSpeed, g.cfg.MaxYawSpeed)
	if -g.cfg.MinYawSpeed < out && out < g.cfg.MinYawSpeed {
		out = 0
	}
	g.yawOutput = out
	g.deps.YawMotor.SetDesiredOutput(out)
	debug.Cycle("yaw", err, out, dtMs)
}

// updatePitchLocked is the pitch cascade: no wrap correction (the axis
// is physically bounded), with gravity feedforward added to the clamped
// controller output before the final dead-band.
func (g *Gimbal) updatePitchLocked(measuredRPM float64, dtMs int64) {
	err := g.targetPitch - g.currentPitch
	g.pitchError = err

	var out float64
	if math.Abs(err) >= g.cfg.PitchMinimumRads {
		g.deps.PitchSpeed.RunController(err*g.cfg.MotorSpeedFactor, measuredRPM, time.Duration(dtMs)*time.Millisecond)
		out = clamp(g.deps.PitchSpeed.Output(), -g.cfg.MaxPitchSpeed, g.cfg.MaxPitchSpeed)
	}

	out += g.gravityCompensationLocked()
	if -g.cfg.MinPitchSpeed < out && out < g.cfg.MinPitchSpeed {
		out = 0
	}
	g.pitchOutput = out
	g.deps.PitchMotor.SetDesiredOutput(out)
	debug.Cycle("pitch", err, out, dtMs)
}

// gravityCompensationLocked approximates the torque needed to hold the
// gimbal against gravity as a function of tilt from the level
// reference, pre-cancelling the disturbance instead of leaving it to
// the feedback loop.
func (g *Gimbal) gravityCompensationLocked() float64 {
	tilt := clamp(g.currentPitch-g.cfg.LevelAngle, -math.Pi, math.Pi)
	return g.cfg.GravityScalar * math.Cos(tilt)
}

func (g *Gimbal) commandZeroLocked() {
	g.yawOutput = 0
	g.pitchOutput = 0
	g.deps.YawMotor.SetDesiredOutput(0)
	g.deps.PitchMotor.SetDesiredOutput(0)
}

// ControllerInput accumulates manual stick deflection into the targets.
// Repeated small inputs integrate smoothly instead of snapping to an
// absolute angle.
func (g *Gimbal) ControllerInput(yawDelta, pitchDelta float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.targetYaw = normalizeAngle(g.targetYaw + yawDelta*g.cfg.YawScale)
	g.targetPitch = normalizeAngle(g.targetPitch + pitchDelta*g.cfg.PitchScale)
	g.markInputLocked()
	debug.Input("manual", yawDelta, pitchDelta)
}

// CVInput applies a vision tracking offset. Offsets are relative to the
// measured orientation, not the possibly-stale target, so repeated
// corrections cannot accumulate into a runaway. Values outside
// (-2pi, 2pi) are saturated to the bound.
func (g *Gimbal) CVInput(yawOffset, pitchOffset float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	yawOffset = clamp(yawOffset, -twoPi, twoPi)
	pitchOffset = clamp(pitchOffset, -twoPi, twoPi)
	g.targetYaw = normalizeAngle(g.currentYaw + yawOffset)
	g.targetPitch = normalizeAngle(g.currentPitch + pitchOffset)
	g.markInputLocked()
	debug.Input("cv", yawOffset, pitchOffset)
}

// Neutral signals loss of the command source: outputs are zeroed
// immediately and targets track the measurement on following cycles.
func (g *Gimbal) Neutral() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.hasActiveInput {
		debug.Live("Input lost, gimbal neutral")
	}
	g.hasActiveInput = false
	g.commandZeroLocked()
}

func (g *Gimbal) markInputLocked() {
	g.hasActiveInput = true
	g.lastInputMs = g.deps.Now()
}

// HasActiveInput reports whether any input arrived since the last
// Neutral call.
func (g *Gimbal) HasActiveInput() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hasActiveInput
}

// MsSinceInput returns milliseconds since the last input, or a large
// value if none was ever received.
func (g *Gimbal) MsSinceInput() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastInputMs == 0 && !g.hasActiveInput {
		return math.MaxInt64
	}
	return g.deps.Now() - g.lastInputMs
}

// Snapshot returns a copy of the state for telemetry.
func (g *Gimbal) Snapshot() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return State{
		CurrentYaw:     g.currentYaw,
		CurrentPitch:   g.currentPitch,
		TargetYaw:      g.targetYaw,
		TargetPitch:    g.targetPitch,
		StartingYaw:    g.startingYaw,
		StartingPitch:  g.startingPitch,
		YawOutput:      g.yawOutput,
		PitchOutput:    g.pitchOutput,
		YawOnline:      g.yawOnline,
		PitchOnline:    g.pitchOnline,
		HasActiveInput: g.hasActiveInput,
		CycleMs:        g.cycleMs,
		IMUYaw:         g.imuYaw,
		IMUPitch:       g.imuPitch,
	}
}
