package gimbal

import (
	"math"
	"testing"
	"time"

	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/hw/imu"
	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/hw/indicator"
	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/hw/motor"
)

// fakeSpeed is a deterministic speed controller: out = gain * (target - measured).
type fakeSpeed struct {
	gain         float64
	out          float64
	calls        int
	lastTarget   float64
	lastMeasured float64
	lastDt       time.Duration
	forced       *float64 // when set, Output returns this instead
}

func (f *fakeSpeed) RunController(target, measured float64, dt time.Duration) {
	f.calls++
	f.lastTarget = target
	f.lastMeasured = measured
	f.lastDt = dt
	f.out = f.gain * (target - measured)
}

func (f *fakeSpeed) Output() float64 {
	if f.forced != nil {
		return *f.forced
	}
	return f.out
}

type fakeClock struct {
	ms int64
}

func (c *fakeClock) now() int64 { return c.ms }

type fixture struct {
	g            *Gimbal
	yawM, pitchM *motor.Mock
	yawS, pitchS *fakeSpeed
	panel        *indicator.MockPanel
	imu          *imu.Mock
	clock        *fakeClock
}

func defaultConfig() Config {
	return Config{
		EncoderResolution: 8192,
		MotorSpeedFactor:  1000,
		MaxYawError:       math.Pi,
		YawMinimumRads:    0.05,
		PitchMinimumRads:  0.05,
		MaxYawSpeed:       5000,
		MinYawSpeed:       100,
		MaxPitchSpeed:     5000,
		MinPitchSpeed:     100,
		YawScale:          0.5,
		PitchScale:        0.5,
		GravityScalar:     500,
		LevelAngle:        0,
		StartingPitch:     0,
	}
}

func newFixture(cfg Config) *fixture {
	f := &fixture{
		yawM:   motor.NewMock("yaw"),
		pitchM: motor.NewMock("pitch"),
		yawS:   &fakeSpeed{gain: 1},
		pitchS: &fakeSpeed{gain: 1},
		panel:  indicator.NewMockPanel(),
		imu:    imu.NewMock(),
		clock:  &fakeClock{},
	}
	f.yawM.SetEncoder(4096)  // pi
	f.pitchM.SetEncoder(2048) // pi/2
	f.g = New(Deps{
		YawMotor:   f.yawM,
		PitchMotor: f.pitchM,
		YawSpeed:   f.yawS,
		PitchSpeed: f.pitchS,
		IMU:        f.imu,
		Panel:      f.panel,
		Now:        f.clock.now,
	}, cfg)
	return f
}

// refresh advances the clock by 2ms and runs one cycle.
func (f *fixture) refresh() {
	f.clock.ms += 2
	f.g.Refresh()
}

func TestInitialize_CalibrationReference(t *testing.T) {
	f := newFixture(defaultConfig())
	f.g.Initialize()

	s := f.g.Snapshot()
	if math.Abs(s.StartingYaw-math.Pi) > 1e-9 {
		t.Errorf("StartingYaw = %v, want pi", s.StartingYaw)
	}
	if math.Abs(s.StartingPitch-math.Pi/2) > 1e-9 {
		t.Errorf("StartingPitch = %v, want pi/2", s.StartingPitch)
	}
	if s.CurrentYaw != s.StartingYaw || s.TargetYaw != s.StartingYaw {
		t.Error("current and target yaw must equal the calibration reference")
	}
	if f.yawM.LastOutput() != 0 || f.pitchM.LastOutput() != 0 {
		t.Error("both motors must be zeroed at initialization")
	}
}

func TestCVInput_RelativeToCurrentAngle(t *testing.T) {
	f := newFixture(defaultConfig())
	f.g.Initialize()

	// Disturb the target first: vision offsets must ignore it.
	f.g.ControllerInput(1.0, 0)

	f.g.CVInput(0.1, 0)
	s := f.g.Snapshot()
	if math.Abs(s.TargetYaw-(math.Pi+0.1)) > 1e-9 {
		t.Errorf("TargetYaw = %v, want pi + 0.1", s.TargetYaw)
	}
}

func TestCVInput_OffsetSaturated(t *testing.T) {
	f := newFixture(defaultConfig())
	f.g.Initialize()

	// |offset| >= 2pi saturates to the bound: one full turn lands back
	// on the current angle.
	f.g.CVInput(100, -100)
	s := f.g.Snapshot()
	if math.Abs(s.TargetYaw-s.CurrentYaw) > 1e-9 {
		t.Errorf("TargetYaw = %v, want current %v after saturated offset", s.TargetYaw, s.CurrentYaw)
	}
	if math.Abs(s.TargetPitch-s.CurrentPitch) > 1e-9 {
		t.Errorf("TargetPitch = %v, want current %v after saturated offset", s.TargetPitch, s.CurrentPitch)
	}
}

func TestControllerInput_Accumulates(t *testing.T) {
	f := newFixture(defaultConfig())
	f.g.Initialize()
	before := f.g.Snapshot().TargetYaw

	d := 0.1
	f.g.ControllerInput(d, 0)
	f.g.ControllerInput(d, 0)

	s := f.g.Snapshot()
	want := before + 2*d*defaultConfig().YawScale
	if math.Abs(s.TargetYaw-want) > 1e-9 {
		t.Errorf("TargetYaw = %v, want %v (accumulated)", s.TargetYaw, want)
	}
}

func TestNeutral_Stability(t *testing.T) {
	f := newFixture(defaultConfig())
	f.g.Initialize()
	f.g.ControllerInput(1.0, 1.0)
	f.refresh()

	f.g.Neutral()
	if f.yawM.LastOutput() != 0 || f.pitchM.LastOutput() != 0 {
		t.Error("Neutral must zero both motors immediately")
	}

	f.refresh()
	s := f.g.Snapshot()
	if s.TargetYaw != s.CurrentYaw {
		t.Errorf("TargetYaw = %v, want current %v after neutral refresh", s.TargetYaw, s.CurrentYaw)
	}
	if s.TargetPitch != s.CurrentPitch {
		t.Errorf("TargetPitch = %v, want current %v after neutral refresh", s.TargetPitch, s.CurrentPitch)
	}
	if f.yawM.LastOutput() != 0 || f.pitchM.LastOutput() != 0 {
		t.Error("motor commands must stay zero without input")
	}
}

func TestYaw_DeadZoneSkipsController(t *testing.T) {
	f := newFixture(defaultConfig())
	f.g.Initialize()

	// Error below YawMinimumRads: 0.01 rad.
	f.g.CVInput(0.01, 0)
	f.refresh()

	if f.yawS.calls != 0 {
		t.Errorf("speed controller ran %d times inside the dead-zone", f.yawS.calls)
	}
	if got := f.yawM.LastOutput(); got != 0 {
		t.Errorf("yaw output = %v, want exactly 0 inside dead-zone", got)
	}
}

func TestYaw_WrapCorrection(t *testing.T) {
	cfg := defaultConfig()
	f := newFixture(cfg)
	f.yawM.SetEncoder(100) // ~0.0767 rad
	f.g.Initialize()

	// Target just below a full turn: raw error ~ +6.1, shorter path is
	// a small negative rotation.
	cur := f.g.Snapshot().CurrentYaw
	f.g.CVInput(6.2-cur, 0) // target = 6.2 before clamp/normalize
	f.refresh()

	wantErr := wrapError(6.2-cur, cfg.MaxYawError)
	if wantErr >= 0 {
		t.Fatalf("test setup wrong: corrected error %v not negative", wantErr)
	}
	if f.yawS.calls != 1 {
		t.Fatalf("speed controller calls = %d, want 1", f.yawS.calls)
	}
	if math.Abs(f.yawS.lastTarget-wantErr*cfg.MotorSpeedFactor) > 1e-6 {
		t.Errorf("target speed = %v, want %v", f.yawS.lastTarget, wantErr*cfg.MotorSpeedFactor)
	}
}

func TestYaw_JogAcrossWrap(t *testing.T) {
	cfg := defaultConfig()
	f := newFixture(cfg)
	f.yawM.SetEncoder(8100) // just below a full turn, ~6.212 rad
	f.g.Initialize()

	// Repeated negative jogs of 1 rad walk the target backwards across
	// zero. The target must stay in the encoder's range and the error
	// fed to the speed loop must be the shorter path, not a near-full
	// turn in the wrong direction.
	for i := 0; i < 11; i++ {
		f.g.ControllerInput(-1.0/cfg.YawScale, 0)
	}

	s := f.g.Snapshot()
	if s.TargetYaw < 0 || s.TargetYaw >= twoPi {
		t.Fatalf("TargetYaw = %v, outside [0, 2pi)", s.TargetYaw)
	}

	f.refresh()
	if f.yawS.calls != 1 {
		t.Fatalf("speed controller calls = %d, want 1", f.yawS.calls)
	}
	fed := f.yawS.lastTarget / cfg.MotorSpeedFactor
	if math.Abs(fed) > cfg.MaxYawError+1e-9 {
		t.Errorf("corrected error %v exceeds %v", fed, cfg.MaxYawError)
	}
	if fed <= 0 {
		t.Errorf("corrected error = %v, want positive (shorter path crosses the wrap)", fed)
	}
	want := wrapError(s.TargetYaw-s.CurrentYaw, cfg.MaxYawError)
	if math.Abs(fed-want) > 1e-6 {
		t.Errorf("corrected error = %v, want shorter path %v", fed, want)
	}
}

func TestYaw_OutputClampedAndDeadBanded(t *testing.T) {
	cfg := defaultConfig()
	f := newFixture(cfg)
	f.g.Initialize()
	f.g.CVInput(1.0, 0)

	// Controller asks for more than the clamp allows.
	huge := 1e6
	f.yawS.forced = &huge
	f.refresh()
	if got := f.yawM.LastOutput(); got != cfg.MaxYawSpeed {
		t.Errorf("yaw output = %v, want clamp at %v", got, cfg.MaxYawSpeed)
	}

	// Output inside the dead-band is actively zeroed, not latched.
	small := 50.0
	f.yawS.forced = &small
	f.g.CVInput(1.0, 0)
	f.refresh()
	if got := f.yawM.LastOutput(); got != 0 {
		t.Errorf("yaw output = %v, want 0 below MinYawSpeed", got)
	}
}

func TestPitch_GravityCompensation(t *testing.T) {
	cfg := defaultConfig()
	f := newFixture(cfg)
	f.g.Initialize()

	// Pitch error inside the dead-zone: output is the feedforward term
	// alone. current pitch = pi/2, level angle 0 -> cos(pi/2) ~ 0,
	// which is inside the dead-band, so the command is zero.
	f.g.CVInput(0, 0.01)
	f.refresh()
	if got := f.pitchM.LastOutput(); got != 0 {
		t.Errorf("pitch output = %v, want 0 (gravity term ~0 at vertical)", got)
	}

	// Level gimbal: cos(0) = 1, feedforward is the full scalar.
	f2 := newFixture(cfg)
	f2.pitchM.SetEncoder(0)
	f2.g.Initialize()
	f2.g.CVInput(0, 0.01)
	f2.refresh()
	if got := f2.pitchM.LastOutput(); math.Abs(got-cfg.GravityScalar) > 1e-9 {
		t.Errorf("pitch output = %v, want gravity scalar %v at level", got, cfg.GravityScalar)
	}
}

func TestGravityTerm_Bounded(t *testing.T) {
	cfg := defaultConfig()
	f := newFixture(cfg)
	f.g.Initialize()

	for pitch := -10.0; pitch <= 10.0; pitch += 0.1 {
		f.g.currentPitch = pitch
		term := f.g.gravityCompensationLocked()
		if term < -cfg.GravityScalar || term > cfg.GravityScalar {
			t.Fatalf("gravity term %v out of [-%v, %v] at pitch %v", term, cfg.GravityScalar, cfg.GravityScalar, pitch)
		}
	}
}

func TestRefresh_OfflineIsolation(t *testing.T) {
	f := newFixture(defaultConfig())
	f.g.Initialize()
	f.g.CVInput(0.5, 0.5)

	before := f.g.Snapshot()
	f.yawM.SetOnline(false)
	f.yawM.SetEncoder(1234) // would move currentYaw if it were read
	f.refresh()

	after := f.g.Snapshot()
	if after.CurrentYaw != before.CurrentYaw {
		t.Errorf("CurrentYaw changed while yaw offline: %v -> %v", before.CurrentYaw, after.CurrentYaw)
	}
	if after.TargetYaw != before.TargetYaw {
		t.Errorf("TargetYaw changed while yaw offline: %v -> %v", before.TargetYaw, after.TargetYaw)
	}
	if f.yawS.calls != 0 {
		t.Error("yaw control must be skipped while the motor is offline")
	}

	// Pitch proceeds normally.
	if f.pitchS.calls != 1 {
		t.Errorf("pitch controller calls = %d, want 1", f.pitchS.calls)
	}
	if !f.panel.Get(indicator.YawFault) {
		t.Error("yaw fault indicator must be lit")
	}
	if f.panel.Get(indicator.PitchFault) {
		t.Error("pitch fault indicator must be off")
	}
}

func TestRefresh_CycleDurationClamped(t *testing.T) {
	f := newFixture(defaultConfig())
	f.g.Initialize()
	f.g.CVInput(0.5, 0)

	// Scheduler hiccup: 10 seconds between cycles must not feed the
	// controllers a 10s step.
	f.clock.ms += 10000
	f.g.Refresh()
	if f.yawS.lastDt != 100*time.Millisecond {
		t.Errorf("dt = %v, want clamped to 100ms", f.yawS.lastDt)
	}

	// Same-millisecond call gets at least 1ms.
	f.g.CVInput(0.5, 0)
	f.g.Refresh()
	if f.yawS.lastDt != 1*time.Millisecond {
		t.Errorf("dt = %v, want floor of 1ms", f.yawS.lastDt)
	}
}

func TestEndToEnd_CalibrationAndVision(t *testing.T) {
	// Encoder resolution 8192, wrapped reading 4096 -> angle = pi.
	f := newFixture(defaultConfig())
	f.g.Initialize()

	s := f.g.Snapshot()
	if math.Abs(s.StartingYaw-math.Pi) > 1e-9 {
		t.Fatalf("StartingYaw = %v, want pi", s.StartingYaw)
	}

	f.g.CVInput(0.1, 0)
	s = f.g.Snapshot()
	if math.Abs(s.TargetYaw-(math.Pi+0.1)) > 1e-6 {
		t.Errorf("TargetYaw = %v, want ~pi + 0.1", s.TargetYaw)
	}
}

func TestIMU_SeededAtCalibration(t *testing.T) {
	cfg := defaultConfig()
	cfg.StartingPitch = 0.2
	cfg.LevelAngle = 0.1
	f := newFixture(cfg)
	f.g.Initialize()

	yaw, pitch, err := f.imu.Pose()
	if err != nil {
		t.Fatal(err)
	}
	if yaw != 0 {
		t.Errorf("seeded IMU yaw = %v, want 0", yaw)
	}
	if math.Abs(pitch-0.3) > 1e-9 {
		t.Errorf("seeded IMU pitch = %v, want 0.3", pitch)
	}
}

func TestMsSinceInput(t *testing.T) {
	f := newFixture(defaultConfig())
	f.g.Initialize()

	if f.g.MsSinceInput() != math.MaxInt64 {
		t.Error("MsSinceInput before any input must report never")
	}

	f.clock.ms = 100
	f.g.ControllerInput(0.1, 0)
	f.clock.ms = 180
	if got := f.g.MsSinceInput(); got != 80 {
		t.Errorf("MsSinceInput = %d, want 80", got)
	}
	if !f.g.HasActiveInput() {
		t.Error("HasActiveInput must be true after manual input")
	}
}
