package control

import (
	"time"

	"github.com/felixge/pidctrl"
)

// SpeedController tracks a target rotor speed against the measured
// speed. Constructed once per axis with fixed gains; RunController is
// invoked once per control cycle with the elapsed cycle duration.
type SpeedController interface {
	RunController(targetSpeed, measuredSpeed float64, dt time.Duration)
	Output() float64
}

// PIDSpeed is a SpeedController backed by a PID loop with symmetric
// output limits.
type PIDSpeed struct {
	pid *pidctrl.PIDController
	out float64
}

// NewPIDSpeed creates a speed controller with the given gains and
// output limit (applied as [-limit, limit]).
func NewPIDSpeed(kp, ki, kd, limit float64) *PIDSpeed {
	pid := pidctrl.NewPIDController(kp, ki, kd)
	if limit > 0 {
		pid.SetOutputLimits(-limit, limit)
	}
	return &PIDSpeed{pid: pid}
}

func (c *PIDSpeed) RunController(targetSpeed, measuredSpeed float64, dt time.Duration) {
	c.pid.Set(targetSpeed)
	c.out = c.pid.UpdateDuration(measuredSpeed, dt)
}

func (c *PIDSpeed) Output() float64 {
	return c.out
}
