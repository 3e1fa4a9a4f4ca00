package gimbal

import (
	"context"
	"time"

	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/debug"
)

// Runner invokes the gimbal's update cycle at a fixed period and owns
// the input-silence arbitration: when no manual or vision input has
// arrived within InputTimeout, the gimbal is put in neutral.
type Runner struct {
	gimbal       *Gimbal
	period       time.Duration
	inputTimeout time.Duration
}

// NewRunner creates a runner. inputTimeout <= 0 disables the watchdog.
func NewRunner(g *Gimbal, period, inputTimeout time.Duration) *Runner {
	if period <= 0 {
		period = 2 * time.Millisecond
	}
	return &Runner{
		gimbal:       g,
		period:       period,
		inputTimeout: inputTimeout,
	}
}

// Run calibrates the gimbal, then refreshes it every period until ctx
// is cancelled. Both motors are commanded to zero on the way out.
func (r *Runner) Run(ctx context.Context) error {
	debug.Section("Control loop")
	debug.Value("Period", r.period)
	debug.Value("Input timeout", r.inputTimeout)

	r.gimbal.Initialize()

	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.gimbal.Neutral()
			return ctx.Err()
		case <-ticker.C:
			if r.inputTimeout > 0 && r.gimbal.HasActiveInput() &&
				r.gimbal.MsSinceInput() > r.inputTimeout.Milliseconds() {
				r.gimbal.Neutral()
			}
			r.gimbal.Refresh()
		}
	}
}
