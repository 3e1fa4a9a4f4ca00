package control

import (
	"math"
	"testing"
	"time"
)

func TestPIDSpeed_ProportionalOnly(t *testing.T) {
	c := NewPIDSpeed(2.0, 0, 0, 0)

	c.RunController(100, 40, 2*time.Millisecond)
	if got := c.Output(); math.Abs(got-120) > 1e-9 {
		t.Errorf("Output = %v, want 120 (Kp * error)", got)
	}
}

func TestPIDSpeed_OutputBeforeRun(t *testing.T) {
	c := NewPIDSpeed(1.0, 0.1, 0.05, 1000)
	if got := c.Output(); got != 0 {
		t.Errorf("Output before first run = %v, want 0", got)
	}
}

func TestPIDSpeed_LimitsClampOutput(t *testing.T) {
	c := NewPIDSpeed(100.0, 0, 0, 500)

	c.RunController(10000, 0, 2*time.Millisecond)
	if got := c.Output(); got != 500 {
		t.Errorf("Output = %v, want clamp at 500", got)
	}

	c.RunController(-10000, 0, 2*time.Millisecond)
	if got := c.Output(); got != -500 {
		t.Errorf("Output = %v, want clamp at -500", got)
	}
}

func TestPIDSpeed_SignOfCorrection(t *testing.T) {
	c := NewPIDSpeed(1.0, 0, 0, 0)

	// Measured faster than target: correction must be negative.
	c.RunController(100, 150, 2*time.Millisecond)
	if got := c.Output(); got >= 0 {
		t.Errorf("Output = %v, want negative for overspeed", got)
	}
}
