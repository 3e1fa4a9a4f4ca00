package gimbal

import (
	"math"
	"testing"
)

func TestWrappedEncoderToRadians(t *testing.T) {
	cases := []struct {
		value      uint16
		resolution int
		want       float64
	}{
		{0, 8192, 0},
		{4096, 8192, math.Pi},
		{2048, 8192, math.Pi / 2},
		{8191, 8192, twoPi * 8191 / 8192},
		{100, 200, math.Pi},
	}
	for _, tc := range cases {
		got := WrappedEncoderToRadians(tc.value, tc.resolution)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("WrappedEncoderToRadians(%d, %d) = %v, want %v", tc.value, tc.resolution, got, tc.want)
		}
		if got < 0 || got >= twoPi {
			t.Errorf("WrappedEncoderToRadians(%d, %d) = %v, outside [0, 2pi)", tc.value, tc.resolution, got)
		}
	}
}

func TestWrapError_ShorterPath(t *testing.T) {
	max := math.Pi

	// For any pair of angles in [0, 2pi) the corrected error must have
	// magnitude <= max and equal the shorter angular distance mod 2pi.
	for cur := 0.0; cur < twoPi; cur += 0.37 {
		for tgt := 0.0; tgt < twoPi; tgt += 0.41 {
			raw := tgt - cur
			got := wrapError(raw, max)

			if math.Abs(got) > max+1e-9 {
				t.Fatalf("wrapError(%v) = %v, magnitude exceeds %v", raw, got, max)
			}

			// Same residue mod 2pi as the raw error.
			diff := math.Mod(got-raw, twoPi)
			if math.Abs(diff) > 1e-9 && math.Abs(math.Abs(diff)-twoPi) > 1e-9 {
				t.Fatalf("wrapError(%v) = %v, not congruent mod 2pi", raw, got)
			}
		}
	}
}

func TestWrapError_NoCorrectionInsideThreshold(t *testing.T) {
	if got := wrapError(1.5, math.Pi); got != 1.5 {
		t.Errorf("wrapError(1.5) = %v, want unchanged", got)
	}
	if got := wrapError(-1.5, math.Pi); got != -1.5 {
		t.Errorf("wrapError(-1.5) = %v, want unchanged", got)
	}
}

func TestWrapError_SingleTurn(t *testing.T) {
	// 350 degrees apart: shorter path is -10 degrees.
	raw := 350 * math.Pi / 180
	want := raw - twoPi
	if got := wrapError(raw, math.Pi); math.Abs(got-want) > 1e-9 {
		t.Errorf("wrapError(%v) = %v, want %v", raw, got, want)
	}
}

func TestNormalizeAngle(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{3 * math.Pi, math.Pi},
		{-3 * math.Pi, math.Pi},
		{twoPi, 0},
		{-0.5, twoPi - 0.5},
		{-twoPi, 0},
	}
	for _, tc := range cases {
		got := normalizeAngle(tc.in)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("normalizeAngle(%v) = %v, want %v", tc.in, got, tc.want)
		}
		if got < 0 || got >= twoPi {
			t.Errorf("normalizeAngle(%v) = %v, outside [0, 2pi)", tc.in, got)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := clamp(5, -1, 1); got != 1 {
		t.Errorf("clamp(5) = %v, want 1", got)
	}
	if got := clamp(-5, -1, 1); got != -1 {
		t.Errorf("clamp(-5) = %v, want -1", got)
	}
	if got := clamp(0.5, -1, 1); got != 0.5 {
		t.Errorf("clamp(0.5) = %v, want 0.5", got)
	}
}
