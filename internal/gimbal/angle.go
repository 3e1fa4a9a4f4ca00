package gimbal

import "math"

const twoPi = 2 * math.Pi

// WrappedEncoderToRadians converts a wrapped encoder sample (counts,
// resetting every mechanical revolution) into an absolute angle in
// [0, 2pi). resolution is the sensor's counts per revolution.
func WrappedEncoderToRadians(value uint16, resolution int) float64 {
	return twoPi * float64(value) / float64(resolution)
}

// wrapError adjusts an angular error by one full turn so it reflects
// the shorter rotational path. max is configured near pi; the raw
// error is bounded by the encoder's reporting range, so a single
// correction is always enough.
func wrapError(err, max float64) float64 {
	if err > max {
		return err - twoPi
	}
	if err < -max {
		return err + twoPi
	}
	return err
}

// normalizeAngle folds an angle into [0, 2pi), the same range the
// encoder reports. Targets and measurements sharing one range keeps
// the raw error inside (-2pi, 2pi), where a single wrap correction
// is enough.
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, twoPi)
	if a < 0 {
		a += twoPi
	}
	return a
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
