package utils

import "math"

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Cube returns x*x*x. Joystick inputs are cubed for finer control near center.
func Cube(x float64) float64 {
	return x * x * x
}

// Deadzone returns 0 for |v| < zone and v otherwise.
func Deadzone(v, zone float64) float64 {
	if math.Abs(v) < zone {
		return 0
	}
	return v
}

// Slew moves from past toward target by at most maxStep.
func Slew(target, past, maxStep float64) float64 {
	switch {
	case target-past > maxStep:
		return past + maxStep
	case past-target > maxStep:
		return past - maxStep
	}
	return target
}

// Sign returns -1, 0 or 1.
func Sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// SignedAngleDiffDeg returns the turn from a2 to a1 in (-180, 180]. Positive is clockwise.
func SignedAngleDiffDeg(a1, a2 float64) float64 {
	d := math.Mod(a1-a2, 360)
	switch {
	case d > 180:
		d -= 360
	case d <= -180:
		d += 360
	}
	return d
}
