package core

import "github.com/signalsfoundry/ospf-animator/model"

// Clamp01 clamps v into [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Lerp linearly interpolates between a and b. t is clamped to [0, 1].
func Lerp(a, b, t float64) float64 {
	t = Clamp01(t)
	return a + (b-a)*t
}

// Interpolate returns the point at fraction progress along the segment
// from -> to. Progress outside [0, 1] is clamped.
func Interpolate(progress float64, from, to model.Point) model.Point {
	return model.Point{
		X: Lerp(from.X, to.X, progress),
		Y: Lerp(from.Y, to.Y, progress),
	}
}

// IsDiscovered reports whether a discovery-style event has completed.
func IsDiscovered(progress float64) bool {
	return progress >= 1
}
