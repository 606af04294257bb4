package blobtrack

import "math"

const twoPi = 2 * math.Pi

// NormalizeAngle maps angle onto [0, 2π).
func NormalizeAngle(angle float64) float64 {
	a := angle - twoPi*math.Floor(angle/twoPi)
	// Floor rounding can land exactly on 2π for tiny negative inputs.
	if a >= twoPi {
		a = 0
	}
	return a
}

// AngleDifference returns the least signed difference alpha − beta in
// (−π, π], counter-clockwise positive.
func AngleDifference(alpha, beta float64) float64 {
	alpha = NormalizeAngle(alpha)
	beta = NormalizeAngle(beta)
	return -(NormalizeAngle(beta-alpha+math.Pi) - math.Pi)
}
