package l4assign

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/blobtrack/internal/blobtrack"
)

// Forbidden marks a pair whose displacement reaches the gate. It is larger
// than every finite cost and survives solving so the pair can be dropped.
var Forbidden = math.Inf(1)

// MaxFiniteCost caps admissible costs so tiny normalisation scales cannot
// overflow into Forbidden.
const MaxFiniteCost = 1e15

// Cost scores the match of prev against cur. Displacement and angle are
// measured on the pose selected by p.Spot; area and perimeter on the blob.
func Cost(prev, cur blobtrack.ObjectFeatures, p blobtrack.Params) float64 {
	a, b := prev.Pose(p.Spot), cur.Pose(p.Spot)
	displacement := r2.Norm(r2.Sub(r2.Vec{X: a.X, Y: a.Y}, r2.Vec{X: b.X, Y: b.Y}))
	if !(displacement < p.MaxDist) {
		return Forbidden
	}
	angle := math.Abs(blobtrack.AngleDifference(a.Theta, b.Theta))
	area := math.Abs(prev.Area - cur.Area)
	perimeter := math.Abs(prev.Perimeter - cur.Perimeter)

	c := divide(displacement, p.Length) + divide(angle, p.Angle) +
		divide(area, p.Area) + divide(perimeter, p.Perimeter)
	if math.IsNaN(c) {
		return Forbidden
	}
	return math.Min(c, MaxFiniteCost)
}

// CostMatrix returns the len(prev)×len(cur) matrix of Cost values. Rows are
// previous tracks in table order, columns current detections.
func CostMatrix(prev, cur blobtrack.DetectionSet, p blobtrack.Params) [][]float64 {
	m := make([][]float64, len(prev))
	for i := range prev {
		m[i] = make([]float64, len(cur))
		for j := range cur {
			m[i][j] = Cost(prev[i], cur[j], p)
		}
	}
	return m
}

// divide returns a/b, or 0 when b is 0 so a zero scale disables its term.
func divide(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
