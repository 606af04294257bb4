package l2shape

import (
	"image"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/blobtrack/internal/blobtrack"
)

// parallelTolerance is the |det| below which the two minor axes are
// considered parallel and the curvature centre undefined.
const parallelTolerance = 1e-9

// minorAxis returns the unit direction of the minor axis of a pose, in image
// coordinates (y down).
func minorAxis(p blobtrack.Pose) r2.Vec {
	a := p.Theta + math.Pi/2
	return r2.Vec{X: math.Cos(a), Y: -math.Sin(a)}
}

// curvatureCentre intersects the minor axes through tail and head. ok is
// false when the axes are parallel.
func curvatureCentre(tail, head blobtrack.Pose) (centre r2.Vec, ok bool) {
	dt, dh := minorAxis(tail), minorAxis(head)
	a := mat.NewDense(2, 2, []float64{
		dt.X, -dh.X,
		dt.Y, -dh.Y,
	})
	if math.Abs(mat.Det(a)) < parallelTolerance {
		return r2.Vec{}, false
	}
	b := mat.NewVecDense(2, []float64{head.X - tail.X, head.Y - tail.Y})
	var s mat.VecDense
	if err := s.SolveVec(a, b); err != nil {
		return r2.Vec{}, false
	}
	return r2.Add(r2.Vec{X: tail.X, Y: tail.Y}, r2.Scale(s.AtVec(0), dt)), true
}

// curvature is the inverse of the mean distance from every foreground pixel
// of img to centre. It is 0 when no pixel lies away from the centre.
func curvature(img *image.Gray, centre r2.Vec) float64 {
	b := img.Bounds()
	var count, sum float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x, off = x+1, off+1 {
			if img.Pix[off] == 0 {
				continue
			}
			count++
			sum += r2.Norm(r2.Sub(r2.Vec{X: float64(x - b.Min.X), Y: float64(y - b.Min.Y)}, centre))
		}
	}
	if sum == 0 {
		return 0
	}
	return count / sum
}
