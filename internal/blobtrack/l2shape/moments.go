package l2shape

import (
	"fmt"
	"image"
	"math"

	"github.com/banshee-data/blobtrack/internal/blobtrack"
)

// circularTolerance is the relative size below which the second-order
// central moments are treated as isotropic and the orientation is fixed to 0.
const circularTolerance = 1e-9

// moments holds the raw zero/first order moments and the second-order
// central moments of a region, weighted by pixel intensity in [0, 1].
// Coordinates follow the pixel-centre convention: pixel (x, y) sits at x, y.
type moments struct {
	m00, m10, m01    float64
	mu20, mu11, mu02 float64
}

func computeMoments(img *image.Gray, r image.Rectangle) moments {
	r = r.Intersect(img.Bounds())
	var m00, m10, m01, m20, m11, m02 float64
	for y := r.Min.Y; y < r.Max.Y; y++ {
		ly := float64(y - r.Min.Y)
		off := img.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x, off = x+1, off+1 {
			px := img.Pix[off]
			if px == 0 {
				continue
			}
			v := float64(px) / 255
			lx := float64(x - r.Min.X)
			m00 += v
			m10 += v * lx
			m01 += v * ly
			m20 += v * lx * lx
			m11 += v * lx * ly
			m02 += v * ly * ly
		}
	}
	if m00 == 0 {
		return moments{}
	}
	cx, cy := m10/m00, m01/m00
	return moments{
		m00:  m00,
		m10:  m10,
		m01:  m01,
		mu20: m20 - cx*m10,
		mu11: m11 - cx*m01,
		mu02: m02 - cy*m01,
	}
}

// ellipseFit is the equivalent ellipse of a region in region coordinates.
type ellipseFit struct {
	X, Y  float64
	Theta float64 // [0, 2π), counter-clockwise with y down
	blobtrack.Ellipse
}

func fitEllipse(m moments) (ellipseFit, error) {
	if m.m00 <= 0 {
		return ellipseFit{}, fmt.Errorf("zero mass: %w", blobtrack.ErrDegenerateBlob)
	}
	i, j, k := m.mu20, m.mu11, m.mu02

	theta := 0.0
	scale := math.Abs(i) + math.Abs(k)
	if math.Abs(i-k) > circularTolerance*scale || math.Abs(j) > circularTolerance*scale {
		theta = 0.5 * math.Atan(2*j/(i-k))
		if i < k {
			theta += math.Pi / 2
		}
		if theta < 0 {
			theta += 2 * math.Pi
		}
		// Image y points down; flip to counter-clockwise.
		theta = blobtrack.NormalizeAngle(2*math.Pi - theta)
	}

	root := math.Sqrt((i-k)*(i-k) + 4*j*j)
	major := 2 * math.Sqrt(((i+k)+root)/2/m.m00)
	minor := 2 * math.Sqrt(math.Max(0, (i+k)-root)/2/m.m00)

	fit := ellipseFit{
		X:     m.m10 / m.m00,
		Y:     m.m01 / m.m00,
		Theta: theta,
		Ellipse: blobtrack.Ellipse{
			Major:        major,
			Minor:        minor,
			Eccentricity: eccentricity(major, minor),
		},
	}
	if !finite(fit.X, fit.Y, fit.Theta, major, minor) {
		return ellipseFit{}, fmt.Errorf("non-finite ellipse: %w", blobtrack.ErrDegenerateBlob)
	}
	return fit, nil
}

// eccentricity is sqrt(1 − b²/a²), kept strictly below 1.
func eccentricity(major, minor float64) float64 {
	if major <= 0 {
		return 0
	}
	r := minor / major
	e := math.Sqrt(math.Max(0, 1-r*r))
	if e >= 1 {
		e = math.Nextafter(1, 0)
	}
	return e
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
