package l2shape

import (
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// rotation maps crop coordinates onto the upright canvas and back. Both
// matrices use the pixel-centre convention, rows [a b c; d e f].
type rotation struct {
	fwd    f64.Aff3
	inv    f64.Aff3
	bounds image.Rectangle // canvas size, origin at (0, 0)
}

// newRotation builds the transform that turns a w×h crop by theta radians
// (counter-clockwise, y down) so the major axis lies along +x. The canvas is
// the bounding box of the rotated crop; nothing is cut off.
func newRotation(w, h int, theta float64) rotation {
	cx, cy := float64(w)/2, float64(h)/2
	c, s := math.Cos(theta), math.Sin(theta)

	// Rotation by −theta about the crop centre, written for y down.
	fwd := f64.Aff3{
		c, -s, (1-c)*cx + s*cy,
		s, c, -s*cx + (1-c)*cy,
	}

	hw := (float64(w)*math.Abs(c) + float64(h)*math.Abs(s)) / 2
	hh := (float64(w)*math.Abs(s) + float64(h)*math.Abs(c)) / 2
	cw := int(math.Ceil(cx+hw)) - int(math.Floor(cx-hw)) + 1
	ch := int(math.Ceil(cy+hh)) - int(math.Floor(cy-hh)) + 1

	fwd[2] += float64(cw)/2 - cx
	fwd[5] += float64(ch)/2 - cy

	return rotation{fwd: fwd, inv: invertAffine(fwd), bounds: image.Rect(0, 0, cw, ch)}
}

// apply maps a crop point onto the canvas.
func (r rotation) apply(x, y float64) (float64, float64) {
	return transformPoint(r.fwd, x, y)
}

// unapply maps a canvas point back to the crop.
func (r rotation) unapply(x, y float64) (float64, float64) {
	return transformPoint(r.inv, x, y)
}

// render resamples src onto a fresh canvas with bilinear interpolation.
func (r rotation) render(src *image.Gray) *image.Gray {
	dst := image.NewGray(r.bounds)
	draw.BiLinear.Transform(dst, toContinuous(r.fwd), src, src.Bounds(), draw.Src, nil)
	return dst
}

// toContinuous converts a pixel-centre matrix to the convention used by
// x/image/draw, where pixel (i, j) covers [i, i+1)×[j, j+1).
func toContinuous(m f64.Aff3) f64.Aff3 {
	return f64.Aff3{
		m[0], m[1], m[2] - 0.5*m[0] - 0.5*m[1] + 0.5,
		m[3], m[4], m[5] - 0.5*m[3] - 0.5*m[4] + 0.5,
	}
}

func transformPoint(m f64.Aff3, x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

func invertAffine(m f64.Aff3) f64.Aff3 {
	det := m[0]*m[4] - m[1]*m[3]
	if det == 0 {
		return f64.Aff3{}
	}
	a, b := m[4]/det, -m[1]/det
	d, e := -m[3]/det, m[0]/det
	return f64.Aff3{
		a, b, -(a*m[2] + b*m[5]),
		d, e, -(d*m[2] + e*m[5]),
	}
}
