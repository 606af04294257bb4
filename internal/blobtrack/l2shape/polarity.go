package l2shape

import (
	"image"

	"gonum.org/v1/gonum/stat"
)

// skewEpsilon absorbs rounding noise on symmetric projections so a
// perfectly symmetric blob keeps its orientation.
const skewEpsilon = 1e-9

// projectionSkew returns the skewness of the column-sum profile of img,
// columns numbered from 1.
func projectionSkew(img *image.Gray) float64 {
	b := img.Bounds()
	cols := make([]float64, b.Dx())
	weights := make([]float64, b.Dx())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		for i := range weights {
			weights[i] += float64(img.Pix[off+i])
		}
	}
	for i := range cols {
		cols[i] = float64(i + 1)
	}
	return stat.Skew(cols, weights)
}

// flipped reports whether the profile skew says the head lies on the left
// of the upright canvas. NaN (single column of mass) keeps the orientation.
func flipped(skew float64) bool {
	return skew > skewEpsilon
}
