package l1frames

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/banshee-data/blobtrack/internal/blobtrack"
)

// Source yields one binary mask (CV_8UC1, 0/255) per frame index, already
// cropped to the ROI. The caller owns and must Close the returned Mat.
type Source interface {
	Len() int
	Frame(index int) (gocv.Mat, error)
	Close() error
}

// Options controls how raw frames become masks.
type Options struct {
	// Threshold binarises the grey frame; pixels above it become 255.
	Threshold float64
	// ROI crops the mask. The zero rectangle keeps the whole frame.
	ROI image.Rectangle
}

// OptionsFromParams extracts the frame options from the run parameters.
func OptionsFromParams(p blobtrack.Params) Options {
	return Options{Threshold: p.BinaryThreshold, ROI: p.ROI}
}

// prepare binarises gray and crops it to the ROI. gray is not closed.
func prepare(gray gocv.Mat, opts Options) (gocv.Mat, error) {
	bin := gocv.NewMat()
	gocv.Threshold(gray, &bin, float32(opts.Threshold), 255, gocv.ThresholdBinary)
	if opts.ROI.Empty() {
		return bin, nil
	}
	defer bin.Close()

	bounds := image.Rect(0, 0, bin.Cols(), bin.Rows())
	roi := opts.ROI.Intersect(bounds)
	if roi.Empty() {
		return gocv.NewMat(), fmt.Errorf("roi %v outside frame %v", opts.ROI, bounds)
	}
	region := bin.Region(roi)
	defer region.Close()
	return region.Clone(), nil
}

func checkIndex(index, n int) error {
	if index < 0 || index >= n {
		return fmt.Errorf("frame %d out of range [0, %d)", index, n)
	}
	return nil
}
