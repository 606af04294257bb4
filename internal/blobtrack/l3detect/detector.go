package l3detect

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"runtime"

	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/blobtrack/internal/blobtrack"
	"github.com/banshee-data/blobtrack/internal/blobtrack/l1frames"
	"github.com/banshee-data/blobtrack/internal/blobtrack/l2shape"
	"github.com/banshee-data/blobtrack/internal/monitoring"
)

// Detector turns one binary mask into a DetectionSet. A Detector is not
// safe for concurrent Detect calls.
type Detector struct {
	minArea float64
	maxArea float64
	origin  image.Point // ROI origin added to every pose
	workers int
}

// NewDetector builds a detector from the run parameters.
func NewDetector(p blobtrack.Params) *Detector {
	workers := p.DetectWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Detector{
		minArea: p.MinArea,
		maxArea: p.MaxArea,
		origin:  p.ROI.Min,
		workers: workers,
	}
}

type candidate struct {
	index     int // contour index
	crop      *image.Gray
	origin    image.Point
	area      float64
	perimeter float64
}

// Detect extracts every outer contour of mask whose area lies in
// [minArea, maxArea] and analyses it in isolation. Degenerate blobs are
// logged and dropped; the order of the result follows contour discovery.
func (d *Detector) Detect(ctx context.Context, frameIndex int, mask gocv.Mat) (blobtrack.DetectionSet, error) {
	if mask.Empty() {
		return nil, nil
	}
	candidates, err := d.isolate(mask)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", frameIndex, err)
	}

	features := make([]blobtrack.ObjectFeatures, len(candidates))
	kept := make([]bool, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := l2shape.Analyze(c.crop)
			if errors.Is(err, blobtrack.ErrDegenerateBlob) {
				monitoring.Logf("[detect] frame %d: dropped contour %d: %v", frameIndex, c.index, err)
				return nil
			}
			if err != nil {
				return fmt.Errorf("contour %d: %w", c.index, err)
			}
			f.Area = c.area
			f.Perimeter = c.perimeter
			features[i] = f.Offset(float64(c.origin.X+d.origin.X), float64(c.origin.Y+d.origin.Y))
			kept[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("frame %d: %w", frameIndex, err)
	}

	out := make(blobtrack.DetectionSet, 0, len(candidates))
	for i, f := range features {
		if kept[i] {
			out = append(out, f)
		}
	}
	return out, nil
}

// isolate finds the contours in the area band and paints each one alone
// into a scratch frame before cropping it to its bounding box, so
// neighbouring blobs never leak into a crop.
func (d *Detector) isolate(mask gocv.Mat) ([]candidate, error) {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()

	scratch := gocv.NewMatWithSize(mask.Rows(), mask.Cols(), gocv.MatTypeCV8UC1)
	defer scratch.Close()

	var out []candidate
	for i := 0; i < contours.Size(); i++ {
		pv := contours.At(i)
		area := gocv.ContourArea(pv)
		if area < d.minArea || area > d.maxArea {
			continue
		}
		rect := gocv.BoundingRect(pv)

		scratch.SetTo(gocv.NewScalar(0, 0, 0, 0))
		gocv.DrawContours(&scratch, contours, i, color.RGBA{255, 255, 255, 0}, -1)

		region := scratch.Region(rect)
		clone := region.Clone()
		region.Close()
		crop, err := l1frames.GrayFromMat(clone)
		clone.Close()
		if err != nil {
			return nil, fmt.Errorf("crop contour %d: %w", i, err)
		}
		out = append(out, candidate{
			index:     i,
			crop:      crop,
			origin:    rect.Min,
			area:      area,
			perimeter: gocv.ArcLength(pv, true),
		})
	}
	return out, nil
}
