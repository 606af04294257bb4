package l3detect

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/blobtrack/internal/blobtrack"
	"github.com/banshee-data/blobtrack/internal/blobtrack/l1frames"
)

// FrameDetector reads frames from a Source and runs a Detector on them.
type FrameDetector struct {
	Source   l1frames.Source
	Detector *Detector
}

// NewFrameDetector wires src to a detector built from p.
func NewFrameDetector(src l1frames.Source, p blobtrack.Params) *FrameDetector {
	return &FrameDetector{Source: src, Detector: NewDetector(p)}
}

// Len returns the number of frames the source holds.
func (fd *FrameDetector) Len() int { return fd.Source.Len() }

// DetectFrame reads frame index and detects its blobs. A frame the source
// cannot decode yields an error wrapping blobtrack.ErrFrameUnreadable.
func (fd *FrameDetector) DetectFrame(ctx context.Context, index int) (blobtrack.DetectionSet, error) {
	mask, err := fd.Source.Frame(index)
	if err != nil {
		mask.Close()
		if errors.Is(err, blobtrack.ErrFrameUnreadable) {
			return nil, err
		}
		return nil, fmt.Errorf("read frame %d: %w", index, err)
	}
	defer mask.Close()
	return fd.Detector.Detect(ctx, index, mask)
}
