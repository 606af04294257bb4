package l1frames

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/banshee-data/blobtrack/internal/blobtrack"
)

// Video reads frames from a video file. Frames must be requested in
// increasing order; skipped indices are decoded and discarded.
type Video struct {
	capture *gocv.VideoCapture
	path    string
	n       int
	next    int
	opts    Options
}

// OpenVideo opens path with OpenCV's video backend.
func OpenVideo(path string, opts Options) (*Video, error) {
	capture, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("open video %s: not opened", path)
	}
	n := int(capture.Get(gocv.VideoCaptureFrameCount))
	return &Video{capture: capture, path: path, n: n, opts: opts}, nil
}

// Len returns the frame count reported by the container.
func (v *Video) Len() int { return v.n }

// Frame decodes frame index and returns its mask.
func (v *Video) Frame(index int) (gocv.Mat, error) {
	if err := checkIndex(index, v.n); err != nil {
		return gocv.NewMat(), err
	}
	if index < v.next {
		return gocv.NewMat(), fmt.Errorf("frame %d already consumed (next is %d)", index, v.next)
	}

	raw := gocv.NewMat()
	defer raw.Close()
	for v.next <= index {
		ok := v.capture.Read(&raw)
		v.next++
		if !ok && v.next > index {
			return gocv.NewMat(), fmt.Errorf("%s frame %d: %w", v.path, index, blobtrack.ErrFrameUnreadable)
		}
	}
	if raw.Empty() {
		return gocv.NewMat(), fmt.Errorf("%s frame %d: %w", v.path, index, blobtrack.ErrFrameUnreadable)
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if raw.Channels() == 1 {
		raw.CopyTo(&gray)
	} else {
		gocv.CvtColor(raw, &gray, gocv.ColorBGRToGray)
	}
	return prepare(gray, v.opts)
}

// Close releases the capture.
func (v *Video) Close() error {
	return v.capture.Close()
}
