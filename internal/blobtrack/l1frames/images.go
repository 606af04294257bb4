package l1frames

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/banshee-data/blobtrack/internal/blobtrack"
)

// Images serves frames held in memory. A nil entry reads as unreadable.
type Images struct {
	frames []*image.Gray
	opts   Options
}

// NewImages wraps frames.
func NewImages(frames []*image.Gray, opts Options) *Images {
	return &Images{frames: frames, opts: opts}
}

// Len returns the number of frames.
func (s *Images) Len() int { return len(s.frames) }

// Frame converts frame index to a mask.
func (s *Images) Frame(index int) (gocv.Mat, error) {
	if err := checkIndex(index, len(s.frames)); err != nil {
		return gocv.NewMat(), err
	}
	if s.frames[index] == nil {
		return gocv.NewMat(), fmt.Errorf("in-memory frame %d: %w", index, blobtrack.ErrFrameUnreadable)
	}
	gray, err := MatFromGray(s.frames[index])
	if err != nil {
		return gocv.NewMat(), err
	}
	defer gray.Close()
	return prepare(gray, s.opts)
}

// Close is a no-op.
func (s *Images) Close() error { return nil }

// MatFromGray copies img into a new CV_8UC1 Mat.
func MatFromGray(img *image.Gray) (gocv.Mat, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return gocv.NewMat(), fmt.Errorf("empty image %v", b)
	}
	buf := make([]byte, w*h)
	for y := 0; y < h; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(buf[y*w:(y+1)*w], img.Pix[off:off+w])
	}
	return gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, buf)
}

// GrayFromMat copies a CV_8UC1 Mat into a new image anchored at the origin.
func GrayFromMat(m gocv.Mat) (*image.Gray, error) {
	if m.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("expected CV_8UC1 mat, got type %v", m.Type())
	}
	w, h := m.Cols(), m.Rows()
	img := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return img, nil
	}
	data := m.ToBytes()
	if len(data) < w*h {
		return nil, fmt.Errorf("mat holds %d bytes, want %d", len(data), w*h)
	}
	copy(img.Pix, data[:w*h])
	return img, nil
}
