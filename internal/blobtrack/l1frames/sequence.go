package l1frames

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gocv.io/x/gocv"

	"github.com/banshee-data/blobtrack/internal/blobtrack"
)

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".bmp": true,
	".tif": true, ".tiff": true, ".pgm": true, ".pbm": true,
}

// Sequence reads one image file per frame.
type Sequence struct {
	paths []string
	opts  Options
}

// OpenSequence lists the image files of dir in natural name order, so
// frame2.png comes before frame10.png.
func OpenSequence(dir string, opts Options) (*Sequence, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read image directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images found in %s", dir)
	}
	sort.SliceStable(paths, func(i, j int) bool {
		return naturalLess(filepath.Base(paths[i]), filepath.Base(paths[j]))
	})
	return NewSequence(paths, opts), nil
}

// NewSequence reads the given files in the given order.
func NewSequence(paths []string, opts Options) *Sequence {
	return &Sequence{paths: paths, opts: opts}
}

// Len returns the number of frames.
func (s *Sequence) Len() int { return len(s.paths) }

// Path returns the file backing frame index.
func (s *Sequence) Path(index int) string { return s.paths[index] }

// Frame decodes frame index as greyscale and returns its mask.
func (s *Sequence) Frame(index int) (gocv.Mat, error) {
	if err := checkIndex(index, len(s.paths)); err != nil {
		return gocv.NewMat(), err
	}
	img := gocv.IMRead(s.paths[index], gocv.IMReadGrayScale)
	defer img.Close()
	if img.Empty() {
		return gocv.NewMat(), fmt.Errorf("%s: %w", s.paths[index], blobtrack.ErrFrameUnreadable)
	}
	return prepare(img, s.opts)
}

// Close is a no-op; files are opened per frame.
func (s *Sequence) Close() error { return nil }

// naturalLess compares names chunk by chunk, digit runs by numeric value.
// Names that compare equal (img01 vs img1) fall back to byte order.
func naturalLess(a, b string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if isDigit(a[i]) && isDigit(b[j]) {
			ni, nj := digitRun(a, i), digitRun(b, j)
			x, y := strings.TrimLeft(a[i:ni], "0"), strings.TrimLeft(b[j:nj], "0")
			if len(x) != len(y) {
				return len(x) < len(y)
			}
			if x != y {
				return x < y
			}
			i, j = ni, nj
			continue
		}
		if a[i] != b[j] {
			return a[i] < b[j]
		}
		i++
		j++
	}
	if len(a)-i != len(b)-j {
		return len(a)-i < len(b)-j
	}
	return a < b
}

func digitRun(s string, i int) int {
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return i
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }
