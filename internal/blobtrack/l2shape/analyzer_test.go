package l2shape

import (
	"errors"
	"image"
	"math"
	"testing"

	"github.com/banshee-data/blobtrack/internal/blobtrack"
)

func newMask(w, h int) *image.Gray {
	return image.NewGray(image.Rect(0, 0, w, h))
}

func fillRect(img *image.Gray, r image.Rectangle) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Pix[img.PixOffset(x, y)] = 255
		}
	}
}

func fillDisk(img *image.Gray, cx, cy, radius int) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= radius*radius {
				img.Pix[img.PixOffset(x, y)] = 255
			}
		}
	}
}

func angleNear(got, want, tol float64) bool {
	return math.Abs(blobtrack.AngleDifference(got, want)) <= tol
}

func TestAnalyze_CircleHasZeroOrientation(t *testing.T) {
	img := newMask(25, 25)
	fillDisk(img, 12, 12, 10)

	f, err := Analyze(img)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if math.IsNaN(f.Body.Theta) || f.Body.Theta != 0 {
		t.Errorf("body theta = %v, want 0", f.Body.Theta)
	}
	if math.Abs(f.Body.X-12) > 1e-9 || math.Abs(f.Body.Y-12) > 1e-9 {
		t.Errorf("body centre = (%v, %v), want (12, 12)", f.Body.X, f.Body.Y)
	}
	if f.BodyEllipse.Eccentricity > 1e-3 {
		t.Errorf("circle eccentricity = %v, want ~0", f.BodyEllipse.Eccentricity)
	}
	if !f.Finite() {
		t.Errorf("features not finite: %+v", f)
	}
}

func TestAnalyze_TadpolePolarity(t *testing.T) {
	// Thick block on the left, thin tail to the right. The column profile
	// has a long right tail (positive skew), so the head is on the left and
	// the body points towards −x.
	img := newMask(70, 11)
	fillRect(img, image.Rect(0, 0, 30, 11))
	fillRect(img, image.Rect(30, 4, 70, 7))

	f, err := Analyze(img)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !angleNear(f.Body.Theta, math.Pi, 1e-6) {
		t.Errorf("body theta = %v, want π", f.Body.Theta)
	}
	if !(f.Head.X < f.Body.X && f.Body.X < f.Tail.X) {
		t.Errorf("expected head.x < body.x < tail.x, got %v %v %v", f.Head.X, f.Body.X, f.Tail.X)
	}
	if math.Abs(f.Head.Y-5) > 0.5 || math.Abs(f.Tail.Y-5) > 0.5 {
		t.Errorf("head/tail should stay on the axis y=5, got %v and %v", f.Head.Y, f.Tail.Y)
	}
	if !angleNear(f.Head.Theta, math.Pi, 1e-3) || !angleNear(f.Tail.Theta, math.Pi, 1e-3) {
		t.Errorf("half directions should follow the body: head %v tail %v", f.Head.Theta, f.Tail.Theta)
	}
	if f.BodyEllipse.Major <= f.BodyEllipse.Minor {
		t.Errorf("major %v should exceed minor %v", f.BodyEllipse.Major, f.BodyEllipse.Minor)
	}
	// Parallel minor axes: no curvature centre.
	if f.Curvature != 0 {
		t.Errorf("straight blob curvature = %v, want 0", f.Curvature)
	}
}

func TestAnalyze_MirroredTadpole(t *testing.T) {
	img := newMask(70, 11)
	fillRect(img, image.Rect(40, 0, 70, 11))
	fillRect(img, image.Rect(0, 4, 40, 7))

	f, err := Analyze(img)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !angleNear(f.Body.Theta, 0, 1e-6) {
		t.Errorf("body theta = %v, want 0", f.Body.Theta)
	}
	if !(f.Tail.X < f.Body.X && f.Body.X < f.Head.X) {
		t.Errorf("expected tail.x < body.x < head.x, got %v %v %v", f.Tail.X, f.Body.X, f.Head.X)
	}
}

func TestAnalyze_VerticalBar(t *testing.T) {
	img := newMask(7, 40)
	fillRect(img, image.Rect(1, 0, 6, 40))

	f, err := Analyze(img)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if math.Abs(math.Abs(math.Sin(f.Body.Theta))-1) > 1e-6 {
		t.Errorf("vertical bar theta = %v, want ±π/2", f.Body.Theta)
	}
	if f.Body.Theta < 0 || f.Body.Theta >= 2*math.Pi {
		t.Errorf("theta %v outside [0, 2π)", f.Body.Theta)
	}
}

func TestAnalyze_NonZeroOrigin(t *testing.T) {
	img := image.NewGray(image.Rect(100, 50, 125, 75))
	fillDisk(img, 112, 62, 10)

	f, err := Analyze(img)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if math.Abs(f.Body.X-12) > 1e-9 || math.Abs(f.Body.Y-12) > 1e-9 {
		t.Errorf("features must be in crop coordinates, got (%v, %v)", f.Body.X, f.Body.Y)
	}
}

func TestAnalyze_Degenerate(t *testing.T) {
	single := newMask(1, 1)
	single.Pix[0] = 255

	tests := []struct {
		name string
		img  *image.Gray
	}{
		{"nil", nil},
		{"empty bounds", image.NewGray(image.Rectangle{})},
		{"zero mass", newMask(10, 10)},
		{"single pixel", single},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Analyze(tt.img)
			if !errors.Is(err, blobtrack.ErrDegenerateBlob) {
				t.Fatalf("err = %v, want ErrDegenerateBlob", err)
			}
		})
	}
}

func TestHalfDirection(t *testing.T) {
	tests := []struct {
		local, body, want float64
	}{
		{0, 0, 0},
		{math.Pi / 4, 0, math.Pi / 4},
		{3 * math.Pi / 2, 0, math.Pi / 2},
		{7 * math.Pi / 4, math.Pi, 3 * math.Pi / 4},
		{3 * math.Pi / 4, 0, 7 * math.Pi / 4},
		{math.Pi, 1, 1},
	}
	for _, tt := range tests {
		got := halfDirection(tt.local, tt.body)
		if !angleNear(got, tt.want, 1e-12) {
			t.Errorf("halfDirection(%v, %v) = %v, want %v", tt.local, tt.body, got, tt.want)
		}
	}
}
