package l2shape

import (
	"image"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/blobtrack/internal/blobtrack"
)

func TestFitEllipse_HorizontalBar(t *testing.T) {
	img := newMask(20, 5)
	fillRect(img, image.Rect(0, 1, 20, 4))

	fit, err := fitEllipse(computeMoments(img, img.Bounds()))
	if err != nil {
		t.Fatalf("fitEllipse: %v", err)
	}
	if fit.Theta != 0 {
		t.Errorf("theta = %v, want 0", fit.Theta)
	}
	if math.Abs(fit.X-9.5) > 1e-9 || math.Abs(fit.Y-2) > 1e-9 {
		t.Errorf("centroid = (%v, %v), want (9.5, 2)", fit.X, fit.Y)
	}
	if fit.Eccentricity <= 0.9 || fit.Eccentricity >= 1 {
		t.Errorf("eccentricity = %v, want in (0.9, 1)", fit.Eccentricity)
	}
}

func TestFitEllipse_Diagonal(t *testing.T) {
	// Pixels along y = −x + c in image space run up and to the right, i.e.
	// 45° counter-clockwise with y down.
	img := newMask(30, 30)
	for i := 0; i < 30; i++ {
		img.Pix[img.PixOffset(i, 29-i)] = 255
	}
	fit, err := fitEllipse(computeMoments(img, img.Bounds()))
	if err != nil {
		t.Fatalf("fitEllipse: %v", err)
	}
	if math.Abs(fit.Theta-math.Pi/4) > 1e-9 && math.Abs(fit.Theta-5*math.Pi/4) > 1e-9 {
		t.Errorf("theta = %v, want π/4 (mod π)", fit.Theta)
	}
}

func TestFitEllipse_ZeroMass(t *testing.T) {
	if _, err := fitEllipse(moments{}); err == nil {
		t.Fatal("expected error for zero mass")
	}
}

func TestEccentricity(t *testing.T) {
	if e := eccentricity(0, 0); e != 0 {
		t.Errorf("eccentricity(0,0) = %v", e)
	}
	if e := eccentricity(10, 10); e != 0 {
		t.Errorf("eccentricity(10,10) = %v", e)
	}
	if e := eccentricity(10, 0); e >= 1 {
		t.Errorf("eccentricity(10,0) = %v, must stay below 1", e)
	}
	if e := eccentricity(5, 3); math.Abs(e-0.8) > 1e-12 {
		t.Errorf("eccentricity(5,3) = %v, want 0.8", e)
	}
}

func TestRotation_RoundTrip(t *testing.T) {
	for _, theta := range []float64{0, 0.3, math.Pi / 2, 2.5, 4, 5.9} {
		rot := newRotation(31, 17, theta)
		x, y := rot.apply(3.25, 11.5)
		bx, by := rot.unapply(x, y)
		if math.Abs(bx-3.25) > 1e-9 || math.Abs(by-11.5) > 1e-9 {
			t.Errorf("theta %v: round trip gave (%v, %v)", theta, bx, by)
		}
	}
}

func TestRotation_AlignsMajorAxis(t *testing.T) {
	theta := 0.7
	rot := newRotation(40, 40, theta)
	// Unit step along the major axis in image coordinates.
	x0, y0 := rot.apply(20, 20)
	x1, y1 := rot.apply(20+math.Cos(theta), 20-math.Sin(theta))
	if math.Abs((x1-x0)-1) > 1e-9 || math.Abs(y1-y0) > 1e-9 {
		t.Errorf("major axis maps to (%v, %v), want (1, 0)", x1-x0, y1-y0)
	}
}

func TestRotation_CanvasContainsCrop(t *testing.T) {
	w, h := 30, 10
	for _, theta := range []float64{0, 0.5, 1.2, math.Pi / 2, 3} {
		rot := newRotation(w, h, theta)
		for _, p := range [][2]float64{{0, 0}, {float64(w - 1), 0}, {0, float64(h - 1)}, {float64(w - 1), float64(h - 1)}} {
			x, y := rot.apply(p[0], p[1])
			if x < -0.5 || y < -0.5 || x > float64(rot.bounds.Dx())-0.5 || y > float64(rot.bounds.Dy())-0.5 {
				t.Errorf("theta %v: corner %v maps to (%v, %v), outside %v", theta, p, x, y, rot.bounds)
			}
		}
	}
}

func TestRotation_RenderPreservesMass(t *testing.T) {
	img := newMask(21, 21)
	fillDisk(img, 10, 10, 6)
	before := computeMoments(img, img.Bounds()).m00

	rot := newRotation(21, 21, 0.9)
	after := computeMoments(rot.render(img), rot.bounds).m00
	if math.Abs(after-before)/before > 0.05 {
		t.Errorf("mass changed from %v to %v", before, after)
	}
}

func TestProjectionSkew(t *testing.T) {
	img := newMask(30, 5)
	fillRect(img, image.Rect(0, 0, 10, 5))
	fillRect(img, image.Rect(10, 2, 30, 3))
	if s := projectionSkew(img); !flipped(s) {
		t.Errorf("heavy-left profile skew = %v, want positive", s)
	}

	sym := newMask(30, 5)
	fillRect(sym, image.Rect(5, 0, 25, 5))
	if s := projectionSkew(sym); flipped(s) {
		t.Errorf("symmetric profile skew = %v, want ~0", s)
	}
}

func TestCurvatureCentre(t *testing.T) {
	tail := blobtrack.Pose{X: 0, Y: 0, Theta: 0}
	head := blobtrack.Pose{X: 10, Y: 10, Theta: math.Pi / 2}
	c, ok := curvatureCentre(tail, head)
	if !ok {
		t.Fatal("expected an intersection")
	}
	if math.Abs(c.X) > 1e-9 || math.Abs(c.Y-10) > 1e-9 {
		t.Errorf("centre = %v, want (0, 10)", c)
	}

	if _, ok := curvatureCentre(tail, blobtrack.Pose{X: 5, Y: 0, Theta: math.Pi}); ok {
		t.Error("parallel minor axes must not intersect")
	}
}

func TestCurvature(t *testing.T) {
	img := newMask(11, 1)
	img.Pix[10] = 255
	if c := curvature(img, r2.Vec{X: 5, Y: 0}); math.Abs(c-0.2) > 1e-12 {
		t.Errorf("curvature = %v, want 0.2", c)
	}
	if c := curvature(img, r2.Vec{X: 10, Y: 0}); c != 0 {
		t.Errorf("curvature at the only pixel = %v, want 0", c)
	}
}
