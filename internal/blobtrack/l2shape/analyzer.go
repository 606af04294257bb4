package l2shape

import (
	"fmt"
	"image"
	"math"

	"github.com/banshee-data/blobtrack/internal/blobtrack"
)

// Analyze reduces a mask holding exactly one blob, cropped to its bounding
// box, to oriented features in crop coordinates. Area and Perimeter come
// from the contour and are left for the caller to fill.
//
// Every failure wraps blobtrack.ErrDegenerateBlob; a successful result is
// always finite.
func Analyze(img *image.Gray) (blobtrack.ObjectFeatures, error) {
	if img == nil || img.Bounds().Empty() {
		return blobtrack.ObjectFeatures{}, fmt.Errorf("empty crop: %w", blobtrack.ErrDegenerateBlob)
	}
	img = rebase(img)

	body, err := fitEllipse(computeMoments(img, img.Bounds()))
	if err != nil {
		return blobtrack.ObjectFeatures{}, fmt.Errorf("body: %w", err)
	}

	rot := newRotation(img.Bounds().Dx(), img.Bounds().Dy(), body.Theta)
	upright := rot.render(img)

	theta := body.Theta
	headLeft := flipped(projectionSkew(upright))
	if headLeft {
		theta = blobtrack.NormalizeAngle(theta - math.Pi)
	}

	px, _ := rot.apply(body.X, body.Y)
	split := int(px)
	cb := upright.Bounds()
	if split <= 0 || split >= cb.Dx() {
		return blobtrack.ObjectFeatures{}, fmt.Errorf("split column %d outside canvas width %d: %w", split, cb.Dx(), blobtrack.ErrDegenerateBlob)
	}
	left := image.Rect(0, 0, split, cb.Dy())
	right := image.Rect(split, 0, cb.Dx(), cb.Dy())
	headRect, tailRect := right, left
	if headLeft {
		headRect, tailRect = left, right
	}

	head, headEllipse, err := halfPose(upright, headRect, rot, theta)
	if err != nil {
		return blobtrack.ObjectFeatures{}, fmt.Errorf("head half: %w", err)
	}
	tail, tailEllipse, err := halfPose(upright, tailRect, rot, theta)
	if err != nil {
		return blobtrack.ObjectFeatures{}, fmt.Errorf("tail half: %w", err)
	}

	f := blobtrack.ObjectFeatures{
		Head:        head,
		Tail:        tail,
		Body:        blobtrack.Pose{X: body.X, Y: body.Y, Theta: theta},
		HeadEllipse: headEllipse,
		TailEllipse: tailEllipse,
		BodyEllipse: body.Ellipse,
	}
	if c, ok := curvatureCentre(tail, head); ok {
		f.Curvature = curvature(img, c)
	}
	if !f.Finite() {
		return blobtrack.ObjectFeatures{}, fmt.Errorf("non-finite features: %w", blobtrack.ErrDegenerateBlob)
	}
	return f, nil
}

// halfPose fits one half of the upright canvas and maps the result back to
// crop coordinates. The half's own orientation is folded onto the body
// direction so head and tail agree with the polarity decision.
func halfPose(upright *image.Gray, r image.Rectangle, rot rotation, bodyTheta float64) (blobtrack.Pose, blobtrack.Ellipse, error) {
	fit, err := fitEllipse(computeMoments(upright, r))
	if err != nil {
		return blobtrack.Pose{}, blobtrack.Ellipse{}, err
	}
	x, y := rot.unapply(fit.X+float64(r.Min.X), fit.Y+float64(r.Min.Y))
	return blobtrack.Pose{X: x, Y: y, Theta: halfDirection(fit.Theta, bodyTheta)}, fit.Ellipse, nil
}

// halfDirection folds a local half orientation into (−π/2, π/2] and adds the
// body direction.
func halfDirection(local, body float64) float64 {
	a := local
	if a > math.Pi {
		a -= math.Pi
	}
	if math.Abs(a) > math.Pi/2 {
		a += math.Pi
	}
	return blobtrack.NormalizeAngle(a + body)
}

// rebase returns img with its bounds starting at the origin.
func rebase(img *image.Gray) *image.Gray {
	b := img.Bounds()
	if b.Min == (image.Point{}) {
		return img
	}
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):])
	}
	return out
}
