package l5tracks

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/blobtrack/internal/blobtrack"
)

// Predictor replaces the features of occluded tracks with an extrapolation.
// tracks holds the slots that existed before this frame, in table order,
// after matched tracks took their new features; occluded indexes into it.
type Predictor interface {
	Predict(tracks []*Track, occluded []int)
}

// NewPredictor returns the predictor selected by kind.
func NewPredictor(kind blobtrack.Prediction) Predictor {
	if kind == blobtrack.PredictOwnVelocity {
		return OwnVelocity{}
	}
	return BorrowedMagnitude{}
}

// BorrowedMagnitude takes, per pose, the displacement magnitude of the first
// track whose pose changed this frame and moves every occluded pose that far
// along its own heading. With no moving track the pose stays put.
type BorrowedMagnitude struct{}

func (BorrowedMagnitude) Predict(tracks []*Track, occluded []int) {
	if len(occluded) == 0 {
		return
	}
	var magnitude [3]float64
	for k := 0; k < 3; k++ {
		for _, t := range tracks {
			prev, cur := t.previous.Poses()[k], t.Features.Poses()[k]
			if prev != cur {
				magnitude[k] = distance(prev, cur)
				break
			}
		}
	}
	for _, i := range occluded {
		t := tracks[i]
		poses := t.Features.Poses()
		for k := range poses {
			poses[k] = advance(poses[k], magnitude[k])
		}
		t.Features = t.Features.WithPoses(poses)
	}
}

// OwnVelocity repeats each occluded track's last observed step. Tracks that
// were never matched since creation stay put.
type OwnVelocity struct{}

func (OwnVelocity) Predict(tracks []*Track, occluded []int) {
	for _, i := range occluded {
		t := tracks[i]
		if !t.hasStep {
			continue
		}
		poses := t.Features.Poses()
		for k := range poses {
			poses[k].X += t.step[k].X
			poses[k].Y += t.step[k].Y
		}
		t.Features = t.Features.WithPoses(poses)
	}
}

// advance moves p by l along its heading, y pointing down.
func advance(p blobtrack.Pose, l float64) blobtrack.Pose {
	p.X += l * math.Cos(p.Theta)
	p.Y -= l * math.Sin(p.Theta)
	return p
}

func distance(a, b blobtrack.Pose) float64 {
	return r2.Norm(r2.Sub(r2.Vec{X: a.X, Y: a.Y}, r2.Vec{X: b.X, Y: b.Y}))
}
