package blobtrack

import (
	"fmt"
	"image"
)

// Prediction selects how an occluded track's pose is extrapolated.
type Prediction string

const (
	// PredictBorrowedMagnitude moves the occluded track along its own
	// heading by the displacement magnitude of the first track that moved
	// this frame.
	PredictBorrowedMagnitude Prediction = "borrowed_magnitude"
	// PredictOwnVelocity repeats the occluded track's last observed
	// displacement vector, whatever its heading.
	PredictOwnVelocity Prediction = "own_velocity"
)

// Params is the immutable tuning value passed into each component. It is
// built once per run (see internal/config) and never mutated.
type Params struct {
	// Detection
	MinArea float64 // smallest accepted blob area (px²)
	MaxArea float64 // largest accepted blob area (px²)
	ROI     image.Rectangle
	// BinaryThreshold binarises source frames; pixels above it become 255.
	BinaryThreshold float64
	DetectWorkers   int

	// Association
	Spot      Spot
	Length    float64 // typical displacement (px), LENGTH
	Angle     float64 // typical reorientation (rad), ANGLE
	MaxDist   float64 // hard displacement gate (px), LO
	Area      float64 // area normalisation scale, AREA
	Perimeter float64 // perimeter normalisation scale, PERIMETER

	// Lifecycle
	MaxOcclusionTime int // frames a track may stay unmatched before removal
	Prediction       Prediction
}

// Validate checks the invariants every component relies on.
func (p Params) Validate() error {
	if p.MinArea < 0 {
		return fmt.Errorf("min area must be non-negative, got %g", p.MinArea)
	}
	if p.MaxArea < p.MinArea {
		return fmt.Errorf("max area %g is below min area %g", p.MaxArea, p.MinArea)
	}
	if p.Spot < SpotHead || p.Spot > SpotBody {
		return fmt.Errorf("invalid spot %d", int(p.Spot))
	}
	if p.Length < 0 || p.Angle < 0 || p.Area < 0 || p.Perimeter < 0 {
		return fmt.Errorf("normalisation scales must be non-negative")
	}
	if p.MaxDist <= 0 {
		return fmt.Errorf("max distance must be positive, got %g", p.MaxDist)
	}
	if p.MaxOcclusionTime < 0 {
		return fmt.Errorf("max occlusion time must be non-negative, got %d", p.MaxOcclusionTime)
	}
	switch p.Prediction {
	case PredictBorrowedMagnitude, PredictOwnVelocity:
	default:
		return fmt.Errorf("unknown prediction %q", p.Prediction)
	}
	return nil
}
