package blobtrack

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors shared across layers.
var (
	// ErrFrameUnreadable marks a frame the source could not decode. The
	// pipeline treats it as non-fatal: the frame is skipped and applied as
	// an empty detection set.
	ErrFrameUnreadable = errors.New("frame unreadable")

	// ErrDegenerateBlob marks a blob whose moments cannot produce a finite
	// pose (zero mass, empty half after the split, non-finite result). The
	// detector drops the blob.
	ErrDegenerateBlob = errors.New("degenerate blob")
)

// Spot selects which of the three poses drives association.
type Spot int

const (
	SpotHead Spot = 0
	SpotTail Spot = 1
	SpotBody Spot = 2
)

// String returns the config spelling of the spot.
func (s Spot) String() string {
	switch s {
	case SpotHead:
		return "head"
	case SpotTail:
		return "tail"
	case SpotBody:
		return "body"
	}
	return fmt.Sprintf("spot(%d)", int(s))
}

// ParseSpot accepts "head", "tail", "body" or their numeric codes 0, 1, 2.
func ParseSpot(s string) (Spot, error) {
	switch s {
	case "head", "0":
		return SpotHead, nil
	case "tail", "1":
		return SpotTail, nil
	case "body", "2":
		return SpotBody, nil
	}
	return 0, fmt.Errorf("unknown spot %q (want head, tail or body)", s)
}

// Pose is a 2-D position in pixels with an orientation in radians,
// measured counter-clockwise with the image y axis pointing down.
type Pose struct {
	X     float64
	Y     float64
	Theta float64 // [0, 2π)
}

// Offset returns the pose translated by (dx, dy).
func (p Pose) Offset(dx, dy float64) Pose {
	return Pose{X: p.X + dx, Y: p.Y + dy, Theta: p.Theta}
}

func (p Pose) finite() bool {
	return isFinite(p.X) && isFinite(p.Y) && isFinite(p.Theta)
}

// Ellipse is the equivalent ellipse of a blob (or half blob).
type Ellipse struct {
	Major        float64 // major axis length (px)
	Minor        float64 // minor axis length (px)
	Eccentricity float64 // [0, 1)
}

func (e Ellipse) finite() bool {
	return isFinite(e.Major) && isFinite(e.Minor) && isFinite(e.Eccentricity)
}

// ObjectFeatures is the reduced description of one detected blob in one
// frame. All three poses share a single frame of reference.
type ObjectFeatures struct {
	Head Pose
	Tail Pose
	Body Pose

	HeadEllipse Ellipse
	TailEllipse Ellipse
	BodyEllipse Ellipse

	// Curvature is the inverse of the mean pixel distance to the curvature
	// centre. 0 means the centre is undefined (parallel minor axes).
	Curvature float64
	Area      float64 // contour area (px²)
	Perimeter float64 // closed contour length (px)
}

// Pose returns the pose selected by spot. Unknown spots fall back to Body.
func (f ObjectFeatures) Pose(spot Spot) Pose {
	switch spot {
	case SpotHead:
		return f.Head
	case SpotTail:
		return f.Tail
	}
	return f.Body
}

// Poses returns head, tail and body in spot order.
func (f ObjectFeatures) Poses() [3]Pose {
	return [3]Pose{f.Head, f.Tail, f.Body}
}

// WithPoses returns a copy of f with head, tail and body replaced.
func (f ObjectFeatures) WithPoses(p [3]Pose) ObjectFeatures {
	f.Head, f.Tail, f.Body = p[0], p[1], p[2]
	return f
}

// Offset translates every pose by (dx, dy).
func (f ObjectFeatures) Offset(dx, dy float64) ObjectFeatures {
	f.Head = f.Head.Offset(dx, dy)
	f.Tail = f.Tail.Offset(dx, dy)
	f.Body = f.Body.Offset(dx, dy)
	return f
}

// Finite reports whether every numeric field is finite.
func (f ObjectFeatures) Finite() bool {
	return f.Head.finite() && f.Tail.finite() && f.Body.finite() &&
		f.HeadEllipse.finite() && f.TailEllipse.finite() && f.BodyEllipse.finite() &&
		isFinite(f.Curvature) && isFinite(f.Area) && isFinite(f.Perimeter)
}

// DetectionSet is the unordered set of blobs found in one frame. Its order
// comes from contour discovery and carries no identity.
type DetectionSet []ObjectFeatures

// Record is the per-track, per-frame output tuple consumed by persistence
// and visualisation. Field order is part of the output contract.
type Record struct {
	ID          int
	Head        Pose
	Tail        Pose
	Body        Pose
	Curvature   float64
	Area        float64
	Perimeter   float64
	HeadEllipse Ellipse
	TailEllipse Ellipse
	BodyEllipse Ellipse
	FrameIndex  int
}

// NewRecord builds the output tuple for track id in frame.
func NewRecord(id, frame int, f ObjectFeatures) Record {
	return Record{
		ID:          id,
		Head:        f.Head,
		Tail:        f.Tail,
		Body:        f.Body,
		Curvature:   f.Curvature,
		Area:        f.Area,
		Perimeter:   f.Perimeter,
		HeadEllipse: f.HeadEllipse,
		TailEllipse: f.TailEllipse,
		BodyEllipse: f.BodyEllipse,
		FrameIndex:  frame,
	}
}

// FrameOutput is the fully updated per-frame snapshot handed to readers.
// Records are in track table order. Occluded lists the ids whose features
// are predictions this frame and must not be persisted as ground truth.
type FrameOutput struct {
	FrameIndex int
	Records    []Record
	Occluded   []int
}

// IsOccluded reports whether id was occluded in this frame.
func (o FrameOutput) IsOccluded(id int) bool {
	for _, oc := range o.Occluded {
		if oc == id {
			return true
		}
	}
	return false
}

// Observed returns the records whose features come from a real detection.
func (o FrameOutput) Observed() []Record {
	out := make([]Record, 0, len(o.Records))
	for _, r := range o.Records {
		if !o.IsOccluded(r.ID) {
			out = append(out, r)
		}
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
