package l5tracks

import "github.com/banshee-data/blobtrack/internal/blobtrack"

// TrackState represents the lifecycle state of a track.
type TrackState string

const (
	TrackActive   TrackState = "active"   // Matched this frame, or new
	TrackOccluded TrackState = "occluded" // Unmatched for LostCounter frames
	TrackRemoved  TrackState = "removed"  // Purged from the table
)

// Track is one identity slot of the table.
type Track struct {
	ID          int
	LostCounter int
	Features    blobtrack.ObjectFeatures

	// previous holds the features before the current frame's transition.
	previous blobtrack.ObjectFeatures
	// step is the last observed displacement per pose (head, tail, body).
	step    [3]blobtrack.Pose
	hasStep bool
}

// State derives the lifecycle state from the lost counter.
func (t *Track) State() TrackState {
	if t.LostCounter == 0 {
		return TrackActive
	}
	return TrackOccluded
}

func (t *Track) observe(f blobtrack.ObjectFeatures) {
	before, after := t.Features.Poses(), f.Poses()
	for k := range after {
		t.step[k] = blobtrack.Pose{X: after[k].X - before[k].X, Y: after[k].Y - before[k].Y}
	}
	t.hasStep = true
	t.Features = f
	t.LostCounter = 0
}
