package l5tracks

import (
	"fmt"
	"sync"

	"github.com/banshee-data/blobtrack/internal/blobtrack"
	"github.com/banshee-data/blobtrack/internal/blobtrack/l4assign"
)

// FrameResult is the post-transition view of one frame.
type FrameResult struct {
	Output        blobtrack.FrameOutput
	Assignment    []int // as applied; nil when the table was empty
	OccludedSlots []int // table indices of Output.Occluded after compaction
	NewIDs        []int
	RemovedIDs    []int
}

// Manager owns the track table and the id counter. It is driven by a single
// worker; the read accessors are safe to call from other goroutines.
type Manager struct {
	params    blobtrack.Params
	predictor Predictor

	// slots is the arena. Removed tracks are tombstoned (nil) during a pass
	// and compacted in order at the end of it.
	slots []*Track
	maxID int

	// Counters for the run summary.
	TracksCreated int
	TracksRemoved int

	mu sync.RWMutex
}

// NewManager creates an empty table. The first issued id is 0.
func NewManager(p blobtrack.Params) *Manager {
	return &Manager{
		params:    p,
		predictor: NewPredictor(p.Prediction),
		maxID:     -1,
	}
}

// Update associates cur with the current table and applies the result.
func (m *Manager) Update(frameIndex int, cur blobtrack.DetectionSet) (FrameResult, error) {
	assignment := l4assign.Associate(m.Features(), cur, m.params)
	return m.Apply(frameIndex, cur, assignment)
}

// Apply runs one lifecycle transition. assignment[i] is the detection
// claimed by slot i or -1; it must be nil or empty when the table is empty.
func (m *Manager) Apply(frameIndex int, cur blobtrack.DetectionSet, assignment []int) (FrameResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.slots)
	if err := checkAssignment(assignment, n, len(cur)); err != nil {
		return FrameResult{}, fmt.Errorf("frame %d: %w", frameIndex, err)
	}

	var occluded []int
	for i, t := range m.slots {
		t.previous = t.Features
		j := -1
		if i < len(assignment) {
			j = assignment[i]
		}
		if j >= 0 {
			t.observe(cur[j])
			continue
		}
		t.LostCounter++
		occluded = append(occluded, i)
	}
	m.predictor.Predict(m.slots[:n], occluded)

	result := FrameResult{Assignment: assignment}
	claimed := l4assign.Claimed(assignment, len(cur))
	for j, f := range cur {
		if claimed[j] {
			continue
		}
		m.maxID++
		m.slots = append(m.slots, &Track{ID: m.maxID, Features: f, previous: f})
		result.NewIDs = append(result.NewIDs, m.maxID)
		m.TracksCreated++
	}

	// Tombstone from the highest slot down, then compact once.
	for i := len(m.slots) - 1; i >= 0; i-- {
		if m.slots[i].LostCounter > m.params.MaxOcclusionTime {
			result.RemovedIDs = append([]int{m.slots[i].ID}, result.RemovedIDs...)
			m.slots[i] = nil
		}
	}
	m.compact()
	m.TracksRemoved += len(result.RemovedIDs)

	result.Output = blobtrack.FrameOutput{
		FrameIndex: frameIndex,
		Records:    make([]blobtrack.Record, len(m.slots)),
	}
	for i, t := range m.slots {
		result.Output.Records[i] = blobtrack.NewRecord(t.ID, frameIndex, t.Features)
		if t.LostCounter > 0 {
			result.Output.Occluded = append(result.Output.Occluded, t.ID)
			result.OccludedSlots = append(result.OccludedSlots, i)
		}
	}
	return result, nil
}

func (m *Manager) compact() {
	kept := m.slots[:0]
	for _, t := range m.slots {
		if t != nil {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(m.slots); i++ {
		m.slots[i] = nil
	}
	m.slots = kept
}

// Features returns the current features in table order.
func (m *Manager) Features() blobtrack.DetectionSet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(blobtrack.DetectionSet, len(m.slots))
	for i, t := range m.slots {
		out[i] = t.Features
	}
	return out
}

// Tracks returns copies of the tracks in table order.
func (m *Manager) Tracks() []Track {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Track, len(m.slots))
	for i, t := range m.slots {
		out[i] = *t
	}
	return out
}

// Len returns the number of live tracks.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.slots)
}

// MaxID returns the largest id ever issued, or -1.
func (m *Manager) MaxID() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxID
}

func checkAssignment(assignment []int, n, m int) error {
	if len(assignment) != 0 && len(assignment) != n {
		return fmt.Errorf("assignment has %d entries for %d tracks", len(assignment), n)
	}
	seen := make(map[int]bool, len(assignment))
	for i, j := range assignment {
		if j < -1 || j >= m {
			return fmt.Errorf("track slot %d assigned to detection %d of %d", i, j, m)
		}
		if j >= 0 {
			if seen[j] {
				return fmt.Errorf("detection %d claimed twice", j)
			}
			seen[j] = true
		}
	}
	return nil
}
