package l4assign

import "github.com/banshee-data/blobtrack/internal/blobtrack"

// Associate matches the previous track snapshot against the current
// detections. assignment[i] is the detection index claimed by track i, or
// -1. With no previous tracks nothing is solved and nil is returned; every
// detection is then new.
func Associate(prev, cur blobtrack.DetectionSet, p blobtrack.Params) []int {
	if len(prev) == 0 {
		return nil
	}
	if len(cur) == 0 {
		return unassigned(len(prev))
	}
	return Solve(CostMatrix(prev, cur, p))
}

// Claimed reports, for each of m detections, whether some track claimed it.
func Claimed(assignment []int, m int) []bool {
	out := make([]bool, m)
	for _, j := range assignment {
		if j >= 0 && j < m {
			out[j] = true
		}
	}
	return out
}
