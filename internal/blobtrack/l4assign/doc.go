// Package l4assign owns Layer 4 (Association) of the blob tracking model.
//
// Responsibilities: the pairwise cost model between the previous track
// snapshot and the current detections, the hard displacement gate, and the
// globally optimal one-to-one assignment (Kuhn–Munkres).
// Key functions: CostMatrix, Solve, Associate.
//
// Dependency rule: L4 may depend on the blobtrack root types only. It holds
// no state between frames.
package l4assign
