// Package l5tracks owns Layer 5 (Tracks) of the blob tracking model.
//
// Responsibilities: the identity-ordered track table, lost counters,
// occlusion prediction, id issuing and purging.
// Key types: Manager, Track, FrameResult, Predictor.
//
// Dependency rule: L5 may depend on L1-L4 and the blobtrack root types.
// No SQL/database code is allowed in this package.
package l5tracks
