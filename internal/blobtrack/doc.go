// Package blobtrack holds the shared data model for multi-object blob
// tracking on binary frames.
//
// Responsibilities: Pose, Ellipse and ObjectFeatures (per-blob reduction),
// DetectionSet (per-frame, no identity), Record and FrameOutput (the
// durable per-frame output contract), Params (immutable tuning values
// passed explicitly to every component) and the sentinel errors shared by
// the layers.
//
// Layers:
//
//	l1frames  frame supply (image sequence / video → binary mask)
//	l2shape   Shape Analyzer (one blob → ObjectFeatures)
//	l3detect  Frame Detector (binary frame → DetectionSet)
//	l4assign  Cost Model + Assignment Solver
//	l5tracks  Track Lifecycle Manager
//
// Dependency rule: layer N may depend on layers below N and on this
// package, never above. No SQL/database code is allowed outside
// storage/sqlite.
package blobtrack
