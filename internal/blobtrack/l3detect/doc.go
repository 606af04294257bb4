// Package l3detect owns Layer 3 (Detection) of the blob tracking model.
//
// Responsibilities: external contour extraction, the area band filter,
// isolation masking of each retained blob, and parallel shape analysis.
// Key types: Detector, FrameDetector.
//
// Dependency rule: L3 may depend on L1-L2 and the blobtrack root types.
package l3detect
