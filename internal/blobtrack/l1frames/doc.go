// Package l1frames owns Layer 1 (Frames) of the blob tracking model.
//
// Responsibilities: read per-frame masks from an image sequence, a video or
// memory, binarise them and crop them to the region of interest. Decode
// failures surface as blobtrack.ErrFrameUnreadable.
// Key types: Source, Sequence, Video, Images.
//
// Dependency rule: L1 may depend on the blobtrack root types only.
package l1frames
