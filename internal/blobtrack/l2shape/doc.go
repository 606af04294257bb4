// Package l2shape owns Layer 2 (Shape) of the blob tracking model.
//
// Responsibilities: reduce one isolated blob mask to an oriented,
// head/tail-disambiguated description: image moments, equivalent ellipse,
// rotation without cropping, projection skewness for polarity, half-body
// split and curvature.
// Key function: Analyze.
//
// Dependency rule: L2 may depend on the blobtrack root types only. It never
// touches OpenCV; it works on *image.Gray so it can be tested without cgo.
package l2shape
