// Package pipeline provides orchestration for the blob tracking pipeline.
//
// It runs one worker that processes frames strictly in order: detection
// (L1-L3), association and lifecycle (L4-L5), then the result sink and
// observers. The pipeline does not own domain logic; it delegates to the
// layer packages and handles cancellation, skipped frames and fatal
// errors.
package pipeline
