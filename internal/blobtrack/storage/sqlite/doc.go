// Package sqlite persists tracking results in a SQLite database.
//
// The schema is owned by the embedded migrations and applied on Open. A
// database holds any number of runs; every tracking row and parameter row
// belongs to exactly one run. Only observed records are stored: poses
// predicted for occluded tracks never reach the tracking table.
//
// Dependency rule: this package may import internal/blobtrack and
// ambient packages (monitoring, timeutil). Algorithm layers (L1-L5) must
// not import it; the pipeline reaches it through pipeline.ResultSink.
package sqlite
