package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/banshee-data/blobtrack/internal/blobtrack"
	"github.com/banshee-data/blobtrack/internal/monitoring"
)

const trackingColumns = `xHead, yHead, tHead, xTail, yTail, tTail, xBody, yBody, tBody,
	curvature, areaBody, perimeterBody,
	headMajorAxisLength, headMinorAxisLength, headExcentricity,
	tailMajorAxisLength, tailMinorAxisLength, tailExcentricity,
	bodyMajorAxisLength, bodyMinorAxisLength, bodyExcentricity,
	imageNumber, id`

const insertTracking = `INSERT INTO tracking (` + trackingColumns + `, run_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// DefaultCommitEvery is the number of frames written per transaction when
// no value is configured.
const DefaultCommitEvery = 50

func recordArgs(runID string, r blobtrack.Record) []any {
	return []any{
		r.Head.X, r.Head.Y, r.Head.Theta,
		r.Tail.X, r.Tail.Y, r.Tail.Theta,
		r.Body.X, r.Body.Y, r.Body.Theta,
		r.Curvature, r.Area, r.Perimeter,
		r.HeadEllipse.Major, r.HeadEllipse.Minor, r.HeadEllipse.Eccentricity,
		r.TailEllipse.Major, r.TailEllipse.Minor, r.TailEllipse.Eccentricity,
		r.BodyEllipse.Major, r.BodyEllipse.Minor, r.BodyEllipse.Eccentricity,
		r.FrameIndex, r.ID,
		runID,
	}
}

func scanRecord(rows *sql.Rows) (blobtrack.Record, error) {
	var r blobtrack.Record
	err := rows.Scan(
		&r.Head.X, &r.Head.Y, &r.Head.Theta,
		&r.Tail.X, &r.Tail.Y, &r.Tail.Theta,
		&r.Body.X, &r.Body.Y, &r.Body.Theta,
		&r.Curvature, &r.Area, &r.Perimeter,
		&r.HeadEllipse.Major, &r.HeadEllipse.Minor, &r.HeadEllipse.Eccentricity,
		&r.TailEllipse.Major, &r.TailEllipse.Minor, &r.TailEllipse.Eccentricity,
		&r.BodyEllipse.Major, &r.BodyEllipse.Minor, &r.BodyEllipse.Eccentricity,
		&r.FrameIndex, &r.ID,
	)
	return r, err
}

// TrackingStore reads and bulk-writes tracking rows.
type TrackingStore struct {
	db *sql.DB
}

// NewTrackingStore creates a TrackingStore.
func NewTrackingStore(db *sql.DB) *TrackingStore {
	return &TrackingStore{db: db}
}

// InsertRecords writes records for runID in a single transaction.
func (s *TrackingStore) InsertRecords(runID string, records []blobtrack.Record) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tracking insert: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(insertTracking)
	if err != nil {
		return fmt.Errorf("prepare tracking insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err = stmt.Exec(recordArgs(runID, r)...); err != nil {
			return fmt.Errorf("insert tracking row (frame %d, id %d): %w", r.FrameIndex, r.ID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tracking insert: %w", err)
	}
	return nil
}

// ListRecords returns the rows of runID ordered by frame, then by
// insertion order within a frame.
func (s *TrackingStore) ListRecords(runID string) ([]blobtrack.Record, error) {
	rows, err := s.db.Query(`SELECT `+trackingColumns+` FROM tracking
		WHERE run_id = ? ORDER BY imageNumber, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("list tracking: %w", err)
	}
	defer rows.Close()

	var records []blobtrack.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tracking row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountRecords returns the number of rows stored for runID.
func (s *TrackingStore) CountRecords(runID string) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM tracking WHERE run_id = ?`, runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tracking: %w", err)
	}
	return n, nil
}

// TrackingSink streams frame snapshots into the tracking table. Frames are
// batched into one transaction that is committed every commitEvery frames
// and on Flush. It is not safe for concurrent use; the pipeline worker is
// its only writer.
type TrackingSink struct {
	db          *sql.DB
	runID       string
	commitEvery int

	tx        *sql.Tx
	stmt      *sql.Stmt
	pending   int // frames in the open transaction
	batchRows int
	committed int
}

// NewTrackingSink creates a sink writing rows tagged with runID.
// commitEvery <= 0 uses DefaultCommitEvery.
func NewTrackingSink(db *sql.DB, runID string, commitEvery int) *TrackingSink {
	if commitEvery <= 0 {
		commitEvery = DefaultCommitEvery
	}
	return &TrackingSink{db: db, runID: runID, commitEvery: commitEvery}
}

// WriteFrame stores the observed records of out. Occluded tracks are
// skipped because their features are predictions. Each frame is written
// under its own savepoint: a failed insert drops only that frame, and the
// frames already in the open transaction are kept for the next commit or
// Flush.
func (s *TrackingSink) WriteFrame(out blobtrack.FrameOutput) error {
	if s.tx == nil {
		if err := s.begin(); err != nil {
			return err
		}
	}
	if _, err := s.tx.Exec(`SAVEPOINT frame`); err != nil {
		return fmt.Errorf("savepoint frame %d: %w", out.FrameIndex, err)
	}
	rows := 0
	for _, r := range out.Observed() {
		if _, err := s.stmt.Exec(recordArgs(s.runID, r)...); err != nil {
			s.dropFrame(out.FrameIndex)
			return fmt.Errorf("insert tracking row (frame %d, id %d): %w", r.FrameIndex, r.ID, err)
		}
		rows++
	}
	if _, err := s.tx.Exec(`RELEASE frame`); err != nil {
		s.dropFrame(out.FrameIndex)
		return fmt.Errorf("release frame %d: %w", out.FrameIndex, err)
	}
	s.batchRows += rows
	s.pending++
	if s.pending >= s.commitEvery {
		return s.commit()
	}
	return nil
}

// Flush commits any open transaction.
func (s *TrackingSink) Flush() error {
	if s.tx == nil {
		return nil
	}
	return s.commit()
}

// Committed returns the number of rows made durable so far.
func (s *TrackingSink) Committed() int { return s.committed }

func (s *TrackingSink) begin() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tracking transaction: %w", err)
	}
	stmt, err := tx.Prepare(insertTracking)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare tracking insert: %w", err)
	}
	s.tx, s.stmt = tx, stmt
	return nil
}

func (s *TrackingSink) commit() error {
	s.stmt.Close()
	err := s.tx.Commit()
	frames, rows := s.pending, s.batchRows
	s.tx, s.stmt, s.pending, s.batchRows = nil, nil, 0, 0
	if err != nil {
		return fmt.Errorf("commit tracking transaction: %w", err)
	}
	s.committed += rows
	monitoring.Logf("[sqlite] run %s: committed %d frames (%d rows)", s.runID, frames, rows)
	return nil
}

// dropFrame undoes the rows of the frame being written. If SQLite already
// aborted the whole transaction the savepoint is gone and the batch is lost.
func (s *TrackingSink) dropFrame(frame int) {
	_, err := s.tx.Exec(`ROLLBACK TO frame`)
	if err == nil {
		_, err = s.tx.Exec(`RELEASE frame`)
	}
	if err != nil {
		monitoring.Logf("[sqlite] run %s: drop frame %d: %v", s.runID, frame, err)
		s.rollback()
	}
}

func (s *TrackingSink) rollback() {
	s.stmt.Close()
	if err := s.tx.Rollback(); err != nil {
		monitoring.Logf("[sqlite] run %s: rollback failed: %v", s.runID, err)
	}
	s.tx, s.stmt, s.pending, s.batchRows = nil, nil, 0, 0
}
