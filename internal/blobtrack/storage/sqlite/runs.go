package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/blobtrack/internal/timeutil"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunComplete  RunStatus = "complete"
	RunCancelled RunStatus = "cancelled"
	RunFailed    RunStatus = "failed"
)

// ErrRunNotFound is returned when a run id (or any run at all) is missing.
var ErrRunNotFound = errors.New("run not found")

// Run is one tracking pass over a source.
type Run struct {
	ID         string     `json:"run_id"`
	Source     string     `json:"source"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     RunStatus  `json:"status"`
	LastFrame  int        `json:"last_frame"`
	Message    string     `json:"message,omitempty"`
}

// RunStore is the run registry.
type RunStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewRunStore creates a RunStore. A nil clock uses the real clock.
func NewRunStore(db *sql.DB, clock timeutil.Clock) *RunStore {
	return &RunStore{db: db, clock: timeutil.OrReal(clock)}
}

// Create registers a new running run for source.
func (s *RunStore) Create(source string) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Source:    source,
		StartedAt: s.clock.Now(),
		Status:    RunRunning,
		LastFrame: -1,
	}
	_, err := s.db.Exec(`
		INSERT INTO runs (run_id, source, started_at, status, last_frame)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Source, run.StartedAt.UnixNano(), string(run.Status), run.LastFrame)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// Finish records the terminal state of a run.
func (s *RunStore) Finish(id string, status RunStatus, lastFrame int, message string) error {
	if status == RunRunning {
		return fmt.Errorf("finish run %s: status %q is not terminal", id, status)
	}
	res, err := s.db.Exec(`
		UPDATE runs SET finished_at = ?, status = ?, last_frame = ?, message = ?
		WHERE run_id = ?
	`, s.clock.Now().UnixNano(), string(status), lastFrame, nullString(message), id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// Get returns the run with id.
func (s *RunStore) Get(id string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, source, started_at, finished_at, status, last_frame, message
		FROM runs WHERE run_id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// Latest returns the most recently started run.
func (s *RunStore) Latest() (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, source, started_at, finished_at, status, last_frame, message
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1
	`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// List returns every run, oldest first.
func (s *RunStore) List() ([]*Run, error) {
	rows, err := s.db.Query(`
		SELECT run_id, source, started_at, finished_at, status, last_frame, message
		FROM runs ORDER BY started_at, rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run        Run
		startedAt  int64
		finishedAt sql.NullInt64
		status     string
		message    sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Source, &startedAt, &finishedAt, &status, &run.LastFrame, &message); err != nil {
		return nil, err
	}
	run.StartedAt = time.Unix(0, startedAt)
	if finishedAt.Valid {
		t := time.Unix(0, finishedAt.Int64)
		run.FinishedAt = &t
	}
	run.Status = RunStatus(status)
	run.Message = message.String
	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
