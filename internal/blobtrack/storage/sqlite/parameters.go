package sqlite

import (
	"database/sql"
	"fmt"
)

// Parameter is one tuning key and its value as used by a run.
type Parameter struct {
	Name  string
	Value string
}

// ParameterStore persists the tuning values of each run.
type ParameterStore struct {
	db *sql.DB
}

// NewParameterStore creates a ParameterStore.
func NewParameterStore(db *sql.DB) *ParameterStore {
	return &ParameterStore{db: db}
}

// Save replaces the parameters of runID.
func (s *ParameterStore) Save(runID string, params []Parameter) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save parameters: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`DELETE FROM parameter WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("clear parameters: %w", err)
	}
	for _, p := range params {
		if _, err = tx.Exec(`INSERT INTO parameter (run_id, name, value) VALUES (?, ?, ?)`, runID, p.Name, p.Value); err != nil {
			return fmt.Errorf("insert parameter %s: %w", p.Name, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit parameters: %w", err)
	}
	return nil
}

// List returns the parameters of runID sorted by name.
func (s *ParameterStore) List(runID string) ([]Parameter, error) {
	rows, err := s.db.Query(`SELECT name, value FROM parameter WHERE run_id = ? ORDER BY name`, runID)
	if err != nil {
		return nil, fmt.Errorf("list parameters: %w", err)
	}
	defer rows.Close()

	var params []Parameter
	for rows.Next() {
		var p Parameter
		if err := rows.Scan(&p.Name, &p.Value); err != nil {
			return nil, fmt.Errorf("scan parameter: %w", err)
		}
		params = append(params, p)
	}
	return params, rows.Err()
}
