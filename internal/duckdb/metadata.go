package duckdb

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Run describes one pipeline invocation.
type Run struct {
	ID         int64
	StartedAt  time.Time
	Phenotype  string
	Covariates []string
	WindowKB   float64
	Correction string
}

// BeginRun records a new run and returns its id.
func (s *Store) BeginRun(r Run) (int64, error) {
	var id int64
	if err := s.x.Get(&id, `SELECT COALESCE(MAX(run_id), 0) + 1 FROM runs`); err != nil {
		return 0, fmt.Errorf("next run id: %w", err)
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	_, err := s.db.Exec(`INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?)`,
		id, r.StartedAt, r.Phenotype, strings.Join(r.Covariates, ","), r.WindowKB, r.Correction)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// RecordInput stores the fingerprint of an input file used by a run.
func (s *Store) RecordInput(runID int64, role string, fp FileFingerprint) error {
	_, err := s.db.Exec(`INSERT INTO run_inputs VALUES (?, ?, ?, ?, ?)`,
		runID, role, fp.Path, fp.Size, fp.ModTime)
	if err != nil {
		return fmt.Errorf("insert run input: %w", err)
	}
	return nil
}

// inputRow is one row of run_inputs.
type inputRow struct {
	Role    string    `db:"role"`
	Path    string    `db:"path"`
	Size    int64     `db:"size"`
	ModTime time.Time `db:"mod_time"`
}

// Inputs returns the recorded input fingerprints of a run keyed by role.
func (s *Store) Inputs(runID int64) (map[string]FileFingerprint, error) {
	var rows []inputRow
	if err := s.x.Select(&rows, `SELECT role, path, size, mod_time FROM run_inputs WHERE run_id = ?`, runID); err != nil {
		return nil, fmt.Errorf("query run inputs: %w", err)
	}
	inputs := make(map[string]FileFingerprint, len(rows))
	for _, r := range rows {
		inputs[r.Role] = FileFingerprint{Path: r.Path, Size: r.Size, ModTime: r.ModTime}
	}
	return inputs, nil
}

// runRow is one row of runs.
type runRow struct {
	ID         int64     `db:"run_id"`
	StartedAt  time.Time `db:"started_at"`
	Phenotype  string    `db:"phenotype"`
	Covariates string    `db:"covariates"`
	WindowKB   float64   `db:"window_kb"`
	Correction string    `db:"correction"`
}

// Runs returns all recorded runs, oldest first.
func (s *Store) Runs() ([]Run, error) {
	var rows []runRow
	if err := s.x.Select(&rows, `SELECT * FROM runs ORDER BY run_id`); err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	runs := make([]Run, len(rows))
	for i, r := range rows {
		runs[i] = Run{
			ID:         r.ID,
			StartedAt:  r.StartedAt,
			Phenotype:  r.Phenotype,
			WindowKB:   r.WindowKB,
			Correction: r.Correction,
		}
		if r.Covariates != "" {
			runs[i].Covariates = strings.Split(r.Covariates, ",")
		}
	}
	return runs, nil
}

// LatestRun returns the id of the most recent run, or 0 if there is none.
func (s *Store) LatestRun() (int64, error) {
	var id int64
	if err := s.x.Get(&id, `SELECT COALESCE(MAX(run_id), 0) FROM runs`); err != nil {
		return 0, fmt.Errorf("latest run: %w", err)
	}
	return id, nil
}
