// Run table operations: CRUD over SQLite with write-through JSONL persistence.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/geoforge/roofmat/pkg/types"
)

// RunFilter narrows ListRuns results. Empty fields match everything;
// set fields are ANDed together.
type RunFilter struct {
	Kind       string
	State      string
	ExpVersion string
}

// SaveRun inserts or replaces a run record and persists the registry to
// runs.jsonl. An empty RunID is assigned a new UUID v7.
func (s *Store) SaveRun(run *types.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return types.ErrStoreDetached
	}
	if !types.ValidKind(run.Kind) {
		return types.ErrInvalidKind
	}
	if !types.ValidState(run.State) {
		return types.ErrInvalidState
	}
	if run.RunID == "" {
		run.RunID = NewRunID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	if err := s.upsertRun(run); err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	return s.persistRuns()
}

// GetRun returns the run with the given ID, or ErrNotFound.
func (s *Store) GetRun(runID string) (*types.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.attached {
		return nil, types.ErrStoreDetached
	}

	row := s.db.QueryRow(selectRuns+` WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs matching the filter, newest first.
func (s *Store) ListRuns(filter RunFilter) ([]*types.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.attached {
		return nil, types.ErrStoreDetached
	}

	query := selectRuns
	var (
		clauses []string
		args    []any
	)
	if filter.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.State != "" {
		clauses = append(clauses, "state = ?")
		args = append(args, filter.State)
	}
	if filter.ExpVersion != "" {
		clauses = append(clauses, "exp_version = ?")
		args = append(args, filter.ExpVersion)
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY created_at DESC, run_id DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*types.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run from the registry. Returns ErrNotFound if the
// run does not exist.
func (s *Store) DeleteRun(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return types.ErrStoreDetached
	}

	res, err := s.db.Exec(`DELETE FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return s.persistRuns()
}

// AttachMetrics records the ingested metrics file path on a run.
func (s *Store) AttachMetrics(runID, metricsPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return types.ErrStoreDetached
	}

	res, err := s.db.Exec(`UPDATE runs SET metrics_path = ? WHERE run_id = ?`, metricsPath, runID)
	if err != nil {
		return fmt.Errorf("attach metrics: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return s.persistRuns()
}

const selectRuns = `SELECT run_id, kind, exp_version, state, command,
	output_dir, metrics_path, log_path, exit_code, notes,
	created_at, started_at, finished_at FROM runs`

// upsertRun writes a run into SQLite. Caller holds the write lock.
func (s *Store) upsertRun(run *types.Run) error {
	command, err := json.Marshal(run.Command)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO runs
		(run_id, kind, exp_version, state, command, output_dir, metrics_path,
		 log_path, exit_code, notes, created_at, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Kind, run.ExpVersion, run.State, string(command),
		run.OutputDir, run.MetricsPath, run.LogPath, run.ExitCode, run.Notes,
		formatTime(run.CreatedAt), formatTime(run.StartedAt), formatTime(run.FinishedAt),
	)
	return err
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*types.Run, error) {
	var (
		run     types.Run
		command string
		created string
		started sql.NullString
		finish  sql.NullString
	)
	err := row.Scan(&run.RunID, &run.Kind, &run.ExpVersion, &run.State,
		&command, &run.OutputDir, &run.MetricsPath, &run.LogPath,
		&run.ExitCode, &run.Notes, &created, &started, &finish)
	if err != nil {
		return nil, err
	}
	if command != "" {
		if err := json.Unmarshal([]byte(command), &run.Command); err != nil {
			return nil, fmt.Errorf("decode command: %w", err)
		}
	}
	run.CreatedAt = parseTime(created)
	if started.Valid {
		run.StartedAt = parseTime(started.String)
	}
	if finish.Valid {
		run.FinishedAt = parseTime(finish.String)
	}
	return &run, nil
}

// timeLayout is RFC 3339 with a fixed-width nanosecond fraction.
// RFC3339Nano trims trailing zeros, which breaks the lexicographic
// ordering ORDER BY created_at relies on.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTime renders a timestamp for storage; zero times become "".
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// parseTime is the inverse of formatTime; unparseable or empty values
// yield the zero time.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// loadRunsJSONL loads runs.jsonl into the fresh SQLite database. Caller
// holds the write lock (during Attach).
func (s *Store) loadRunsJSONL() error {
	records, err := readJSONL(s.runsJSONLPath())
	if err != nil {
		return err
	}
	for _, rec := range records {
		var run types.Run
		if err := json.Unmarshal(rec, &run); err != nil {
			// Skip records that do not decode as runs.
			continue
		}
		if run.RunID == "" {
			continue
		}
		if err := s.upsertRun(&run); err != nil {
			return err
		}
	}
	return nil
}

// persistRuns rewrites runs.jsonl from the current SQLite contents.
// Caller holds the write lock.
func (s *Store) persistRuns() error {
	rows, err := s.db.Query(selectRuns + ` ORDER BY created_at, run_id`)
	if err != nil {
		return fmt.Errorf("query for persist: %w", err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return fmt.Errorf("scan for persist: %w", err)
		}
		rec, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("marshal run: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return writeJSONL(s.runsJSONLPath(), records)
}
