package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/soltest/internal/report"
)

// RunRecord summarizes one stored run.
type RunRecord struct {
	Ordinal int64          `json:"ordinal"`
	ID      string         `json:"id"`
	Summary report.Summary `json:"summary"`
}

// Entry is one outcome of a test in the history.
type Entry struct {
	RunID  string        `json:"run_id"`
	Path   []string      `json:"path"`
	Status report.Status `json:"status"`
	Error  string        `json:"error,omitempty"`
}

// ReadRun rebuilds the report stored under id.
// Returns ErrRunNotFound if no such run exists.
func (s *Store) ReadRun(ctx context.Context, id string) (*report.Report, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, path, title, kind, status, error
		FROM outcomes
		WHERE run_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	rep := report.New(id)
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		rep.Add(o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return rep, nil
}

// ReadSnapshot returns the canonical snapshot stored with a run.
// Returns ErrRunNotFound if no such run exists.
func (s *Store) ReadSnapshot(ctx context.Context, id string) ([]byte, error) {
	var snapshot string
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM runs WHERE id = ?`, id).Scan(&snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return []byte(snapshot), nil
}

// ListRuns returns stored runs, newest first. A limit of zero or less
// returns every run.
//
// Returns an empty slice (not nil) if no runs are stored.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT ordinal, id, passed, failed, skipped
		FROM runs
		ORDER BY ordinal DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.Ordinal, &r.ID, &r.Summary.Passed, &r.Summary.Failed, &r.Summary.Skipped); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the ID of the most recently written run.
// Returns ErrRunNotFound if the history is empty.
func (s *Store) LatestRun(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM runs ORDER BY ordinal DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: history is empty", ErrRunNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read latest run: %w", err)
	}
	return id, nil
}

// TestHistory returns every recorded outcome of the test named title,
// newest run first. Within a run, outcomes keep their seq order.
//
// Returns an empty slice (not nil) if the test was never recorded.
func (s *Store) TestHistory(ctx context.Context, title string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.run_id, o.path, o.status, o.error
		FROM outcomes o
		JOIN runs r ON o.run_id = r.id
		WHERE o.title = ? AND o.kind = ?
		ORDER BY r.ordinal DESC, o.seq ASC
	`, title, string(report.KindTest))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var path, status string
		if err := rows.Scan(&e.RunID, &path, &status, &e.Error); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if e.Path, err = unmarshalPath(path); err != nil {
			return nil, err
		}
		e.Status = report.Status(status)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// scanOutcome scans a row into an Outcome.
func scanOutcome(rows *sql.Rows) (report.Outcome, error) {
	var o report.Outcome
	var path, kind, status string
	if err := rows.Scan(&o.Seq, &path, &o.Title, &kind, &status, &o.Error); err != nil {
		return report.Outcome{}, fmt.Errorf("scan outcome: %w", err)
	}
	p, err := unmarshalPath(path)
	if err != nil {
		return report.Outcome{}, err
	}
	o.Path = p
	o.Kind = report.Kind(kind)
	o.Status = report.Status(status)
	return o, nil
}
