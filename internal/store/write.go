package store

import (
	"context"
	"fmt"

	"github.com/roach88/soltest/internal/report"
)

// WriteRun records a report and its outcomes in one transaction.
// Uses ON CONFLICT(id) DO NOTHING for idempotency: a run ID that is already
// stored is left untouched and inserted is false.
func (s *Store) WriteRun(ctx context.Context, rep *report.Report) (inserted bool, err error) {
	if rep.RunID == "" {
		return false, fmt.Errorf("write run: run ID is required")
	}

	snapshot, err := rep.Snapshot()
	if err != nil {
		return false, fmt.Errorf("write run: %w", err)
	}
	summary := rep.Summary()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, passed, failed, skipped, snapshot)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, rep.RunID, summary.Passed, summary.Failed, summary.Skipped, string(snapshot))
	if err != nil {
		return false, fmt.Errorf("write run: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write run: rows affected: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	for _, o := range rep.Outcomes() {
		path, err := marshalPath(o.Path)
		if err != nil {
			return false, fmt.Errorf("write run: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO outcomes (run_id, seq, path, title, kind, status, error)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, rep.RunID, o.Seq, path, o.Title, string(o.Kind), string(o.Status), o.Error); err != nil {
			return false, fmt.Errorf("write outcome %d: %w", o.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write run: commit: %w", err)
	}
	return true, nil
}
