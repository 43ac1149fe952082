package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/soltest/internal/report"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var fixturePath = []string{"Contract: Fixture", "> Solidity test"}

// createTestReport builds a report with one outcome per status, in order.
func createTestReport(runID string, statuses ...report.Status) *report.Report {
	rep := report.New(runID)
	names := []string{"test_insert", "test_remove", "test_size", "test_clear"}
	for i, status := range statuses {
		o := report.Outcome{
			Seq:    int64(i + 1),
			Path:   fixturePath,
			Title:  names[i%len(names)],
			Kind:   report.KindTest,
			Status: status,
		}
		if status == report.StatusFailed {
			o.Error = "bad state"
		}
		rep.Add(o)
	}
	return rep
}
