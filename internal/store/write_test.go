package store

import (
	"context"
	"testing"

	"github.com/roach88/soltest/internal/report"
)

func TestWriteRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rep := createTestReport("run-0001", report.StatusPassed, report.StatusFailed)

	inserted, err := s.WriteRun(ctx, rep)
	if err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	if !inserted {
		t.Error("WriteRun() reported no insert for a new run")
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM outcomes WHERE run_id = ?", "run-0001").Scan(&count); err != nil {
		t.Fatalf("count outcomes: %v", err)
	}
	if count != 2 {
		t.Errorf("stored %d outcomes, want 2", count)
	}

	var passed, failed, skipped int
	if err := s.db.QueryRow("SELECT passed, failed, skipped FROM runs WHERE id = ?", "run-0001").Scan(&passed, &failed, &skipped); err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if passed != 1 || failed != 1 || skipped != 0 {
		t.Errorf("summary = %d/%d/%d, want 1/1/0", passed, failed, skipped)
	}
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.WriteRun(ctx, createTestReport("run-0001", report.StatusPassed)); err != nil {
		t.Fatalf("first WriteRun() failed: %v", err)
	}

	// Same ID, different content: the stored run wins
	inserted, err := s.WriteRun(ctx, createTestReport("run-0001", report.StatusFailed, report.StatusFailed))
	if err != nil {
		t.Fatalf("second WriteRun() failed: %v", err)
	}
	if inserted {
		t.Error("second WriteRun() with the same ID inserted a run")
	}

	rep, err := s.ReadRun(ctx, "run-0001")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if got := rep.Summary(); got != (report.Summary{Passed: 1}) {
		t.Errorf("summary = %+v, want one passed", got)
	}
}

func TestWriteRun_RequiresID(t *testing.T) {
	s := createTestStore(t)
	if _, err := s.WriteRun(context.Background(), report.New("")); err == nil {
		t.Fatal("WriteRun() accepted a report without run ID")
	}
}

func TestWriteRun_EmptyReport(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.WriteRun(ctx, report.New("run-empty")); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	rep, err := s.ReadRun(ctx, "run-empty")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if len(rep.Outcomes()) != 0 {
		t.Errorf("read %d outcomes, want none", len(rep.Outcomes()))
	}
}
