package report

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// ErrGoldenMismatch is returned by CompareGolden when a snapshot differs
// from its golden file.
var ErrGoldenMismatch = errors.New("snapshot does not match golden file")

// AssertGolden compares the report's snapshot against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run the test with -update:
//
//	go test ./internal/suite -update
//
// Returns an error if the report cannot be serialized. A mismatch fails t
// through goldie.
func AssertGolden(t *testing.T, name string, r *Report) error {
	t.Helper()

	snapshot, err := r.Snapshot()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, snapshot)
	return nil
}

// CompareGolden compares the report's snapshot against the golden file at
// path outside of a test. With update set the file is (re)written instead.
func CompareGolden(path string, r *Report, update bool) error {
	snapshot, err := r.Snapshot()
	if err != nil {
		return err
	}

	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create golden dir: %w", err)
		}
		if err := os.WriteFile(path, snapshot, 0o644); err != nil {
			return fmt.Errorf("failed to write golden file: %w", err)
		}
		return nil
	}

	want, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read golden file: %w", err)
	}
	if !bytes.Equal(want, snapshot) {
		return fmt.Errorf("%w: %s", ErrGoldenMismatch, path)
	}
	return nil
}
