package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/soltest/internal/report"
	"github.com/roach88/soltest/internal/store"
)

// DiffResult is the JSON payload of the diff command.
type DiffResult struct {
	Base        string         `json:"base"`
	Head        string         `json:"head"`
	Changes     []store.Change `json:"changes"`
	Regressions int            `json:"regressions"`
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <db> [base-run] [head-run]",
		Short: "Compare two recorded runs",
		Long: `Compare the unit outcomes of two runs recorded with run --db.

With no run IDs the two most recent runs are compared. With one, that run
is compared against the most recent one.

Exit codes:
  0 - No unit went from passing (or absent) to failing
  1 - At least one regression
  2 - Command error (missing database or run)`,
		Args:          cobra.RangeArgs(1, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(rootOpts, args[0], args[1:], cmd)
		},
	}

	return cmd
}

func runDiff(opts *RootOptions, path string, ids []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	s, err := openHistory(path)
	if err != nil {
		return commandError(formatter, ErrCodeHistory, "failed to open history", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	base, head, err := diffRuns(ctx, s, ids)
	if err != nil {
		return commandError(formatter, ErrCodeHistory, "failed to select runs", err)
	}
	formatter.VerboseLog("Comparing %s against %s", head, base)

	changes, err := s.Diff(ctx, base, head)
	if err != nil {
		return commandError(formatter, ErrCodeHistory, "failed to compare runs", err)
	}

	result := DiffResult{Base: base, Head: head, Changes: changes}
	for _, c := range changes {
		if c.Regression() {
			result.Regressions++
		}
	}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		for _, c := range changes {
			mark := "~"
			switch {
			case c.Regression():
				mark = "✗"
			case c.Before == report.StatusFailed && c.After == report.StatusPassed:
				mark = "✓"
			}
			fmt.Fprintf(formatter.Writer, "%s %s: %s -> %s\n", mark, c.Title, statusOrAbsent(c.Before), statusOrAbsent(c.After))
			if c.Regression() && c.Error != "" {
				fmt.Fprintf(formatter.Writer, "  %s\n", c.Error)
			}
		}
		fmt.Fprintf(formatter.Writer, "\n%d change(s), %d regression(s)\n", len(changes), result.Regressions)
	}

	if result.Regressions > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d regression(s)", result.Regressions))
	}
	return nil
}

// diffRuns picks the base and head run IDs from the arguments, filling in
// from the newest recorded runs.
func diffRuns(ctx context.Context, s *store.Store, ids []string) (base, head string, err error) {
	switch len(ids) {
	case 2:
		return ids[0], ids[1], nil
	case 1:
		head, err = s.LatestRun(ctx)
		return ids[0], head, err
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		return "", "", err
	}
	if len(runs) < 2 {
		return "", "", fmt.Errorf("need two recorded runs, have %d", len(runs))
	}
	return runs[1].ID, runs[0].ID, nil
}

func statusOrAbsent(s report.Status) string {
	if s == "" {
		return "absent"
	}
	return string(s)
}
