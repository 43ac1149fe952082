package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/soltest/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Test  string // show one test's outcomes instead of the run list
	Limit int    // maximum number of runs, 0 for all
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history <db>",
		Short: "Show runs recorded with run --db",
		Long: `Show the runs recorded in a history database, newest first, or every
recorded outcome of one test with --test.

Examples:
  soltest history .soltest/history.db
  soltest history .soltest/history.db --limit 5
  soltest history .soltest/history.db --test test_insert`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Test, "test", "", "show the outcomes of this test")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show at most this many runs (0 for all)")

	return cmd
}

// openHistory opens an existing history database. Unlike store.Open it
// refuses to create one.
func openHistory(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("history database: %w", err)
	}
	return store.Open(path)
}

func runHistory(opts *HistoryOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	s, err := openHistory(path)
	if err != nil {
		return commandError(formatter, ErrCodeHistory, "failed to open history", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Test != "" {
		entries, err := s.TestHistory(ctx, opts.Test)
		if err != nil {
			return commandError(formatter, ErrCodeHistory, "failed to read history", err)
		}
		if opts.Limit > 0 && len(entries) > opts.Limit {
			entries = entries[:opts.Limit]
		}
		if formatter.Format == "json" {
			return formatter.Success(entries)
		}
		for _, e := range entries {
			fmt.Fprintf(formatter.Writer, "%-36s %s\n", e.RunID, e.Status)
			if e.Error != "" {
				fmt.Fprintf(formatter.Writer, "%-36s   %s\n", "", e.Error)
			}
		}
		return nil
	}

	runs, err := s.ListRuns(ctx, opts.Limit)
	if err != nil {
		return commandError(formatter, ErrCodeHistory, "failed to read history", err)
	}
	if formatter.Format == "json" {
		return formatter.Success(runs)
	}
	for _, r := range runs {
		fmt.Fprintf(formatter.Writer, "%-36s %d passing, %d failing, %d skipped\n",
			r.ID, r.Summary.Passed, r.Summary.Failed, r.Summary.Skipped)
	}
	return nil
}
