package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/soltest/internal/artifact"
	"github.com/roach88/soltest/internal/chain"
	"github.com/roach88/soltest/internal/config"
	"github.com/roach88/soltest/internal/harness"
	"github.com/roach88/soltest/internal/report"
	"github.com/roach88/soltest/internal/store"
	"github.com/roach88/soltest/internal/suite"
)

// ChainOpener opens the chain a manifest names. The returned close func
// releases it.
type ChainOpener func(ctx context.Context, network config.Network, logger *slog.Logger) (chain.Deployer, func() error, error)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Filter string // test name filter (glob pattern), overrides the manifest
	Golden string // golden report file
	Update bool   // rewrite the golden file instead of comparing
	DB     string // run history database; empty disables recording

	// IDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs report.IDGenerator

	// OpenChain allows overriding how the chain is opened (for testing).
	// If nil, defaults to OpenChain.
	OpenChain ChainOpener
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	RunID    string           `json:"run_id"`
	Summary  report.Summary   `json:"summary"`
	Outcomes []report.Outcome `json:"outcomes"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <manifest>",
		Short: "Run the Solidity test suites of a manifest",
		Long: `Run every test contract listed in a manifest.

Each contract gets the Assert library and its listed libraries linked into
its bytecode, is deployed once, and has its hooks and test* functions
invoked in interface order. A TestEvent with a false result fails the test
with the event's message.

Exit codes:
  0 - All tests passed
  1 - One or more tests failed, or the golden file does not match
  2 - Command error (invalid manifest, unknown contract, chain unreachable)

Examples:
  soltest run soltest.yaml
  soltest run soltest.yaml --filter "test_insert*"
  soltest run soltest.yaml --golden testdata/run.golden --update
  soltest run soltest.yaml --db .soltest/history.db
  soltest run soltest.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuites(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "run only tests whose name matches the glob pattern")
	cmd.Flags().StringVar(&opts.Golden, "golden", "", "compare the run report with this golden file")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite the golden file")
	cmd.Flags().StringVar(&opts.DB, "db", "", "record the run in this SQLite history database")

	return cmd
}

// OpenChain opens the in-process simulated chain or dials the manifest's
// RPC node.
func OpenChain(ctx context.Context, network config.Network, logger *slog.Logger) (chain.Deployer, func() error, error) {
	if network.Kind == config.NetworkRPC {
		key, err := network.PrivateKey()
		if err != nil {
			return nil, nil, err
		}
		evm, err := chain.Dial(ctx, network.URL, key, network.Timeout(), chain.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return evm, evm.Close, nil
	}

	evm, err := chain.NewSimulated(chain.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return evm, evm.Close, nil
}

func runSuites(opts *RunOptions, manifestPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, formatter.GetErrWriter())

	if opts.Update && opts.Golden == "" {
		return commandError(formatter, ErrCodeGeneric, "--update requires --golden", nil)
	}

	m, err := config.Load(manifestPath)
	if err != nil {
		return commandError(formatter, ErrCodeManifest, "failed to load manifest", err)
	}
	filter := m.Filter
	if opts.Filter != "" {
		filter = opts.Filter
	}
	if filter != "" {
		if err := suite.ValidateFilter(filter); err != nil {
			return commandError(formatter, ErrCodeGeneric, "invalid --filter", err)
		}
	}

	// Cancel in-flight chain calls on Ctrl-C
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	openChain := opts.OpenChain
	if openChain == nil {
		openChain = OpenChain
	}
	deployer, closeChain, err := openChain(ctx, m.Network, logger)
	if err != nil {
		return commandError(formatter, ErrCodeChain, "failed to open chain", err)
	}
	defer func() {
		if closeErr := closeChain(); closeErr != nil {
			logger.Error("error closing chain", "error", closeErr)
		}
	}()

	ids := opts.IDs
	if ids == nil {
		ids = report.UUIDv7Generator{}
	}
	resolver := artifact.NewDirResolver(m.Artifacts)
	h := harness.New(resolver, deployer, harness.WithLogger(logger))
	runner := suite.New(
		suite.WithLogger(logger),
		suite.WithIDGenerator(ids),
		suite.WithFilter(filter),
	)

	for _, s := range m.Suites {
		formatter.VerboseLog("Registering %s (libraries: %s)", s.Contract, strings.Join(s.Libraries, ", "))
		if err := h.RegisterMode(runner, s.HarnessMode(), s.Contract, s.Libraries...); err != nil {
			return commandError(formatter, ErrCodeRegister, "failed to register suite", err)
		}
	}

	rep := runner.Run(ctx)

	if opts.DB != "" {
		if err := recordRun(ctx, opts.DB, rep); err != nil {
			return commandError(formatter, ErrCodeHistory, "failed to record run", err)
		}
		formatter.VerboseLog("Recorded run %s in %s", rep.RunID, opts.DB)
	}

	if opts.Golden != "" {
		if err := report.CompareGolden(opts.Golden, rep, opts.Update); err != nil {
			code := ExitCommandError
			if errors.Is(err, report.ErrGoldenMismatch) {
				code = ExitFailure
			}
			_ = formatter.Error(ErrCodeGolden, err.Error(), nil)
			return WrapExitError(code, "golden comparison failed", err)
		}
		if opts.Update {
			formatter.VerboseLog("Golden file %s updated", opts.Golden)
		} else {
			formatter.VerboseLog("Golden file %s matches", opts.Golden)
		}
	}

	return outputRun(formatter, rep)
}

// recordRun appends rep to the history database at path.
func recordRun(ctx context.Context, path string, rep *report.Report) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create history dir: %w", err)
		}
	}
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()

	_, err = s.WriteRun(ctx, rep)
	return err
}

// outputRun prints the report and maps failures to exit code 1.
func outputRun(formatter *OutputFormatter, rep *report.Report) error {
	s := rep.Summary()

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "ok",
			Data: RunResult{
				RunID:    rep.RunID,
				Summary:  s,
				Outcomes: rep.Outcomes(),
			},
			TraceID: rep.RunID,
		}
		if s.Failed > 0 {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    ErrCodeFailed,
				Message: fmt.Sprintf("%d unit(s) failed", s.Failed),
			}
		}
		if err := encodeIndented(formatter.Writer, response); err != nil {
			return err
		}
	} else {
		writeOutcomes(formatter.Writer, rep.Outcomes())
		fmt.Fprintf(formatter.Writer, "\n%d passing, %d failing, %d skipped\n", s.Passed, s.Failed, s.Skipped)
	}

	if s.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d unit(s) failed", s.Failed))
	}
	return nil
}

// writeOutcomes prints outcomes as an indented tree, opening a group line
// whenever the path changes.
func writeOutcomes(w io.Writer, outcomes []report.Outcome) {
	var open []string
	for _, o := range outcomes {
		common := 0
		for common < len(open) && common < len(o.Path) && open[common] == o.Path[common] {
			common++
		}
		for i := common; i < len(o.Path); i++ {
			fmt.Fprintf(w, "%s%s\n", indent(i), o.Path[i])
		}
		open = o.Path

		pad := indent(len(o.Path))
		switch o.Status {
		case report.StatusPassed:
			fmt.Fprintf(w, "%s✓ %s\n", pad, o.Title)
		case report.StatusSkipped:
			fmt.Fprintf(w, "%s- %s (skipped)\n", pad, o.Title)
		default:
			fmt.Fprintf(w, "%s✗ %s\n", pad, o.Title)
			fmt.Fprintf(w, "%s  %s\n", pad, o.Error)
		}
	}
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}
