package cli

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/soltest/internal/chain"
	"github.com/roach88/soltest/internal/config"
	"github.com/roach88/soltest/internal/report"
	"github.com/roach88/soltest/internal/store"
	"github.com/roach88/soltest/internal/testutil"
)

// newFakeRun returns a run command wired to fake instead of a real chain.
func newFakeRun(fake *testutil.FakeChain, format string) *cobra.Command {
	return newRunCommand(&RunOptions{
		RootOptions: &RootOptions{Format: format},
		IDs:         report.NewFixedIDGenerator("run-0001"),
		OpenChain: func(ctx context.Context, network config.Network, logger *slog.Logger) (chain.Deployer, func() error, error) {
			return fake, func() error { return nil }, nil
		},
	})
}

func TestRun_AllPassing(t *testing.T) {
	manifest, _ := fixtureProject(t)
	fake := testutil.NewFakeChain()

	out, err := execute(newFakeRun(fake, "text"), manifest)
	require.NoError(t, err)

	assert.Equal(t, `Contract: Fixture
  > Solidity test
    ✓ test_insert
    ✓ test_remove

2 passing, 0 failing, 0 skipped
`, out)

	// Assert, SortedDoublyLL, then the fixture itself
	require.Len(t, fake.Deployments(), 3)
	assert.Equal(t, []string{"beforeAll", "test_insert", "test_remove", "afterAll"}, fake.CalledMethods())
}

func TestRun_FailingTest(t *testing.T) {
	manifest, _ := fixtureProject(t)
	fake := testutil.NewFakeChain()
	fake.Script("Fixture", "test_remove", testutil.Receipt(testutil.FailEvent("bad state")), nil)

	out, err := execute(newFakeRun(fake, "text"), manifest)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.EqualError(t, err, "1 unit(s) failed")

	assert.Contains(t, out, "    ✓ test_insert\n")
	assert.Contains(t, out, "    ✗ test_remove\n      bad state\n")
	assert.Contains(t, out, "1 passing, 1 failing, 0 skipped")
}

func TestRun_JSONOutput(t *testing.T) {
	manifest, _ := fixtureProject(t)
	fake := testutil.NewFakeChain()
	fake.Script("Fixture", "test_insert", testutil.Receipt(testutil.FailEvent("size mismatch")), nil)

	out, err := execute(newFakeRun(fake, "json"), manifest)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status  string    `json:"status"`
		Data    RunResult `json:"data"`
		Error   *CLIError `json:"error"`
		TraceID string    `json:"trace_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "run-0001", resp.TraceID)
	assert.Equal(t, "run-0001", resp.Data.RunID)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeFailed, resp.Error.Code)
	assert.Equal(t, report.Summary{Passed: 1, Failed: 1}, resp.Data.Summary)

	require.Len(t, resp.Data.Outcomes, 2)
	assert.Equal(t, "test_insert", resp.Data.Outcomes[0].Title)
	assert.Equal(t, report.StatusFailed, resp.Data.Outcomes[0].Status)
	assert.Equal(t, "size mismatch", resp.Data.Outcomes[0].Error)
	assert.Equal(t, []string{"Contract: Fixture", "> Solidity test"}, resp.Data.Outcomes[0].Path)
}

func TestRun_Filter(t *testing.T) {
	manifest, _ := fixtureProject(t)
	fake := testutil.NewFakeChain()

	out, err := execute(newFakeRun(fake, "text"), manifest, "--filter", "test_ins*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ test_insert")
	assert.NotContains(t, out, "test_remove")
	assert.Contains(t, out, "1 passing, 0 failing, 0 skipped")
}

func TestRun_InvalidFilter(t *testing.T) {
	manifest, _ := fixtureProject(t)
	fake := testutil.NewFakeChain()

	out, err := execute(newFakeRun(fake, "text"), manifest, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E001]: invalid --filter")
	assert.Empty(t, fake.Deployments())
}

func TestRun_SkippedSuite(t *testing.T) {
	manifest, buildDir := fixtureProject(t)
	writeManifest(t, filepath.Dir(manifest), `artifacts: `+buildDir+`
suites:
  - contract: Fixture
    libraries: [SortedDoublyLL]
    mode: skip
`)
	fake := testutil.NewFakeChain()

	out, err := execute(newFakeRun(fake, "text"), manifest)
	require.NoError(t, err)
	assert.Contains(t, out, "    - test_insert (skipped)\n")
	assert.Contains(t, out, "0 passing, 0 failing, 2 skipped")

	// Skipped suites never touch the chain
	assert.Empty(t, fake.Deployments())
}

func TestRun_Golden(t *testing.T) {
	manifest, _ := fixtureProject(t)
	golden := filepath.Join(t.TempDir(), "golden", "run.golden")

	_, err := execute(newFakeRun(testutil.NewFakeChain(), "text"), manifest, "--golden", golden, "--update")
	require.NoError(t, err)
	written, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(written), `"summary":{"failed":0,"passed":2,"skipped":0}`)

	// A second run with fresh IDs still matches
	_, err = execute(newFakeRun(testutil.NewFakeChain(), "text"), manifest, "--golden", golden)
	require.NoError(t, err)

	// A behavior change does not
	fake := testutil.NewFakeChain()
	fake.Script("Fixture", "test_remove", testutil.Receipt(testutil.FailEvent("bad state")), nil)
	out, err := execute(newFakeRun(fake, "text"), manifest, "--golden", golden)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, report.ErrGoldenMismatch)
	assert.Contains(t, out, "Error [E011]")
}

func TestRun_GoldenMissingFile(t *testing.T) {
	manifest, _ := fixtureProject(t)
	golden := filepath.Join(t.TempDir(), "absent.golden")

	_, err := execute(newFakeRun(testutil.NewFakeChain(), "text"), manifest, "--golden", golden)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_UpdateRequiresGolden(t *testing.T) {
	manifest, _ := fixtureProject(t)

	out, err := execute(newFakeRun(testutil.NewFakeChain(), "text"), manifest, "--update")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "--update requires --golden")
}

func TestRun_RecordsHistory(t *testing.T) {
	manifest, _ := fixtureProject(t)
	db := filepath.Join(t.TempDir(), ".soltest", "history.db")

	fake := testutil.NewFakeChain()
	fake.Script("Fixture", "test_remove", testutil.Receipt(testutil.FailEvent("bad state")), nil)
	_, err := execute(newFakeRun(fake, "text"), manifest, "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	// Recording the same run ID again leaves one entry
	_, err = execute(newFakeRun(fake, "text"), manifest, "--db", db)
	require.Error(t, err)

	s, err := store.Open(db)
	require.NoError(t, err)
	defer s.Close()

	runs, err := s.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-0001", runs[0].ID)
	assert.Equal(t, report.Summary{Passed: 1, Failed: 1}, runs[0].Summary)

	entries, err := s.TestHistory(context.Background(), "test_remove")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "bad state", entries[0].Error)
}

func TestRun_HistoryUnavailable(t *testing.T) {
	manifest, _ := fixtureProject(t)
	// A directory cannot be opened as a database
	db := t.TempDir()

	out, err := execute(newFakeRun(testutil.NewFakeChain(), "text"), manifest, "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E007]")
}

func TestRun_CommandErrors(t *testing.T) {
	t.Run("missing manifest", func(t *testing.T) {
		out, err := execute(newFakeRun(testutil.NewFakeChain(), "text"), filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, "Error [E002]")
	})

	t.Run("unknown contract", func(t *testing.T) {
		manifest, buildDir := fixtureProject(t)
		writeManifest(t, filepath.Dir(manifest), "artifacts: "+buildDir+"\nsuites:\n  - contract: Missing\n")

		out, err := execute(newFakeRun(testutil.NewFakeChain(), "text"), manifest)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, "Error [E005]")
		assert.Contains(t, out, "Missing")
	})

	t.Run("chain unreachable", func(t *testing.T) {
		manifest, _ := fixtureProject(t)
		cmd := newRunCommand(&RunOptions{
			RootOptions: &RootOptions{Format: "json"},
			OpenChain: func(context.Context, config.Network, *slog.Logger) (chain.Deployer, func() error, error) {
				return nil, nil, errors.New("dial tcp 127.0.0.1:8545: connection refused")
			},
		})

		out, err := execute(cmd, manifest)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))

		var resp CLIResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrCodeChain, resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "connection refused")
	})
}

func TestRun_SimulatedChain(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping simulated chain run in short mode")
	}

	root := t.TempDir()
	// Init code that embeds the Assert address, then returns a one-byte
	// STOP runtime.
	bytecode := "0x73" + placeholder(t, "Assert") + "50" + "6001602260003960016000f300"
	writeArtifacts(t, root,
		testutil.LibraryArtifact("Assert"),
		testutil.NewArtifact("Smoke", bytecode, "beforeEach", "test_runs", "test_runs_again"),
	)
	manifest := writeManifest(t, root, "artifacts: .\nsuites:\n  - contract: Smoke\n")

	out, err := execute(NewRootCommand(), "run", manifest)
	require.NoError(t, err)
	assert.Contains(t, out, "Contract: Smoke\n")
	assert.Contains(t, out, "✓ test_runs\n")
	assert.Contains(t, out, "2 passing, 0 failing, 0 skipped")
}
