package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/soltest/internal/linker"
	"github.com/roach88/soltest/internal/testutil"
)

func TestValidate_Valid(t *testing.T) {
	manifest, _ := fixtureProject(t)

	out, err := execute(NewRootCommand(), "validate", manifest)
	require.NoError(t, err)
	assert.Equal(t, "✓ Fixture: 2 test(s), 2 hook(s)\n", out)
}

func TestValidate_UnlinkedLibrary(t *testing.T) {
	manifest, buildDir := fixtureProject(t)
	// SortedDoublyLL is not listed, so its placeholder would survive linking
	writeManifest(t, filepath.Dir(manifest), "artifacts: "+buildDir+"\nsuites:\n  - contract: Fixture\n")

	out, err := execute(NewRootCommand(), "validate", manifest)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.EqualError(t, err, "validation failed for 1 suite(s)")
	assert.Equal(t, "✗ Fixture: unlinked libraries: SortedDoublyLL\n", out)
}

func TestValidate_UnresolvableNames(t *testing.T) {
	manifest, buildDir := fixtureProject(t)
	writeManifest(t, filepath.Dir(manifest), `artifacts: `+buildDir+`
suites:
  - contract: Fixture
    libraries: [SortedDoublyLL]
  - contract: Missing
  - contract: Fixture
    libraries: [Heap]
`)

	out, err := execute(NewRootCommand(), "validate", manifest)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.EqualError(t, err, "validation failed for 2 suite(s)")
	assert.Contains(t, out, "✓ Fixture: 2 test(s), 2 hook(s)\n")
	assert.Contains(t, out, "✗ Missing: artifact not found")
	assert.Contains(t, out, "✗ Fixture: library Heap: ")
}

func TestValidate_JSON(t *testing.T) {
	manifest, buildDir := fixtureProject(t)
	writeManifest(t, filepath.Dir(manifest), `artifacts: `+buildDir+`
suites:
  - contract: Fixture
    libraries: [SortedDoublyLL]
    mode: only
  - contract: Fixture
`)

	out, err := execute(NewRootCommand(), "--format", "json", "validate", manifest)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeArtifact, resp.Error.Code)

	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Suites, 2)

	first := resp.Data.Suites[0]
	assert.True(t, first.OK())
	assert.Equal(t, "only", first.Mode)
	assert.Equal(t, []string{"beforeAll", "afterAll"}, first.Hooks)
	assert.Equal(t, []string{"test_insert", "test_remove"}, first.Tests)

	assert.Equal(t, []string{"SortedDoublyLL"}, resp.Data.Suites[1].Unlinked)
}

func TestValidate_HashedPlaceholder(t *testing.T) {
	root := t.TempDir()
	lib := testutil.LibraryArtifact("MathUtils")
	lib.SourcePath = "contracts/libraries/MathUtils.sol"
	hashed := linker.HashedPlaceholder(lib.SourcePath, "MathUtils")
	writeArtifacts(t, root,
		testutil.LibraryArtifact("Assert"),
		lib,
		testutil.NewArtifact("Fixture", "0x73"+hashed+"73"+placeholder(t, "Assert"), "test_math"),
	)

	// Listed: the hashed placeholder is filled through the library's source path
	listed := writeManifest(t, root, "artifacts: .\nsuites:\n  - contract: Fixture\n    libraries: [MathUtils]\n")
	out, err := execute(NewRootCommand(), "validate", listed)
	require.NoError(t, err)
	assert.Equal(t, "✓ Fixture: 1 test(s), 0 hook(s)\n", out)

	// Unlisted: hashed placeholders carry no name, so the raw slot is reported
	unlisted := writeManifest(t, root, "artifacts: .\nsuites:\n  - contract: Fixture\n")
	out, err = execute(NewRootCommand(), "validate", unlisted)
	require.Error(t, err)
	assert.Equal(t, "✗ Fixture: unlinked libraries: "+hashed+"\n", out)
}

func TestValidate_MissingManifest(t *testing.T) {
	out, err := execute(NewRootCommand(), "validate", filepath.Join(t.TempDir(), "soltest.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]: failed to load manifest")
}
