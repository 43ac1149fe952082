package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/soltest/internal/artifact"
	"github.com/roach88/soltest/internal/linker"
	"github.com/roach88/soltest/internal/testutil"
)

// placeholder returns the legacy placeholder of lib.
func placeholder(t *testing.T, lib string) string {
	t.Helper()
	p, err := linker.Placeholder(lib)
	require.NoError(t, err)
	return p
}

// writeArtifacts writes each artifact as a Truffle build file into dir.
func writeArtifacts(t *testing.T, dir string, as ...*artifact.Artifact) {
	t.Helper()
	for _, a := range as {
		data, err := json.Marshal(map[string]any{
			"contractName": a.Name,
			"sourcePath":   a.SourcePath,
			"abi":          json.RawMessage(a.RawABI),
			"bytecode":     a.Bytecode,
		})
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, a.Name+".json"), data, 0o644))
	}
}

// fixtureProject lays out a build directory holding the Assert and
// SortedDoublyLL libraries and a Fixture test contract that links both,
// plus a manifest running Fixture. It returns the manifest path.
func fixtureProject(t *testing.T) (manifestPath, buildDir string) {
	t.Helper()
	root := t.TempDir()
	buildDir = filepath.Join(root, "build")
	require.NoError(t, os.Mkdir(buildDir, 0o755))

	bytecode := "0x73" + placeholder(t, "Assert") + "73" + placeholder(t, "SortedDoublyLL")
	writeArtifacts(t, buildDir,
		testutil.LibraryArtifact("Assert"),
		testutil.LibraryArtifact("SortedDoublyLL"),
		testutil.NewArtifact("Fixture", bytecode, "beforeAll", "test_insert", "helper", "test_remove", "afterAll"),
	)

	manifestPath = writeManifest(t, root, `artifacts: build
suites:
  - contract: Fixture
    libraries: [SortedDoublyLL]
`)
	return manifestPath, buildDir
}

// writeManifest writes a soltest.yaml into dir and returns its path.
func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "soltest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
