package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/soltest/internal/chain"
	"github.com/roach88/soltest/internal/harness"
	"github.com/roach88/soltest/internal/linker"
)

// writeManifest writes content to soltest.yaml in a temp dir that also
// holds an empty build/contracts directory.
func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "build", "contracts"), 0755))
	path := filepath.Join(dir, "soltest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	path := writeManifest(t, `
artifacts: build/contracts
network:
  kind: rpc
  url: http://127.0.0.1:8545
  private_key_env: DEPLOYER_KEY
  dial_timeout: 45s
filter: "test_insert*"
suites:
  - contract: SortedDoublyLLFixture
    libraries: [SortedDoublyLL]
    mode: only
  - contract: MathUtilsTest
`)

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(filepath.Dir(path), "build", "contracts"), m.Artifacts)
	assert.Equal(t, NetworkRPC, m.Network.Kind)
	assert.Equal(t, "http://127.0.0.1:8545", m.Network.URL)
	assert.Equal(t, 45*time.Second, m.Network.Timeout())
	assert.Equal(t, "test_insert*", m.Filter)

	require.Len(t, m.Suites, 2)
	assert.Equal(t, "SortedDoublyLLFixture", m.Suites[0].Contract)
	assert.Equal(t, []string{"SortedDoublyLL"}, m.Suites[0].Libraries)
	assert.Equal(t, harness.ModeOnly, m.Suites[0].HarnessMode())
	assert.Empty(t, m.Suites[1].Libraries)
	assert.Equal(t, harness.ModeNormal, m.Suites[1].HarnessMode())
}

func TestLoad_Defaults(t *testing.T) {
	path := writeManifest(t, `
artifacts: build/contracts
suites:
  - contract: Fixture
`)

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, NetworkSimulated, m.Network.Kind)
	assert.Equal(t, chain.DefaultDialTimeout, m.Network.Timeout())
}

func TestLoad_AbsoluteArtifactsPath(t *testing.T) {
	abs := t.TempDir()
	path := writeManifest(t, "artifacts: "+abs+"\nsuites:\n  - contract: Fixture\n")

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, abs, m.Artifacts)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read manifest")
}

func TestLoad_UnknownField(t *testing.T) {
	path := writeManifest(t, `
artifacts: build/contracts
suite:
  - contract: Fixture
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing artifacts",
			content: "suites:\n  - contract: Fixture\n",
			wantErr: "artifacts is required",
		},
		{
			name:    "artifacts dir missing",
			content: "artifacts: out\nsuites:\n  - contract: Fixture\n",
			wantErr: "artifacts directory",
		},
		{
			name:    "no suites",
			content: "artifacts: build/contracts\n",
			wantErr: "suites list is required",
		},
		{
			name:    "empty contract",
			content: "artifacts: build/contracts\nsuites:\n  - libraries: [A]\n",
			wantErr: "suites[0]: contract is required",
		},
		{
			name:    "bad mode",
			content: "artifacts: build/contracts\nsuites:\n  - contract: Fixture\n    mode: exclusive\n",
			wantErr: `got "exclusive"`,
		},
		{
			name:    "library name too long",
			content: "artifacts: build/contracts\nsuites:\n  - contract: Fixture\n    libraries: [" + strings.Repeat("L", linker.MaxLibraryName+1) + "]\n",
			wantErr: "suites[0].libraries[0]: library name too long",
		},
		{
			name:    "unknown network",
			content: "artifacts: build/contracts\nnetwork:\n  kind: ganache\nsuites:\n  - contract: Fixture\n",
			wantErr: "network.kind must be",
		},
		{
			name:    "rpc without url",
			content: "artifacts: build/contracts\nnetwork:\n  kind: rpc\nsuites:\n  - contract: Fixture\n",
			wantErr: "network.url is required",
		},
		{
			name:    "negative timeout",
			content: "artifacts: build/contracts\nnetwork:\n  dial_timeout: -1s\nsuites:\n  - contract: Fixture\n",
			wantErr: "dial_timeout must not be negative",
		},
		{
			name:    "bad filter",
			content: "artifacts: build/contracts\nfilter: \"test_[\"\nsuites:\n  - contract: Fixture\n",
			wantErr: "invalid filter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeManifest(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid manifest")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNetwork_PrivateKey(t *testing.T) {
	t.Setenv("DEPLOYER_KEY", "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")

	key, err := Network{PrivateKeyEnv: "DEPLOYER_KEY"}.PrivateKey()
	require.NoError(t, err)
	assert.Equal(t, "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291", key)

	t.Setenv(DefaultPrivateKeyEnv, "")
	_, err = Network{}.PrivateKey()
	require.ErrorIs(t, err, ErrMissingPrivateKey)
	assert.Contains(t, err.Error(), DefaultPrivateKeyEnv)
}
