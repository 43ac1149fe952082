// Package config loads the YAML run manifest.
//
// A manifest names the artifact directory, the chain to run against and
// the test contracts to register:
//
//	artifacts: build/contracts
//	network:
//	  kind: rpc
//	  url: http://127.0.0.1:8545
//	  private_key_env: SOLTEST_PRIVATE_KEY
//	  dial_timeout: 30s
//	suites:
//	  - contract: SortedDoublyLLFixture
//	    libraries: [SortedDoublyLL]
//	    mode: only
//
// Unknown fields are rejected. A relative artifacts path is resolved
// against the manifest's directory.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/soltest/internal/chain"
	"github.com/roach88/soltest/internal/harness"
	"github.com/roach88/soltest/internal/linker"
	"github.com/roach88/soltest/internal/suite"
)

// Network kinds.
const (
	NetworkSimulated = "simulated"
	NetworkRPC       = "rpc"
)

// DefaultPrivateKeyEnv is read for the deployer key when private_key_env
// is not set.
const DefaultPrivateKeyEnv = "SOLTEST_PRIVATE_KEY"

// ErrMissingPrivateKey is returned by Network.PrivateKey when the key
// variable is unset.
var ErrMissingPrivateKey = errors.New("private key environment variable is not set")

// Manifest is a parsed run manifest.
type Manifest struct {
	Artifacts string  `yaml:"artifacts"`
	Network   Network `yaml:"network"`

	// Filter is a path.Match pattern over test names. Optional.
	Filter string  `yaml:"filter,omitempty"`
	Suites []Suite `yaml:"suites"`
}

// Network selects the chain.
type Network struct {
	Kind          string        `yaml:"kind"`
	URL           string        `yaml:"url,omitempty"`
	PrivateKeyEnv string        `yaml:"private_key_env,omitempty"`
	DialTimeout   time.Duration `yaml:"dial_timeout,omitempty"`
}

// Suite is one test contract to register.
type Suite struct {
	Contract  string   `yaml:"contract"`
	Libraries []string `yaml:"libraries,omitempty"`
	Mode      string   `yaml:"mode,omitempty"`
}

// HarnessMode returns the parsed mode. Only valid after Load.
func (s Suite) HarnessMode() harness.Mode {
	m, _ := harness.ParseMode(s.Mode)
	return m
}

// PrivateKey reads the deployer key from the environment.
func (n Network) PrivateKey() (string, error) {
	env := n.PrivateKeyEnv
	if env == "" {
		env = DefaultPrivateKeyEnv
	}
	key := os.Getenv(env)
	if key == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingPrivateKey, env)
	}
	return key, nil
}

// Timeout returns the dial timeout, defaulting to chain.DefaultDialTimeout.
func (n Network) Timeout() time.Duration {
	if n.DialTimeout == 0 {
		return chain.DefaultDialTimeout
	}
	return n.DialTimeout
}

// Load reads, parses and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if m.Artifacts != "" && !filepath.IsAbs(m.Artifacts) {
		m.Artifacts = filepath.Join(filepath.Dir(path), m.Artifacts)
	}

	if err := validate(m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return m, nil
}

// Parse decodes a manifest with strict field checking and applies
// defaults. It does not validate.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if m.Network.Kind == "" {
		m.Network.Kind = NetworkSimulated
	}
	return &m, nil
}

// validate checks required fields and value ranges.
func validate(m *Manifest) error {
	if m.Artifacts == "" {
		return fmt.Errorf("artifacts is required")
	}
	info, err := os.Stat(m.Artifacts)
	if err != nil {
		return fmt.Errorf("artifacts directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("artifacts is not a directory: %s", m.Artifacts)
	}

	switch m.Network.Kind {
	case NetworkSimulated:
	case NetworkRPC:
		if m.Network.URL == "" {
			return fmt.Errorf("network.url is required for kind %q", NetworkRPC)
		}
	default:
		return fmt.Errorf("network.kind must be %q or %q, got %q", NetworkSimulated, NetworkRPC, m.Network.Kind)
	}
	if m.Network.DialTimeout < 0 {
		return fmt.Errorf("network.dial_timeout must not be negative")
	}

	if m.Filter != "" {
		if err := suite.ValidateFilter(m.Filter); err != nil {
			return err
		}
	}

	if len(m.Suites) == 0 {
		return fmt.Errorf("suites list is required and must be non-empty")
	}
	for i, s := range m.Suites {
		if s.Contract == "" {
			return fmt.Errorf("suites[%d]: contract is required", i)
		}
		if _, ok := harness.ParseMode(s.Mode); !ok {
			return fmt.Errorf("suites[%d]: mode must be empty, \"only\" or \"skip\", got %q", i, s.Mode)
		}
		for j, lib := range s.Libraries {
			if _, err := linker.Placeholder(lib); err != nil {
				return fmt.Errorf("suites[%d].libraries[%d]: %w", i, j, err)
			}
		}
	}
	return nil
}
