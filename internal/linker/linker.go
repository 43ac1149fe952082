// Package linker links deployed library addresses into contract bytecode.
//
// Solidity compilers leave a 40-character placeholder wherever a contract
// calls an external library. The legacy form is two underscores, the
// library name, and underscore padding:
//
//	__SortedDoublyLL________________________
//
// Newer compilers use "__$" + the first 34 hex characters of
// keccak256("<source path>:<name>") + "$__". Linking replaces every
// occurrence with the library's address as 40 lowercase hex characters.
package linker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/roach88/soltest/internal/artifact"
	"github.com/roach88/soltest/internal/chain"
)

// AddressHexLength is the length of an address in hex, and therefore of
// every placeholder.
const AddressHexLength = 40

// MaxLibraryName is the longest library name a placeholder can hold.
const MaxLibraryName = AddressHexLength - prefixLength

const (
	fill            = "_"
	prefixLength    = 2
	hashedHexLength = 34
)

var (
	// ErrNameTooLong is returned when a library name does not fit the
	// placeholder slot.
	ErrNameTooLong = errors.New("library name too long for placeholder slot")

	// ErrEmptyName is returned for an empty library name.
	ErrEmptyName = errors.New("library name is empty")
)

// Placeholder builds the legacy placeholder for a library name.
func Placeholder(name string) (string, error) {
	if name == "" {
		return "", ErrEmptyName
	}
	if len(name) > MaxLibraryName {
		return "", fmt.Errorf("%w: %q is %d characters, at most %d fit", ErrNameTooLong, name, len(name), MaxLibraryName)
	}
	suffix := AddressHexLength - prefixLength - len(name)
	return strings.Repeat(fill, prefixLength) + name + strings.Repeat(fill, suffix), nil
}

// HashedPlaceholder builds the placeholder used by solc 0.5 and later for
// the fully qualified library name "<sourcePath>:<name>".
func HashedPlaceholder(sourcePath, name string) string {
	hash := crypto.Keccak256([]byte(sourcePath + ":" + name))
	return "__$" + common.Bytes2Hex(hash)[:hashedHexLength] + "$__"
}

// Link returns bytecode with every occurrence of placeholder replaced by
// addr in lowercase hex without the 0x prefix.
func Link(bytecode, placeholder string, addr common.Address) string {
	if placeholder == "" {
		return bytecode
	}
	return strings.ReplaceAll(bytecode, placeholder, common.Bytes2Hex(addr.Bytes()))
}

// Linker deploys libraries and links them into contract artifacts.
type Linker struct {
	resolver artifact.Resolver
	deployer chain.Deployer
	logger   *slog.Logger
}

// Option configures a Linker.
type Option func(*Linker)

// WithLogger sets the logger. Defaults to discarding output.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Linker) {
		l.logger = logger
	}
}

// New creates a Linker that resolves library artifacts with resolver and
// deploys them with deployer.
func New(resolver artifact.Resolver, deployer chain.Deployer, opts ...Option) *Linker {
	l := &Linker{
		resolver: resolver,
		deployer: deployer,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LinkLibrary deploys a fresh instance of the named library and rewrites
// target.Bytecode in place so every placeholder for it points at the new
// instance. Each call deploys again, even for a library linked before.
func (l *Linker) LinkLibrary(ctx context.Context, target *artifact.Artifact, library string) error {
	placeholder, err := Placeholder(library)
	if err != nil {
		return err
	}

	lib, err := l.resolver.Resolve(library)
	if err != nil {
		return fmt.Errorf("failed to resolve library %s: %w", library, err)
	}

	inst, err := l.deployer.Deploy(ctx, lib)
	if err != nil {
		return fmt.Errorf("failed to deploy library %s: %w", library, err)
	}
	addr := inst.Address()

	linked := Link(target.Bytecode, placeholder, addr)
	if lib.SourcePath != "" {
		linked = Link(linked, HashedPlaceholder(lib.SourcePath, library), addr)
	}
	replaced := linked != target.Bytecode
	target.Bytecode = linked

	l.logger.Info("library linked",
		"contract", target.Name,
		"library", library,
		"address", addr.Hex(),
		"replaced", replaced,
	)
	return nil
}
