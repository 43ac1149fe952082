package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/soltest/internal/artifact"
	"github.com/roach88/soltest/internal/chain"
	"github.com/roach88/soltest/internal/linker"
)

// AssertLibrary is linked into every test contract before any other
// library.
const AssertLibrary = "Assert"

// SolidityGroupLabel labels the scope holding a contract's hooks and tests.
const SolidityGroupLabel = "> Solidity test"

// ContractGroupLabel returns the label of a contract's outer scope.
func ContractGroupLabel(contract string) string {
	return "Contract: " + contract
}

// Harness registers Solidity test contracts with a Host.
type Harness struct {
	resolver artifact.Resolver
	deployer chain.Deployer
	linker   *linker.Linker
	logger   *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger. Defaults to discarding output.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// New creates a Harness resolving artifacts with resolver and deploying
// through deployer.
func New(resolver artifact.Resolver, deployer chain.Deployer, opts ...Option) *Harness {
	h := &Harness{
		resolver: resolver,
		deployer: deployer,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.linker = linker.New(resolver, deployer, linker.WithLogger(h.logger))
	return h
}

// Register registers the contract's hooks and tests with host. libraries
// are linked, in order, after the Assert library.
func (h *Harness) Register(host Host, contract string, libraries ...string) error {
	return h.RegisterMode(host, ModeNormal, contract, libraries...)
}

// Only is Register with the Solidity test group made exclusive.
func (h *Harness) Only(host Host, contract string, libraries ...string) error {
	return h.RegisterMode(host, ModeOnly, contract, libraries...)
}

// Skip is Register with the Solidity test group skipped.
func (h *Harness) Skip(host Host, contract string, libraries ...string) error {
	return h.RegisterMode(host, ModeSkip, contract, libraries...)
}

// RegisterMode registers the contract with the given mode.
//
// The artifact is resolved immediately; an unknown contract is an error
// and nothing is registered. Linking and deployment happen later, inside
// the before-all setup hook, when the host runs the group.
func (h *Harness) RegisterMode(host Host, mode Mode, contract string, libraries ...string) error {
	a, err := h.resolver.Resolve(contract)
	if err != nil {
		return fmt.Errorf("failed to resolve contract %s: %w", contract, err)
	}
	units := Discover(a.ABI)
	libs := append([]string{AssertLibrary}, libraries...)

	h.logger.Debug("registering contract",
		"contract", contract,
		"libraries", libs,
		"units", len(units),
		"mode", mode.String(),
	)

	// Shared by every unit of the group. Written once by setup, then only
	// read.
	var deployed chain.Instance

	setup := func(ctx context.Context) error {
		for _, lib := range libs {
			if err := h.linker.LinkLibrary(ctx, a, lib); err != nil {
				return fmt.Errorf("setup of %s: %w", contract, err)
			}
		}
		inst, err := h.deployer.Deploy(ctx, a)
		if err != nil {
			return fmt.Errorf("setup of %s: %w", contract, err)
		}
		deployed = inst
		h.logger.Info("test contract deployed", "contract", contract, "address", inst.Address().Hex())
		return nil
	}

	invoke := func(unit string) Func {
		return func(ctx context.Context) error {
			if deployed == nil {
				return ErrNotDeployed
			}
			receipt, err := deployed.Invoke(ctx, unit)
			if err != nil {
				return err
			}
			return CheckReceipt(contract, unit, receipt)
		}
	}

	host.Group(ContractGroupLabel(contract), func() {
		host.BeforeAll(setup)

		mode.open(host)(SolidityGroupLabel, func() {
			for _, u := range units {
				switch u.Kind {
				case Hook:
					registerHook(host, u.Hook, invoke(u.Name))
				case Test:
					host.Test(u.Name, invoke(u.Name))
				}
			}
		})
	})
	return nil
}
