package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/roach88/soltest/internal/artifact"
)

// ErrReverted is returned when an invocation's transaction was mined but
// failed.
var ErrReverted = errors.New("transaction reverted")

// Backend is what EVM needs from a chain connection. Both the simulated
// backend's client and *ethclient.Client satisfy it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// EVM deploys and drives contracts through go-ethereum's bind package.
//
// Transactions are signed by a single key and submitted one at a time;
// the mutex keeps nonces ordered when callers share an EVM.
type EVM struct {
	backend Backend
	auth    *bind.TransactOpts
	logger  *slog.Logger

	// mine seals pending transactions on backends that do not mine on
	// their own (the simulated backend). Nil for live nodes.
	mine  func()
	close func() error

	mu sync.Mutex
}

// Option configures an EVM.
type Option func(*EVM)

// WithLogger sets the logger. Defaults to discarding output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *EVM) {
		e.logger = logger
	}
}

func withMiner(mine func()) Option {
	return func(e *EVM) {
		e.mine = mine
	}
}

func withCloser(fn func() error) Option {
	return func(e *EVM) {
		e.close = fn
	}
}

// New creates an EVM that signs with key for the given chain.
func New(backend Backend, key *ecdsa.PrivateKey, chainID *big.Int, opts ...Option) (*EVM, error) {
	if key == nil {
		return nil, fmt.Errorf("private key is required")
	}
	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	e := &EVM{
		backend: backend,
		auth:    auth,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// From returns the account transactions are sent from.
func (e *EVM) From() common.Address {
	return e.auth.From
}

// Close releases the underlying connection.
func (e *EVM) Close() error {
	if e.close == nil {
		return nil
	}
	return e.close()
}

// Deploy implements Deployer.
func (e *EVM) Deploy(ctx context.Context, a *artifact.Artifact) (Instance, error) {
	parsed, err := a.ParsedABI()
	if err != nil {
		return nil, err
	}
	code, err := a.Code()
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	addr, tx, bound, err := bind.DeployContract(e.transactOpts(ctx), parsed, code, e.backend)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy %s: %w", a.Name, err)
	}
	e.seal()

	if _, err := bind.WaitDeployed(ctx, e.backend, tx); err != nil {
		return nil, fmt.Errorf("deployment of %s failed: %w", a.Name, err)
	}

	e.logger.Info("contract deployed",
		"contract", a.Name,
		"address", addr.Hex(),
		"tx", tx.Hash().Hex(),
	)

	return &Contract{
		name:    a.Name,
		address: addr,
		abi:     parsed,
		bound:   bound,
		evm:     e,
	}, nil
}

func (e *EVM) transactOpts(ctx context.Context) *bind.TransactOpts {
	opts := *e.auth
	opts.Context = ctx
	return &opts
}

func (e *EVM) seal() {
	if e.mine != nil {
		e.mine()
	}
}

// Contract is a contract deployed by an EVM.
type Contract struct {
	name    string
	address common.Address
	abi     abi.ABI
	bound   *bind.BoundContract
	evm     *EVM
}

// Address implements Instance.
func (c *Contract) Address() common.Address {
	return c.address
}

// Invoke implements Instance.
//
// State-changing functions are sent as transactions and their logs decoded
// into records. View and pure functions are executed as calls, which emit
// nothing, so they return a nil receipt.
func (c *Contract) Invoke(ctx context.Context, method string) (*Receipt, error) {
	m, ok := c.abi.Methods[method]
	if !ok {
		return nil, fmt.Errorf("%s has no function %q", c.name, method)
	}

	if m.IsConstant() {
		var out []any
		if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, method); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", c.name, method, err)
		}
		return nil, nil
	}

	c.evm.mu.Lock()
	defer c.evm.mu.Unlock()

	tx, err := c.bound.Transact(c.evm.transactOpts(ctx), method)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", c.name, method, err)
	}
	c.evm.seal()

	receipt, err := bind.WaitMined(ctx, c.evm.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: waiting for %s: %w", c.name, method, tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%s.%s: %w (tx %s)", c.name, method, ErrReverted, tx.Hash().Hex())
	}

	records, err := DecodeLogs(c.abi, receipt.Logs)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", c.name, method, err)
	}

	c.evm.logger.Debug("function invoked",
		"contract", c.name,
		"unit", method,
		"tx", tx.Hash().Hex(),
		"records", len(records),
	)

	return &Receipt{TxHash: tx.Hash(), Records: records}, nil
}
