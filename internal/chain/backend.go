package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
)

// DefaultDialTimeout bounds how long Dial waits for a node to answer.
const DefaultDialTimeout = 30 * time.Second

// simulatedFunds is the balance of the generated deployer account.
var simulatedFunds = new(big.Int).Mul(big.NewInt(params.Ether), big.NewInt(1_000_000))

// NewSimulated starts an in-process chain with a freshly generated, funded
// deployer account. Blocks are sealed after every transaction. Close the
// EVM to stop the chain.
func NewSimulated(opts ...Option) (*EVM, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate deployer key: %w", err)
	}
	from := crypto.PubkeyToAddress(key.PublicKey)

	sim := simulated.NewBackend(types.GenesisAlloc{
		from: {Balance: simulatedFunds},
	})

	opts = append(opts,
		withMiner(func() { sim.Commit() }),
		withCloser(sim.Close),
	)
	e, err := New(sim.Client(), key, params.AllDevChainProtocolChanges.ChainID, opts...)
	if err != nil {
		sim.Close()
		return nil, err
	}
	return e, nil
}

// Dial connects to a JSON-RPC node and signs with the hex-encoded private
// key. The node is polled with exponential back-off until it reports its
// chain ID or timeout elapses, which covers nodes still starting up.
func Dial(ctx context.Context, url, privateKey string, timeout time.Duration, opts ...Option) (*EVM, error) {
	if privateKey == "" {
		return nil, fmt.Errorf("private key is required for rpc network %s", url)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = timeout

	var chainID *big.Int
	fetch := func() error {
		id, err := client.ChainID(ctx)
		if err != nil {
			return err
		}
		chainID = id
		return nil
	}
	if err := backoff.Retry(fetch, backoff.WithContext(policy, ctx)); err != nil {
		client.Close()
		return nil, fmt.Errorf("node at %s did not answer: %w", url, err)
	}

	opts = append(opts, withCloser(func() error {
		client.Close()
		return nil
	}))
	e, err := New(client, key, chainID, opts...)
	if err != nil {
		client.Close()
		return nil, err
	}
	e.logger.Info("connected to node", "url", url, "chain_id", chainID.String(), "from", e.From().Hex())
	return e, nil
}
