// Package chain deploys contract artifacts and invokes their functions.
//
// The harness only depends on the Deployer and Instance interfaces. EVM
// implements them on go-ethereum, either against the in-process simulated
// backend or a JSON-RPC node.
package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/soltest/internal/artifact"
)

// TestEventName is the event emitted by the Assert library for every
// assertion a Solidity test makes.
const TestEventName = "TestEvent"

// Deployer creates live contract instances from artifacts.
type Deployer interface {
	// Deploy creates a new instance of the artifact's current bytecode.
	// Every call deploys; nothing is cached.
	Deploy(ctx context.Context, a *artifact.Artifact) (Instance, error)
}

// Instance is a deployed contract.
type Instance interface {
	// Address is the on-chain address of the instance.
	Address() common.Address

	// Invoke calls the named zero-argument function and waits for the
	// result. A nil receipt means the call produced nothing to inspect.
	Invoke(ctx context.Context, method string) (*Receipt, error)
}

// Receipt is the outcome of one invocation.
type Receipt struct {
	TxHash  common.Hash
	Records []Record
}

// Record is a decoded event emitted during an invocation.
type Record struct {
	// Event is the event name, e.g. "TestEvent".
	Event string

	// Args holds the decoded event arguments by name.
	Args map[string]any
}

// Result returns the "result" argument of a TestEvent record and whether it
// was present as a bool.
func (r Record) Result() (value bool, ok bool) {
	value, ok = r.Args["result"].(bool)
	return value, ok
}

// Message returns the "message" argument of a TestEvent record.
func (r Record) Message() string {
	msg, _ := r.Args["message"].(string)
	return msg
}
