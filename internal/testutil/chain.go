package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/roach88/soltest/internal/artifact"
	"github.com/roach88/soltest/internal/chain"
)

// FakeDeployer is the account FakeChain pretends to deploy from.
var FakeDeployer = common.HexToAddress("0x00000000000000000000000000000000000d3910")

// Deployment records one FakeChain deployment.
type Deployment struct {
	Contract string
	Address  common.Address

	// Bytecode is the artifact's bytecode at deployment time.
	Bytecode string
}

// Call records one invocation on a fake instance.
type Call struct {
	Contract string
	Method   string
}

type scripted struct {
	receipt *chain.Receipt
	err     error
}

// FakeChain is an in-memory chain.Deployer.
//
// Addresses are derived like real contract creations from FakeDeployer and
// a deterministic nonce, so runs are reproducible. Invocations return
// scripted results; unscripted functions return an empty receipt.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FakeChain struct {
	mu          sync.Mutex
	nonces      *DeterministicClock
	deployErrs  map[string]error
	results     map[Call]scripted
	deployments []Deployment
	calls       []Call
}

// NewFakeChain creates an empty fake chain.
func NewFakeChain() *FakeChain {
	return &FakeChain{
		nonces:     NewDeterministicClock(),
		deployErrs: make(map[string]error),
		results:    make(map[Call]scripted),
	}
}

// FailDeploy makes every deployment of contract fail with err.
func (c *FakeChain) FailDeploy(contract string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deployErrs[contract] = err
}

// Script sets what invoking contract.method returns.
func (c *FakeChain) Script(contract, method string, receipt *chain.Receipt, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[Call{Contract: contract, Method: method}] = scripted{receipt: receipt, err: err}
}

// Deploy implements chain.Deployer. Like a real chain it refuses bytecode
// with unlinked placeholders.
func (c *FakeChain) Deploy(ctx context.Context, a *artifact.Artifact) (chain.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err, ok := c.deployErrs[a.Name]; ok {
		return nil, err
	}
	if _, err := a.Code(); err != nil {
		return nil, err
	}

	nonce := c.nonces.Next()
	addr := crypto.CreateAddress(FakeDeployer, uint64(nonce))
	c.deployments = append(c.deployments, Deployment{
		Contract: a.Name,
		Address:  addr,
		Bytecode: a.Bytecode,
	})
	return &fakeInstance{chain: c, name: a.Name, addr: addr}, nil
}

// Deployments returns every deployment so far, in order.
func (c *FakeChain) Deployments() []Deployment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Deployment(nil), c.deployments...)
}

// DeploymentsOf returns the deployments of one contract, in order.
func (c *FakeChain) DeploymentsOf(contract string) []Deployment {
	var out []Deployment
	for _, d := range c.Deployments() {
		if d.Contract == contract {
			out = append(out, d)
		}
	}
	return out
}

// Calls returns every invocation so far, in order.
func (c *FakeChain) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// CalledMethods returns the method names invoked so far, in order.
func (c *FakeChain) CalledMethods() []string {
	var out []string
	for _, call := range c.Calls() {
		out = append(out, call.Method)
	}
	return out
}

type fakeInstance struct {
	chain *FakeChain
	name  string
	addr  common.Address
}

func (i *fakeInstance) Address() common.Address {
	return i.addr
}

func (i *fakeInstance) Invoke(ctx context.Context, method string) (*chain.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := i.chain
	c.mu.Lock()
	defer c.mu.Unlock()

	call := Call{Contract: i.name, Method: method}
	c.calls = append(c.calls, call)
	if s, ok := c.results[call]; ok {
		return s.receipt, s.err
	}
	return &chain.Receipt{}, nil
}

// PassEvent builds a passing TestEvent record.
func PassEvent(message string) chain.Record {
	return testEvent(true, message)
}

// FailEvent builds a failing TestEvent record.
func FailEvent(message string) chain.Record {
	return testEvent(false, message)
}

func testEvent(result bool, message string) chain.Record {
	return chain.Record{
		Event: chain.TestEventName,
		Args:  map[string]any{"result": result, "message": message},
	}
}

// Receipt wraps records in a receipt.
func Receipt(records ...chain.Record) *chain.Receipt {
	return &chain.Receipt{Records: records}
}

// Artifacts is an in-memory artifact.Resolver.
type Artifacts map[string]*artifact.Artifact

// Resolve implements artifact.Resolver.
func (m Artifacts) Resolve(name string) (*artifact.Artifact, error) {
	a, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", artifact.ErrNotFound, name)
	}
	return a, nil
}

// Add registers artifacts under their names and returns m.
func (m Artifacts) Add(as ...*artifact.Artifact) Artifacts {
	for _, a := range as {
		m[a.Name] = a
	}
	return m
}

// NewArtifact builds an artifact whose ABI holds one nonpayable,
// zero-argument function per name, in order.
func NewArtifact(name, bytecode string, functions ...string) *artifact.Artifact {
	entries := make([]artifact.Entry, 0, len(functions))
	raw := make([]map[string]any, 0, len(functions))
	for _, fn := range functions {
		entries = append(entries, artifact.Entry{Name: fn, Type: artifact.TypeFunction})
		raw = append(raw, map[string]any{
			"type":            artifact.TypeFunction,
			"name":            fn,
			"inputs":          []any{},
			"outputs":         []any{},
			"stateMutability": "nonpayable",
		})
	}
	rawABI, err := json.Marshal(raw)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal abi: %v", err))
	}
	return &artifact.Artifact{
		Name:     name,
		Bytecode: bytecode,
		ABI:      entries,
		RawABI:   rawABI,
	}
}

// LibraryArtifact builds a deployable library artifact.
func LibraryArtifact(name string) *artifact.Artifact {
	return NewArtifact(name, "0x6001600c60003960016000f300")
}

// Hex returns addr the way the linker writes it into bytecode.
func Hex(addr common.Address) string {
	return common.Bytes2Hex(addr.Bytes())
}
