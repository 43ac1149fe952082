// Package harness runs Solidity self-tests inside a host test runner.
//
// A Solidity test contract exposes its tests as zero-argument functions
// whose names start with "test", plus optional lifecycle functions named
// beforeAll, beforeEach, afterEach and afterAll. Assertions inside the
// contract go through the Assert library, which emits
//
//	event TestEvent(bool indexed result, string message);
//
// for every check. The harness reads the contract's ABI, registers each
// hook and test with a Host, and turns failing TestEvents into failures of
// the enclosing unit.
//
// # Registration
//
//	h := harness.New(resolver, deployer)
//	err := h.Register(host, "SortedDoublyLLFixture", "SortedDoublyLL")
//
// registers:
//
//	Contract: SortedDoublyLLFixture
//	  before all: link Assert, link SortedDoublyLL, deploy
//	  > Solidity test
//	    before all/each, after each/all: the contract's hooks
//	    testInsert, testRemove, ...: one test per test function
//
// Only and Skip register the same tree with the inner group made exclusive
// or skipped.
//
// # Failure model
//
// If linking or deployment fails, the setup hook fails and the host runs
// none of the group's units. A failing TestEvent fails only the hook or
// test that emitted it, with the event's message as the error text.
package harness
