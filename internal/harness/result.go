package harness

import (
	"errors"

	"github.com/roach88/soltest/internal/chain"
)

// TestFailure is returned when a contract reports a failed assertion.
// Its Error text is the assertion message, unchanged.
type TestFailure struct {
	Contract string
	Unit     string
	Message  string
}

// Error implements the error interface.
func (e *TestFailure) Error() string {
	return e.Message
}

// CheckReceipt fails on the first TestEvent record whose result is not
// true. A nil receipt has nothing to check and passes.
func CheckReceipt(contract, unit string, receipt *chain.Receipt) error {
	if receipt == nil {
		return nil
	}
	for _, rec := range receipt.Records {
		if rec.Event != chain.TestEventName {
			continue
		}
		if ok, _ := rec.Result(); !ok {
			return &TestFailure{
				Contract: contract,
				Unit:     unit,
				Message:  rec.Message(),
			}
		}
	}
	return nil
}

// ErrNotDeployed is returned by a unit that runs without a deployed
// instance, which only happens when a host ignores a failed setup.
var ErrNotDeployed = errors.New("contract not deployed: setup did not complete")
