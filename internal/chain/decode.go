package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// assertEventsABI declares the events of the Assert library. Library events
// are absent from the ABI of contracts compiled with older solc versions,
// so they are looked up here when the contract's own ABI has no match.
const assertEventsABI = `[
  {"type": "event", "name": "TestEvent", "anonymous": false, "inputs": [
    {"indexed": true, "name": "result", "type": "bool"},
    {"indexed": false, "name": "message", "type": "string"}
  ]}
]`

var assertEvents = mustParseABI(assertEventsABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("chain: invalid built-in abi: %v", err))
	}
	return parsed
}

// AssertEvent returns the built-in TestEvent definition.
func AssertEvent() abi.Event {
	return assertEvents.Events[TestEventName]
}

// DecodeLogs turns receipt logs into records using the contract's ABI and
// the built-in Assert events. Logs whose event is unknown, and anonymous
// events, are skipped.
func DecodeLogs(contractABI abi.ABI, logs []*types.Log) ([]Record, error) {
	records := make([]Record, 0, len(logs))
	for i, l := range logs {
		if len(l.Topics) == 0 {
			continue
		}
		ev := lookupEvent(contractABI, l.Topics[0])
		if ev == nil {
			continue
		}

		args := make(map[string]any)
		if err := ev.Inputs.NonIndexed().UnpackIntoMap(args, l.Data); err != nil {
			return nil, fmt.Errorf("log %d (%s): %w", i, ev.Name, err)
		}

		var indexed abi.Arguments
		for _, arg := range ev.Inputs {
			if arg.Indexed {
				indexed = append(indexed, arg)
			}
		}
		if err := abi.ParseTopicsIntoMap(args, indexed, l.Topics[1:]); err != nil {
			return nil, fmt.Errorf("log %d (%s) topics: %w", i, ev.Name, err)
		}

		records = append(records, Record{Event: ev.Name, Args: args})
	}
	return records, nil
}

func lookupEvent(contractABI abi.ABI, topic common.Hash) *abi.Event {
	if ev, err := contractABI.EventByID(topic); err == nil {
		return ev
	}
	if ev, err := assertEvents.EventByID(topic); err == nil {
		return ev
	}
	return nil
}
