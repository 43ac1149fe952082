package harness

import (
	"strings"

	"github.com/roach88/soltest/internal/artifact"
)

// TestPrefix marks a contract function as a test.
const TestPrefix = "test"

// HookKind identifies a lifecycle slot.
type HookKind int

// Lifecycle slots, in the order a host runs them around a test.
const (
	BeforeAll HookKind = iota
	BeforeEach
	AfterEach
	AfterAll
)

// String returns the contract function name for the hook.
func (k HookKind) String() string {
	switch k {
	case BeforeAll:
		return "beforeAll"
	case BeforeEach:
		return "beforeEach"
	case AfterEach:
		return "afterEach"
	case AfterAll:
		return "afterAll"
	default:
		return "unknown"
	}
}

var hookNames = map[string]HookKind{
	BeforeAll.String():  BeforeAll,
	BeforeEach.String(): BeforeEach,
	AfterEach.String():  AfterEach,
	AfterAll.String():   AfterAll,
}

// UnitKind tags what an interface entry becomes.
type UnitKind int

const (
	// Ignored entries are neither hooks nor tests.
	Ignored UnitKind = iota
	// Hook entries fill a lifecycle slot.
	Hook
	// Test entries become individually reported tests.
	Test
)

// String returns a lowercase name for the kind.
func (k UnitKind) String() string {
	switch k {
	case Hook:
		return "hook"
	case Test:
		return "test"
	default:
		return "ignored"
	}
}

// Unit is the classification of one interface entry.
// Hook is meaningful only when Kind is Hook.
type Unit struct {
	Kind UnitKind
	Hook HookKind
	Name string
}

// Classify decides whether an entry is a lifecycle hook, a test, or
// neither. Only functions qualify; hook names take precedence over the test
// prefix.
func Classify(e artifact.Entry) Unit {
	if !e.IsFunction() {
		return Unit{Kind: Ignored, Name: e.Name}
	}
	if kind, ok := hookNames[e.Name]; ok {
		return Unit{Kind: Hook, Hook: kind, Name: e.Name}
	}
	if strings.HasPrefix(e.Name, TestPrefix) {
		return Unit{Kind: Test, Name: e.Name}
	}
	return Unit{Kind: Ignored, Name: e.Name}
}

// Discover classifies entries and returns the hooks and tests in
// declaration order.
func Discover(entries []artifact.Entry) []Unit {
	var units []Unit
	for _, e := range entries {
		if u := Classify(e); u.Kind != Ignored {
			units = append(units, u)
		}
	}
	return units
}
