package harness

import "context"

// Func is a hook or test body. A non-nil error fails the unit.
type Func func(ctx context.Context) error

// Host is the registration surface of a test runner.
//
// Group, Only and Skip open a nested scope and call body synchronously;
// registrations made inside body belong to that scope. Hooks attach to the
// innermost open scope.
type Host interface {
	Group(label string, body func())
	Only(label string, body func())
	Skip(label string, body func())

	BeforeAll(fn Func)
	BeforeEach(fn Func)
	AfterEach(fn Func)
	AfterAll(fn Func)

	Test(name string, fn Func)
}

// Mode selects how the Solidity test group is registered.
type Mode int

const (
	// ModeNormal registers with Host.Group.
	ModeNormal Mode = iota
	// ModeOnly registers with Host.Only.
	ModeOnly
	// ModeSkip registers with Host.Skip.
	ModeSkip
)

// String returns the manifest spelling of the mode.
func (m Mode) String() string {
	switch m {
	case ModeOnly:
		return "only"
	case ModeSkip:
		return "skip"
	default:
		return ""
	}
}

// ParseMode parses the manifest spelling of a mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "":
		return ModeNormal, true
	case "only":
		return ModeOnly, true
	case "skip":
		return ModeSkip, true
	default:
		return ModeNormal, false
	}
}

func (m Mode) open(host Host) func(label string, body func()) {
	switch m {
	case ModeOnly:
		return host.Only
	case ModeSkip:
		return host.Skip
	default:
		return host.Group
	}
}

func registerHook(host Host, kind HookKind, fn Func) {
	switch kind {
	case BeforeAll:
		host.BeforeAll(fn)
	case BeforeEach:
		host.BeforeEach(fn)
	case AfterEach:
		host.AfterEach(fn)
	case AfterAll:
		host.AfterAll(fn)
	}
}
