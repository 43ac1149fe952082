package suite

import "github.com/roach88/soltest/internal/harness"

type group struct {
	label  string
	mode   harness.Mode
	parent *group

	beforeAll  []harness.Func
	beforeEach []harness.Func
	afterEach  []harness.Func
	afterAll   []harness.Func

	children []any // *group or *test, in registration order
}

type test struct {
	name   string
	fn     harness.Func
	parent *group
}

// path returns the labels from the outermost group down to g, leaving out
// the unlabeled root.
func (g *group) path() []string {
	var labels []string
	for cur := g; cur != nil && cur.parent != nil; cur = cur.parent {
		labels = append([]string{cur.label}, labels...)
	}
	return labels
}

// within reports whether g or one of its ancestors has mode m.
func (g *group) within(m harness.Mode) bool {
	for cur := g; cur != nil; cur = cur.parent {
		if cur.mode == m {
			return true
		}
	}
	return false
}

// hasMode reports whether g or any group below it has mode m.
func (g *group) hasMode(m harness.Mode) bool {
	if g.mode == m {
		return true
	}
	for _, c := range g.children {
		if sub, ok := c.(*group); ok && sub.hasMode(m) {
			return true
		}
	}
	return false
}

// tests returns every test below g, depth first.
func (g *group) tests() []*test {
	var out []*test
	for _, c := range g.children {
		switch v := c.(type) {
		case *test:
			out = append(out, v)
		case *group:
			out = append(out, v.tests()...)
		}
	}
	return out
}

// ancestry returns the groups from the root down to g.
func (g *group) ancestry() []*group {
	var chain []*group
	for cur := g; cur != nil; cur = cur.parent {
		chain = append([]*group{cur}, chain...)
	}
	return chain
}
