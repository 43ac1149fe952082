package suite

import (
	"testing"

	"github.com/roach88/soltest/internal/report"
)

// RunT executes the runner inside a Go test. Groups become nested
// subtests; failed units fail their subtest with the unit's error text and
// skipped units skip theirs.
func (r *Runner) RunT(t *testing.T) *report.Report {
	t.Helper()

	rep := r.Run(t.Context())
	runOutcomes(t, outcomeTree(rep.Outcomes()))
	return rep
}

type outcomeNode struct {
	label    string
	outcome  *report.Outcome
	children []*outcomeNode
}

// outcomeTree nests outcomes under their group path. Outcomes of one group
// are contiguous, so only the most recent child can be reused.
func outcomeTree(outcomes []report.Outcome) *outcomeNode {
	root := &outcomeNode{}
	for i := range outcomes {
		o := &outcomes[i]
		n := root
		for _, label := range o.Path {
			n = n.group(label)
		}
		n.children = append(n.children, &outcomeNode{label: o.Title, outcome: o})
	}
	return root
}

func (n *outcomeNode) group(label string) *outcomeNode {
	if k := len(n.children); k > 0 {
		last := n.children[k-1]
		if last.outcome == nil && last.label == label {
			return last
		}
	}
	child := &outcomeNode{label: label}
	n.children = append(n.children, child)
	return child
}

func runOutcomes(t *testing.T, n *outcomeNode) {
	t.Helper()
	for _, c := range n.children {
		t.Run(c.label, func(t *testing.T) {
			if c.outcome == nil {
				runOutcomes(t, c)
				return
			}
			switch c.outcome.Status {
			case report.StatusFailed:
				t.Error(c.outcome.Error)
			case report.StatusSkipped:
				t.Skip("skipped")
			}
		})
	}
}
