package store

import (
	"context"
	"fmt"

	"github.com/roach88/soltest/internal/report"
)

// Change is a unit whose status differs between two runs. Before or After
// is empty when the unit is absent from that run.
type Change struct {
	Title  string        `json:"title"`
	Before report.Status `json:"before,omitempty"`
	After  report.Status `json:"after,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// Regression reports whether the unit fails in the newer run but did not
// fail in the older one.
func (c Change) Regression() bool {
	return c.After == report.StatusFailed && c.Before != report.StatusFailed
}

// Diff compares two stored runs unit by unit. Units are matched by full
// title; a title that occurs several times in a run is matched by
// occurrence. Changes follow head's order, then units only base has.
func (s *Store) Diff(ctx context.Context, baseID, headID string) ([]Change, error) {
	base, err := s.ReadRun(ctx, baseID)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	head, err := s.ReadRun(ctx, headID)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	return diffOutcomes(base.Outcomes(), head.Outcomes()), nil
}

type occurrence struct {
	title string
	n     int
}

// keyed pairs each outcome with its occurrence key, in order.
func keyed(outcomes []report.Outcome) ([]occurrence, map[occurrence]report.Outcome) {
	seen := make(map[string]int)
	keys := make([]occurrence, 0, len(outcomes))
	byKey := make(map[occurrence]report.Outcome, len(outcomes))
	for _, o := range outcomes {
		title := o.FullTitle()
		k := occurrence{title: title, n: seen[title]}
		seen[title]++
		keys = append(keys, k)
		byKey[k] = o
	}
	return keys, byKey
}

func diffOutcomes(base, head []report.Outcome) []Change {
	baseKeys, baseBy := keyed(base)
	headKeys, headBy := keyed(head)

	changes := []Change{}
	for _, k := range headKeys {
		h := headBy[k]
		b, ok := baseBy[k]
		if ok && b.Status == h.Status {
			continue
		}
		c := Change{Title: k.title, After: h.Status, Error: h.Error}
		if ok {
			c.Before = b.Status
		}
		changes = append(changes, c)
	}
	for _, k := range baseKeys {
		if _, ok := headBy[k]; ok {
			continue
		}
		changes = append(changes, Change{Title: k.title, Before: baseBy[k].Status})
	}
	return changes
}
