package report

import (
	"strings"
	"sync"
)

// Status is the outcome of one unit.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Kind says whether an outcome belongs to a test or a hook.
type Kind string

const (
	KindTest Kind = "test"
	KindHook Kind = "hook"
)

// Outcome is the result of running, or skipping, one unit.
type Outcome struct {
	Seq int64 `json:"seq"`

	// Path holds the labels of the enclosing groups, outermost first.
	Path []string `json:"path"`

	// Title is the test name, or the mocha-style hook title such as
	// `"before all" hook` for hook failures.
	Title  string `json:"title"`
	Kind   Kind   `json:"kind"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// FullTitle joins the group path and the title with spaces.
func (o Outcome) FullTitle() string {
	return strings.Join(append(append([]string(nil), o.Path...), o.Title), " ")
}

// Summary counts outcomes by status.
type Summary struct {
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Report collects the outcomes of one run.
//
// Thread-safety: safe for concurrent use via internal mutex.
type Report struct {
	RunID string

	mu       sync.Mutex
	outcomes []Outcome
}

// New creates an empty report.
func New(runID string) *Report {
	return &Report{RunID: runID}
}

// Add appends an outcome.
func (r *Report) Add(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

// Outcomes returns the outcomes in the order they were added.
func (r *Report) Outcomes() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Outcome(nil), r.outcomes...)
}

// Failures returns the failed outcomes.
func (r *Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes() {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// Summary counts outcomes by status.
func (r *Report) Summary() Summary {
	var s Summary
	for _, o := range r.Outcomes() {
		switch o.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		}
	}
	return s
}

// OK reports whether nothing failed.
func (r *Report) OK() bool {
	return r.Summary().Failed == 0
}

// Snapshot serializes the report as canonical JSON. The run ID is left
// out so snapshots of identical runs are byte-identical.
func (r *Report) Snapshot() ([]byte, error) {
	return MarshalCanonical(r.canonicalMap())
}

// canonicalMap converts the report to the generic form MarshalCanonical
// accepts.
func (r *Report) canonicalMap() map[string]any {
	outcomes := r.Outcomes()
	list := make([]any, len(outcomes))
	for i, o := range outcomes {
		path := make([]any, len(o.Path))
		for j, p := range o.Path {
			path[j] = p
		}
		m := map[string]any{
			"seq":    o.Seq,
			"path":   path,
			"title":  o.Title,
			"kind":   string(o.Kind),
			"status": string(o.Status),
		}
		if o.Error != "" {
			m["error"] = o.Error
		}
		list[i] = m
	}

	s := r.Summary()
	return map[string]any{
		"summary": map[string]any{
			"passed":  s.Passed,
			"failed":  s.Failed,
			"skipped": s.Skipped,
		},
		"outcomes": list,
	}
}
