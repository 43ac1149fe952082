package suite

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/roach88/soltest/internal/harness"
	"github.com/roach88/soltest/internal/report"
)

// Runner records registrations made through harness.Host and executes them.
//
// Registration is not safe for concurrent use; Run executes one unit at a
// time on the calling goroutine.
type Runner struct {
	root    *group
	current *group

	logger *slog.Logger
	ids    report.IDGenerator
	filter string
}

var _ harness.Host = (*Runner)(nil)

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Defaults to discarding output.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithIDGenerator sets the source of run IDs. Defaults to UUIDv7.
func WithIDGenerator(ids report.IDGenerator) Option {
	return func(r *Runner) {
		r.ids = ids
	}
}

// WithFilter selects only tests whose name matches the path.Match pattern.
// Check the pattern with ValidateFilter first; a malformed pattern selects
// nothing.
func WithFilter(pattern string) Option {
	return func(r *Runner) {
		r.filter = pattern
	}
}

// ValidateFilter reports whether pattern is a well-formed filter.
func ValidateFilter(pattern string) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid filter %q: %w", pattern, err)
	}
	return nil
}

// New creates an empty Runner.
func New(opts ...Option) *Runner {
	root := &group{}
	r := &Runner{
		root:    root,
		current: root,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		ids:     report.UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Group implements harness.Host.
func (r *Runner) Group(label string, body func()) {
	r.open(label, harness.ModeNormal, body)
}

// Only implements harness.Host.
func (r *Runner) Only(label string, body func()) {
	r.open(label, harness.ModeOnly, body)
}

// Skip implements harness.Host.
func (r *Runner) Skip(label string, body func()) {
	r.open(label, harness.ModeSkip, body)
}

func (r *Runner) open(label string, mode harness.Mode, body func()) {
	g := &group{label: label, mode: mode, parent: r.current}
	r.current.children = append(r.current.children, g)

	prev := r.current
	r.current = g
	defer func() { r.current = prev }()
	body()
}

// BeforeAll implements harness.Host.
func (r *Runner) BeforeAll(fn harness.Func) {
	r.current.beforeAll = append(r.current.beforeAll, fn)
}

// BeforeEach implements harness.Host.
func (r *Runner) BeforeEach(fn harness.Func) {
	r.current.beforeEach = append(r.current.beforeEach, fn)
}

// AfterEach implements harness.Host.
func (r *Runner) AfterEach(fn harness.Func) {
	r.current.afterEach = append(r.current.afterEach, fn)
}

// AfterAll implements harness.Host.
func (r *Runner) AfterAll(fn harness.Func) {
	r.current.afterAll = append(r.current.afterAll, fn)
}

// Test implements harness.Host.
func (r *Runner) Test(name string, fn harness.Func) {
	r.current.children = append(r.current.children, &test{name: name, fn: fn, parent: r.current})
}

// Run executes every selected test and returns the report.
func (r *Runner) Run(ctx context.Context) *report.Report {
	e := &execution{
		logger:    r.logger,
		filter:    r.filter,
		exclusive: r.root.hasMode(harness.ModeOnly),
		report:    report.New(r.ids.Generate()),
		clock:     report.NewClock(),
	}

	r.logger.Debug("run started", "run_id", e.report.RunID, "exclusive", e.exclusive)
	e.runGroup(ctx, r.root)

	s := e.report.Summary()
	r.logger.Info("run finished",
		"run_id", e.report.RunID,
		"passed", s.Passed,
		"failed", s.Failed,
		"skipped", s.Skipped,
	)
	return e.report
}

// execution is the state of one Run.
type execution struct {
	logger    *slog.Logger
	filter    string
	exclusive bool
	report    *report.Report
	clock     *report.Clock
}

func (e *execution) selected(t *test) bool {
	if e.exclusive && !t.parent.within(harness.ModeOnly) {
		return false
	}
	if e.filter != "" {
		ok, err := path.Match(e.filter, t.name)
		return ok && err == nil
	}
	return true
}

// runGroup executes g and returns the group a failed each-hook aborted, if
// that group is an ancestor of g.
func (e *execution) runGroup(ctx context.Context, g *group) *group {
	var selected []*test
	runnable := 0
	for _, t := range g.tests() {
		if !e.selected(t) {
			continue
		}
		selected = append(selected, t)
		if !t.parent.within(harness.ModeSkip) {
			runnable++
		}
	}
	if len(selected) == 0 {
		return nil
	}
	if runnable == 0 {
		for _, t := range selected {
			e.record(t.parent.path(), t.name, report.KindTest, report.StatusSkipped, nil)
		}
		return nil
	}

	if err := runHooks(ctx, g.beforeAll); err != nil {
		e.record(g.path(), hookTitle("before all", ""), report.KindHook, report.StatusFailed, err)
		e.runAfterAll(ctx, g)
		return nil
	}

	var aborted *group
units:
	for _, c := range g.children {
		switch v := c.(type) {
		case *test:
			if !e.selected(v) {
				continue
			}
			if owner := e.runTest(ctx, v); owner != nil {
				aborted = owner
				break units
			}
		case *group:
			if owner := e.runGroup(ctx, v); owner != nil {
				aborted = owner
				break units
			}
		}
	}

	e.runAfterAll(ctx, g)
	if aborted == g {
		return nil
	}
	return aborted
}

// runTest runs the each-hooks around t. It returns the outermost group
// whose each-hook failed, or nil.
func (e *execution) runTest(ctx context.Context, t *test) *group {
	chain := t.parent.ancestry()
	groupPath := t.parent.path()
	failedAt := len(chain)

	for i, g := range chain {
		if err := runHooks(ctx, g.beforeEach); err != nil {
			e.record(groupPath, hookTitle("before each", t.name), report.KindHook, report.StatusFailed, err)
			failedAt = i
			break
		}
	}

	if failedAt == len(chain) {
		err := t.fn(ctx)
		status := report.StatusPassed
		if err != nil {
			status = report.StatusFailed
		}
		e.record(groupPath, t.name, report.KindTest, status, err)
	}

	for i := len(chain) - 1; i >= 0; i-- {
		if err := runHooks(ctx, chain[i].afterEach); err != nil {
			e.record(groupPath, hookTitle("after each", t.name), report.KindHook, report.StatusFailed, err)
			failedAt = min(failedAt, i)
			break
		}
	}

	if failedAt == len(chain) {
		return nil
	}
	return chain[failedAt]
}

func (e *execution) runAfterAll(ctx context.Context, g *group) {
	if err := runHooks(ctx, g.afterAll); err != nil {
		e.record(g.path(), hookTitle("after all", ""), report.KindHook, report.StatusFailed, err)
	}
}

func (e *execution) record(groupPath []string, title string, kind report.Kind, status report.Status, err error) {
	o := report.Outcome{
		Seq:    e.clock.Next(),
		Path:   groupPath,
		Title:  title,
		Kind:   kind,
		Status: status,
	}
	if err != nil {
		o.Error = err.Error()
	}
	e.report.Add(o)

	attrs := []any{
		"seq", o.Seq,
		"group", strings.Join(groupPath, " "),
		"unit", title,
		"status", string(status),
	}
	if err != nil {
		e.logger.Warn("unit failed", append(attrs, "error", o.Error)...)
		return
	}
	e.logger.Info("unit finished", attrs...)
}

// runHooks runs fns in order and stops at the first error.
func runHooks(ctx context.Context, fns []harness.Func) error {
	for _, fn := range fns {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

// hookTitle builds mocha's hook titles, e.g. `"before each" hook for "test_foo"`.
func hookTitle(kind, testName string) string {
	title := fmt.Sprintf("%q hook", kind)
	if testName != "" {
		title += fmt.Sprintf(" for %q", testName)
	}
	return title
}
