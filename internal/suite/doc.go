// Package suite is a small host test runner for the harness.
//
// A Runner records the groups, hooks and tests registered through the
// harness.Host interface, then executes them one at a time:
//
//   - before-all hooks run once, before the first unit of their group
//   - before-each hooks run before every test, outermost group first
//   - after-each hooks run after every test, innermost group first
//   - after-all hooks run once, after the group's last unit
//
// A failing before-all hook is reported once, as `"before all" hook`, and
// none of the group's units run. A failing before-each or after-each hook
// aborts the remaining units of the group that owns the hook.
//
// When any group was registered with Only, tests outside Only groups are
// not selected and do not appear in the report. Tests inside Skip groups
// are reported as skipped and no hooks run for them.
package suite
