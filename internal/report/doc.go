// Package report records the outcome of a suite run.
//
// A Report is an ordered list of Outcomes, one per executed or skipped
// unit and one per failed hook. Each outcome carries a sequence number
// from a logical Clock, so two runs of the same suite against the same
// chain produce identical reports apart from the run ID.
//
// Snapshot serializes a report as canonical JSON (sorted keys, NFC
// normalized strings, no HTML escaping). Snapshots are compared against
// golden files in tests with AssertGolden and from the CLI with
// CompareGolden.
package report
