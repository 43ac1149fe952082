// Package store provides SQLite-backed run history for soltest.
//
// Every recorded run is append-only:
//   - Runs: one row per run ID with its summary and canonical snapshot
//   - Outcomes: one row per unit outcome, keyed by (run_id, seq)
//
// # Ordering
//
// Runs are ordered by insertion (the rowid), never by wall time, and
// outcomes by their seq within a run. Queries always spell out the ORDER BY
// so results are identical across reads.
//
// # Idempotency
//
// Writing a run whose ID is already stored is a no-op. Re-recording the
// same report twice leaves the history unchanged.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
