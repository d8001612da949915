// Package store provides a SQLite-backed journal of simulation runs.
//
// The journal is append-only and holds:
//   - Runs: one row per session (demo, scenario file or interactive run)
//   - Events: every engine event, keyed by (run, seq)
//   - Snapshots: full state documents with their digest
//
// The engine keeps only the newest events in memory; the journal keeps all
// of them, so a long run can be inspected afterwards with "brokersim trace".
//
// # Ordering
//
// All queries order by seq, the engine's logical clock, never by
// timestamp. The logical clock is never reset, so seq is unique within a
// run even across engine resets.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Snapshot digests come from model.Digest, which hashes canonical JSON.
package store
