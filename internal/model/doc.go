// Package model defines the broker simulation entities and the snapshot
// document exchanged with observers.
//
// This package contains data types only. The engine, the scenario loader,
// the journal store and the CLI import model; model imports nothing internal.
//
// Conventions:
//   - Identifiers are opaque strings assigned by the engine's IDGenerator
//   - All JSON tags use snake_case
//   - Timestamps are UTC with millisecond precision; flow times are epoch ms
//   - Empty collections inside a Snapshot are non-nil so that an exported
//     document round-trips to a deep-equal value
package model
