// Package engine implements the broker simulation core.
//
// ARCHITECTURE:
//
// Single-Writer State Container:
// The Engine owns the canonical collections (exchanges, queues, consumers,
// bindings, message history, event log, active flows). It has no internal
// locking. Callers either drive it from one goroutine (tests, the scenario
// harness) or hand it to a Runner, which serializes submitted commands and
// periodic ticks in a single loop goroutine.
//
// Operation Flow:
//  1. A command (create, rename, publish, Step, ...) mutates the collections
//  2. Each observable change appends an Event stamped by the logical Clock
//  3. Flows are registered for visualization and swept on later ticks
//  4. Subscribers receive one deep-cloned snapshot per operation
//
// Determinism:
// Identifiers, wall-clock time and the rejection draw all come from
// injectable sources (IDGenerator, TimeSource, RandomSource). With fixed
// sources a sequence of commands always yields the same event log.
//
// Ordering:
// Event seq numbers come from Clock.Next() and never repeat, including across
// Reset and Import. The event log is kept newest first.
package engine
