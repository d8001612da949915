package testutil

import "sync"

// ScriptedRandom returns a fixed sequence of values, cycling when it
// reaches the end. With no values it always returns 1, which never falls
// below a rejection probability, so every delivery is accepted.
//
// Thread-safety: safe for concurrent use via internal mutex.
type ScriptedRandom struct {
	mu     sync.Mutex
	values []float64
	idx    int
}

// NewScriptedRandom creates a source that yields values in order.
func NewScriptedRandom(values ...float64) *ScriptedRandom {
	return &ScriptedRandom{values: values}
}

// NeverReject returns a source whose draws are never below any probability
// in [0, 1).
func NeverReject() *ScriptedRandom {
	return NewScriptedRandom()
}

// AlwaysReject returns a source whose draws are below any positive
// probability.
func AlwaysReject() *ScriptedRandom {
	return NewScriptedRandom(0)
}

// Float64 returns the next scripted value. Implements engine.RandomSource.
func (r *ScriptedRandom) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) == 0 {
		return 1
	}
	v := r.values[r.idx%len(r.values)]
	r.idx++
	return v
}

// Draws returns how many values have been consumed.
func (r *ScriptedRandom) Draws() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.idx
}
