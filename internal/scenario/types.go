package scenario

import (
	"github.com/roach88/brokersim/internal/model"
)

// TraceEvent is one entry of a run's chronological trace.
type TraceEvent struct {
	Seq         int64           `json:"seq"`
	AtMs        int64           `json:"at_ms"`
	Type        model.EventType `json:"type"`
	Description string          `json:"description"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace holds every event the run produced, oldest first. Unlike the
	// engine's event log it is never capped.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final engine snapshot.
	State model.Snapshot `json:"state"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  model.NewSnapshot(),
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Count returns how many trace events have the given type.
func (r *Result) Count(typ model.EventType) int {
	n := 0
	for _, ev := range r.Trace {
		if ev.Type == typ {
			n++
		}
	}
	return n
}
