package store

import (
	"errors"
	"time"

	"github.com/roach88/brokersim/internal/model"
)

// ErrRunNotFound is returned when a run id or name matches nothing.
var ErrRunNotFound = errors.New("run not found")

// Run is one journaled simulation session.
type Run struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Source string `json:"source,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// FinalDigest is the snapshot digest written by FinishRun.
	// Empty while the run is in progress.
	FinalDigest string `json:"final_digest,omitempty"`

	// EventCount is the number of journaled events.
	EventCount int `json:"event_count"`
}

// Finished reports whether FinishRun was called for the run.
func (r Run) Finished() bool { return !r.FinishedAt.IsZero() }

// EventFilter narrows ReadEvents. The zero value selects everything.
type EventFilter struct {
	Type     model.EventType
	AfterSeq int64
	Limit    int
}
