package engine

import (
	"time"

	"github.com/roach88/brokersim/internal/model"
)

// FlowDurations sets how long each kind of flow stays in the active set.
type FlowDurations struct {
	Exchange   time.Duration
	Queue      time.Duration
	Consumer   time.Duration
	DeadLetter time.Duration
}

// DefaultFlowDurations returns the standard animation timings.
func DefaultFlowDurations() FlowDurations {
	return FlowDurations{
		Exchange:   800 * time.Millisecond,
		Queue:      1000 * time.Millisecond,
		Consumer:   600 * time.Millisecond,
		DeadLetter: 800 * time.Millisecond,
	}
}

// addFlow registers a visualization cue. Flows never affect routing.
func (e *Engine) addFlow(messageID, componentID string, kind model.ComponentType, d time.Duration) {
	e.state.ActiveFlows = append(e.state.ActiveFlows, model.Flow{
		ID:            e.ids.Generate(),
		MessageID:     messageID,
		ComponentID:   componentID,
		ComponentType: kind,
		StartTime:     e.now().UnixMilli(),
		Duration:      d.Milliseconds(),
	})
}

// sweepFlows drops flows that have ended by nowMs, keeping the order of the
// rest. Reports whether anything was removed.
func (e *Engine) sweepFlows(nowMs int64) bool {
	kept := e.state.ActiveFlows[:0]
	for _, f := range e.state.ActiveFlows {
		if !f.Expired(nowMs) {
			kept = append(kept, f)
		}
	}
	removed := len(kept) != len(e.state.ActiveFlows)
	clear(e.state.ActiveFlows[len(kept):])
	e.state.ActiveFlows = kept
	return removed
}
