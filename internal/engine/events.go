package engine

import (
	"maps"

	"github.com/roach88/brokersim/internal/model"
)

// details builds an event detail map from key/value pairs, skipping empty
// values. It returns nil when nothing remains so that the map round-trips
// through JSON unchanged.
func details(kv ...string) map[string]string {
	var m map[string]string
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] == "" {
			continue
		}
		if m == nil {
			m = make(map[string]string, len(kv)/2)
		}
		m[kv[i]] = kv[i+1]
	}
	return m
}

// emit stamps a new event, prepends it to the capped log and hands a copy
// to every event listener.
func (e *Engine) emit(typ model.EventType, description string, d map[string]string) model.Event {
	ev := model.Event{
		ID:          e.ids.Generate(),
		Seq:         e.clock.Next(),
		Type:        typ,
		Timestamp:   e.now(),
		Description: description,
		Details:     d,
	}

	events := make([]model.Event, 0, min(len(e.state.Events)+1, e.eventLogCap))
	events = append(events, ev)
	events = append(events, e.state.Events[:min(len(e.state.Events), e.eventLogCap-1)]...)
	e.state.Events = events

	e.logger.Debug("event", "seq", ev.Seq, "type", ev.Type, "description", ev.Description)
	for _, l := range e.listeners {
		cp := ev
		cp.Details = maps.Clone(ev.Details)
		l.fn(cp)
	}
	return ev
}

// emitError records a recoverable failure in the event log.
func (e *Engine) emitError(description string, d map[string]string) {
	e.emit(model.EventError, description, d)
}
