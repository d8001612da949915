package model

import (
	"maps"
	"slices"
)

// Snapshot is the complete observable state of a simulation.
type Snapshot struct {
	Exchanges   []Exchange `json:"exchanges"`
	Queues      []Queue    `json:"queues"`
	Consumers   []Consumer `json:"consumers"`
	Bindings    []Binding  `json:"bindings"`
	Messages    []Message  `json:"messages"`
	Events      []Event    `json:"events"`
	ActiveFlows []Flow     `json:"active_flows"`
}

// NewSnapshot returns an empty snapshot with non-nil collections.
func NewSnapshot() Snapshot {
	return Snapshot{
		Exchanges:   []Exchange{},
		Queues:      []Queue{},
		Consumers:   []Consumer{},
		Bindings:    []Binding{},
		Messages:    []Message{},
		Events:      []Event{},
		ActiveFlows: []Flow{},
	}
}

// Clone returns a deep copy that shares no memory with s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Exchanges:   make([]Exchange, len(s.Exchanges)),
		Queues:      make([]Queue, len(s.Queues)),
		Consumers:   cloneSlice(s.Consumers),
		Bindings:    cloneSlice(s.Bindings),
		Messages:    cloneSlice(s.Messages),
		Events:      make([]Event, len(s.Events)),
		ActiveFlows: cloneSlice(s.ActiveFlows),
	}
	for i, ex := range s.Exchanges {
		ex.BindingIDs = cloneSlice(ex.BindingIDs)
		out.Exchanges[i] = ex
	}
	for i, q := range s.Queues {
		q.Messages = cloneSlice(q.Messages)
		q.ConsumerIDs = cloneSlice(q.ConsumerIDs)
		out.Queues[i] = q
	}
	for i, ev := range s.Events {
		if ev.Details != nil {
			ev.Details = maps.Clone(ev.Details)
		}
		out.Events[i] = ev
	}
	return out
}

// Normalize replaces nil collections with empty ones, at every level.
// Decoded documents use it so that they compare equal to live state.
func (s *Snapshot) Normalize() {
	s.Exchanges = nonNil(s.Exchanges)
	s.Queues = nonNil(s.Queues)
	s.Consumers = nonNil(s.Consumers)
	s.Bindings = nonNil(s.Bindings)
	s.Messages = nonNil(s.Messages)
	s.Events = nonNil(s.Events)
	s.ActiveFlows = nonNil(s.ActiveFlows)
	for i := range s.Exchanges {
		s.Exchanges[i].BindingIDs = nonNil(s.Exchanges[i].BindingIDs)
	}
	for i := range s.Queues {
		s.Queues[i].Messages = nonNil(s.Queues[i].Messages)
		s.Queues[i].ConsumerIDs = nonNil(s.Queues[i].ConsumerIDs)
	}
}

// EventsOldestFirst returns the retained events in chronological order.
func (s Snapshot) EventsOldestFirst() []Event {
	out := cloneSlice(s.Events)
	slices.Reverse(out)
	return out
}

// Document is the export envelope.
type Document struct {
	FormatVersion string   `json:"format_version"`
	State         Snapshot `json:"state"`
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return slices.Clone(s)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
