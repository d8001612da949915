package engine

import (
	"log/slog"
	"time"

	"github.com/roach88/brokersim/internal/model"
)

const (
	// DefaultRejectProbability is the chance that a delivery is rejected.
	DefaultRejectProbability = 0.1

	// DefaultEventLogCap is the maximum number of events retained.
	DefaultEventLogCap = 100
)

// Subscriber receives a deep-cloned snapshot after every operation.
// The snapshot is owned by the subscriber.
type Subscriber func(model.Snapshot)

type subscription struct {
	id int
	fn Subscriber
}

// EventListener receives every event at the moment it is emitted. Unlike a
// Subscriber it also sees events that a later append in the same operation
// pushes out of the capped log. The event is owned by the listener.
type EventListener func(model.Event)

type eventListener struct {
	id int
	fn EventListener
}

// Engine is the broker simulation state container.
//
// Thread-safety: Engine is NOT safe for concurrent use. Drive it from one
// goroutine, or submit commands through a Runner.
//
// INVARIANTS:
//   - Exchange, queue and consumer names are unique within their kind
//   - Every event carries a seq greater than any earlier event
//   - Subscribers never observe internal slices (they get clones)
type Engine struct {
	state      model.Snapshot
	clock      *Clock
	ids        IDGenerator
	timeSource TimeSource
	random     RandomSource
	logger     *slog.Logger

	rejectProbability float64
	eventLogCap       int
	flowDurations     FlowDurations

	subscribers []subscription
	listeners   []eventListener
	nextSubID   int

	activeDemo string
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithIDGenerator sets the identifier source. Default: UUIDGenerator.
func WithIDGenerator(g IDGenerator) EngineOption {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithTimeSource sets the wall-clock source. Default: SystemTime.
func WithTimeSource(ts TimeSource) EngineOption {
	return func(e *Engine) {
		e.timeSource = ts
	}
}

// WithRandom sets the source for rejection draws.
// Use NewSeededRandom for reproducible runs.
func WithRandom(r RandomSource) EngineOption {
	return func(e *Engine) {
		e.random = r
	}
}

// WithRejectProbability sets the probability (0..1) that a delivery is
// rejected by the consumer. Values outside the range are clamped.
func WithRejectProbability(p float64) EngineOption {
	return func(e *Engine) {
		e.rejectProbability = min(max(p, 0), 1)
	}
}

// WithEventLogCap sets how many events are retained, newest first.
// Non-positive values keep the default.
func WithEventLogCap(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.eventLogCap = n
		}
	}
}

// WithFlowDurations sets how long each kind of flow stays active.
func WithFlowDurations(d FlowDurations) EngineOption {
	return func(e *Engine) {
		e.flowDurations = d
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock sets the logical clock, e.g. to resume numbering after a
// journaled run.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithEventListener registers fn for every emitted event, as OnEvent does.
func WithEventListener(fn EventListener) EngineOption {
	return func(e *Engine) {
		e.OnEvent(fn)
	}
}

// New creates an empty Engine.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		state:             model.NewSnapshot(),
		clock:             NewClock(),
		ids:               UUIDGenerator{},
		timeSource:        SystemTime{},
		random:            globalRandom{},
		logger:            slog.Default(),
		rejectProbability: DefaultRejectProbability,
		eventLogCap:       DefaultEventLogCap,
		flowDurations:     DefaultFlowDurations(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Subscribe registers fn and calls it once immediately with the current
// state. Later calls happen after every operation, synchronously and in
// registration order. The returned function unregisters fn.
func (e *Engine) Subscribe(fn Subscriber) (unsubscribe func()) {
	e.nextSubID++
	id := e.nextSubID
	e.subscribers = append(e.subscribers, subscription{id: id, fn: fn})

	fn(e.state.Clone())

	return func() {
		for i, s := range e.subscribers {
			if s.id == id {
				e.subscribers = append(e.subscribers[:i:i], e.subscribers[i+1:]...)
				return
			}
		}
	}
}

// OnEvent registers fn to receive each event as it is emitted, in seq
// order and before the snapshot notification of the same operation. The
// returned function unregisters fn.
func (e *Engine) OnEvent(fn EventListener) (unsubscribe func()) {
	e.nextSubID++
	id := e.nextSubID
	e.listeners = append(e.listeners, eventListener{id: id, fn: fn})

	return func() {
		for i, l := range e.listeners {
			if l.id == id {
				e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

// notify delivers one snapshot per subscriber. Each subscriber gets its
// own clone so that none can corrupt another's view.
func (e *Engine) notify() {
	subs := e.subscribers
	for _, s := range subs {
		s.fn(e.state.Clone())
	}
}

// Snapshot returns a deep copy of the current state.
func (e *Engine) Snapshot() model.Snapshot {
	return e.state.Clone()
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// Reset clears all collections, the event log, active flows and the demo
// marker. The logical clock keeps counting. No event is appended.
func (e *Engine) Reset() {
	e.state = model.NewSnapshot()
	e.activeDemo = ""
	e.logger.Debug("engine reset", "seq", e.clock.Current())
	e.notify()
}

// SetActiveDemo records which demo is loaded. An empty name clears it.
func (e *Engine) SetActiveDemo(name string) {
	e.activeDemo = name
}

// ActiveDemo returns the demo marker, or "" when none is set.
func (e *Engine) ActiveDemo() string {
	return e.activeDemo
}

// RejectProbability returns the configured rejection probability.
func (e *Engine) RejectProbability() float64 {
	return e.rejectProbability
}

func (e *Engine) now() time.Time {
	return normalizeTime(e.timeSource.Now())
}
