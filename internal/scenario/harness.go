package scenario

import (
	"cmp"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/brokersim/internal/engine"
	"github.com/roach88/brokersim/internal/model"
	"github.com/roach88/brokersim/internal/testutil"
)

// Harness executes scenarios in simulated time.
//
// Publications fire at their at_ms offset and scheduler ticks fire every
// interval, both driven by a manual clock, so a run takes no wall time and
// always yields the same trace. A publication due at the same instant as a
// tick fires first.
type Harness struct {
	engine *engine.Engine
	clock  *testutil.ManualClock
	start  time.Time
	logger *slog.Logger

	trace []TraceEvent
}

// Option configures a Harness run.
type Option func(*runConfig)

type runConfig struct {
	logger     *slog.Logger
	subscriber engine.Subscriber
	listener   engine.EventListener
}

// WithLogger sets the logger for the run and its engine. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// WithEventListener registers an extra event listener for the run, for
// example an event journal.
func WithEventListener(fn engine.EventListener) Option {
	return func(c *runConfig) {
		c.listener = fn
	}
}

// WithSubscriber registers an extra engine snapshot subscriber for the run.
func WithSubscriber(fn engine.Subscriber) Option {
	return func(c *runConfig) {
		c.subscriber = fn
	}
}

// Run executes a scenario and evaluates its assertions.
//
// Execution flow:
//  1. Build a deterministic engine (manual clock, sequence ids, seeded or
//     scripted random source)
//  2. Apply the topology
//  3. Interleave publications and ticks on the simulated timeline
//  4. Fire publications scheduled after the last tick
//  5. Evaluate assertions against the trace and final state
func Run(s *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	clock := testutil.NewManualClock(time.Time{})
	eng := engine.New(
		engine.WithIDGenerator(testutil.NewSequenceIDGenerator("id")),
		engine.WithTimeSource(clock),
		engine.WithRandom(randomSource(s.Run)),
		engine.WithRejectProbability(s.Run.Probability()),
		engine.WithLogger(cfg.logger),
	)

	h := &Harness{
		engine: eng,
		clock:  clock,
		start:  clock.Now(),
		logger: cfg.logger,
	}
	eng.OnEvent(h.collect)
	if cfg.listener != nil {
		eng.OnEvent(cfg.listener)
	}
	if cfg.subscriber != nil {
		eng.Subscribe(cfg.subscriber)
	}

	index, err := Apply(eng, s)
	if err != nil {
		return nil, fmt.Errorf("failed to apply scenario: %w", err)
	}

	pubs := slices.Clone(s.Publications)
	slices.SortStableFunc(pubs, func(a, b Publication) int {
		return cmp.Compare(a.AtMs, b.AtMs)
	})

	interval := s.Run.Interval()
	next := 0
	for tick := 1; tick <= s.Run.TickCount(); tick++ {
		tickAt := time.Duration(tick) * interval
		for ; next < len(pubs) && pubs[next].Delay() <= tickAt; next++ {
			if err := h.publish(index, pubs[next]); err != nil {
				return nil, err
			}
		}
		h.clock.Set(h.start.Add(tickAt))
		eng.Step()
	}
	for ; next < len(pubs); next++ {
		if err := h.publish(index, pubs[next]); err != nil {
			return nil, err
		}
	}

	result := NewResult()
	result.Trace = append(result.Trace, h.trace...)
	result.State = eng.Snapshot()
	for _, msg := range EvaluateAssertions(result, s.Assertions) {
		result.AddError(msg)
	}

	h.logger.Info("scenario completed",
		"scenario", s.Name,
		"events", len(result.Trace),
		"pass", result.Pass,
	)
	return result, nil
}

func (h *Harness) publish(index *Index, p Publication) error {
	h.clock.Set(h.start.Add(p.Delay()))
	if _, err := h.engine.Publish(index.Exchanges[p.Exchange], p.Content, p.RoutingKey); err != nil {
		return fmt.Errorf("publish to %q at %dms: %w", p.Exchange, p.AtMs, err)
	}
	return nil
}

// collect appends each emitted event to the trace, stamped with the
// simulated time at which it happened. Listening per event keeps the trace
// complete when one tick emits more events than the engine's log holds.
func (h *Harness) collect(ev model.Event) {
	h.trace = append(h.trace, TraceEvent{
		Seq:         ev.Seq,
		AtMs:        h.clock.Elapsed(h.start).Milliseconds(),
		Type:        ev.Type,
		Description: ev.Description,
	})
}

// randomSource returns the scripted outcomes when present, otherwise a
// source seeded from the run block.
func randomSource(r *RunSpec) engine.RandomSource {
	if r != nil && len(r.Rejections) > 0 {
		values := make([]float64, len(r.Rejections))
		for i, reject := range r.Rejections {
			if !reject {
				values[i] = 1
			}
		}
		return testutil.NewScriptedRandom(values...)
	}
	return engine.NewSeededRandom(r.SeedValue())
}
