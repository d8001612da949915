package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// DefaultTickInterval is the period between scheduler ticks.
const DefaultTickInterval = time.Second

// Republisher re-issues a demo's canned publications when playback resumes.
// It runs on the Runner goroutine and normally calls Runner.Schedule.
type Republisher func(r *Runner, demo string)

// Runner drives an Engine from a single goroutine.
//
// The Run loop executes submitted commands in FIFO order and, while
// playback is resumed, calls Engine.Step on every tick. Commands and ticks
// never overlap, which makes the Engine safe to share through a Runner.
//
// Thread-safety model:
//   - Do, Resume, Pause, Schedule, Stop: safe from any goroutine
//   - Run: must be called from exactly one goroutine
type Runner struct {
	engine      *Engine
	queue       *commandQueue
	interval    time.Duration
	tickLimit   int64
	republisher Republisher
	logger      *slog.Logger

	started atomic.Bool
	ticks   atomic.Int64

	// Owned by the Run goroutine.
	playing bool
}

// RunnerOption allows configuration of a Runner.
type RunnerOption func(*Runner)

// WithInterval sets the tick period. Non-positive values keep the default.
func WithInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithTickLimit makes Run return after n ticks. Zero means unlimited.
func WithTickLimit(n int) RunnerOption {
	return func(r *Runner) {
		r.tickLimit = int64(max(n, 0))
	}
}

// WithRepublisher registers the helper invoked by Resume when a demo
// marker is set.
func WithRepublisher(p Republisher) RunnerOption {
	return func(r *Runner) {
		r.republisher = p
	}
}

// WithRunnerLogger sets the logger. Default: the engine's logger.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner creates a paused Runner for e.
func NewRunner(e *Engine, opts ...RunnerOption) *Runner {
	r := &Runner{
		engine:   e,
		queue:    newCommandQueue(),
		interval: DefaultTickInterval,
		logger:   e.logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do submits a command for the Run goroutine.
// Returns false if the runner has stopped.
func (r *Runner) Do(cmd Command) bool {
	return r.queue.Enqueue(cmd)
}

// Resume starts ticking. If a demo marker is set, the republisher is
// invoked every time, even when playback was already running.
func (r *Runner) Resume() bool {
	return r.Do(func(e *Engine) {
		if !r.playing {
			r.playing = true
			r.logger.Info("playback resumed", "interval", r.interval)
		}
		if demo := e.ActiveDemo(); demo != "" && r.republisher != nil {
			r.republisher(r, demo)
		}
	})
}

// Pause stops ticking. Publications already scheduled still fire.
func (r *Runner) Pause() bool {
	return r.Do(func(*Engine) {
		if r.playing {
			r.playing = false
			r.logger.Info("playback paused", "ticks", r.ticks.Load())
		}
	})
}

// Schedule runs cmd on the Run goroutine after delay. It is fire-and-forget:
// Pause does not cancel it, and it is silently dropped once the runner has
// stopped.
func (r *Runner) Schedule(delay time.Duration, cmd Command) {
	time.AfterFunc(delay, func() {
		r.Do(cmd)
	})
}

// Ticks returns how many ticks the runner has executed.
func (r *Runner) Ticks() int64 {
	return r.ticks.Load()
}

// Stop closes the command queue. Run drains queued commands and returns.
func (r *Runner) Stop() {
	r.queue.Close()
}

// Run executes commands and ticks until ctx is cancelled, Stop is called or
// the tick limit is reached. It may be called only once.
func (r *Runner) Run(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return NewInvalidStateError("runner already started")
	}
	r.logger.Info("runner starting", "interval", r.interval, "tick_limit", r.tickLimit)
	defer r.queue.Close()

	var ticker *time.Ticker
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		if cmd, ok := r.queue.TryDequeue(); ok {
			cmd(r.engine)
			continue
		}

		var tickC <-chan time.Time
		switch {
		case r.playing && ticker == nil:
			ticker = time.NewTicker(r.interval)
			tickC = ticker.C
		case r.playing:
			tickC = ticker.C
		case ticker != nil:
			ticker.Stop()
			ticker = nil
		}

		select {
		case <-ctx.Done():
			r.logger.Info("runner stopping: context cancelled", "ticks", r.ticks.Load())
			return ctx.Err()

		case <-tickC:
			r.engine.Step()
			if n := r.ticks.Add(1); r.tickLimit > 0 && n >= r.tickLimit {
				r.logger.Info("runner stopping: tick limit reached", "ticks", n)
				return nil
			}

		case <-r.queue.Wait():
			// A closed queue keeps this case ready; stop once it is drained.
			if r.queue.closedAndEmpty() {
				r.logger.Info("runner stopping: stopped", "ticks", r.ticks.Load())
				return nil
			}
		}
	}
}
