package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/brokersim/internal/model"
)

func runWithTimeout(t *testing.T, r *Runner) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Run(ctx)
}

func TestRunner_TickLimit(t *testing.T) {
	e, _ := newTestEngine(t)
	ex, q := pipeline(t, e, model.QueueOptions{})
	mustConsumer(t, e, "w", q.ID)
	publishN(t, e, ex.ID, 5)

	r := NewRunner(e, WithInterval(time.Millisecond), WithTickLimit(3))
	r.Resume()

	require.NoError(t, runWithTimeout(t, r))
	assert.Equal(t, int64(3), r.Ticks())
	assert.Equal(t, int64(3), consumerByName(t, e, "w").ProcessedMessages)
	assert.False(t, r.Do(func(*Engine) {}), "stopped runner rejects commands")
}

func TestRunner_CommandsRunInOrderThenStop(t *testing.T) {
	e, _ := newTestEngine(t)
	r := NewRunner(e)

	r.Do(func(e *Engine) { _, _ = e.CreateExchange("first", model.ExchangeDirect, model.Position{}) })
	r.Do(func(e *Engine) { _, _ = e.CreateExchange("second", model.ExchangeDirect, model.Position{}) })
	r.Stop()

	require.NoError(t, runWithTimeout(t, r))

	s := e.Snapshot()
	require.Len(t, s.Exchanges, 2)
	assert.Equal(t, "first", s.Exchanges[0].Name)
	assert.Equal(t, int64(0), r.Ticks())
}

func TestRunner_PauseStopsTicking(t *testing.T) {
	e, _ := newTestEngine(t)
	r := NewRunner(e, WithInterval(time.Millisecond))

	r.Resume()
	r.Pause()
	r.Stop()

	require.NoError(t, runWithTimeout(t, r))
	assert.Equal(t, int64(0), r.Ticks())
}

func TestRunner_ResumeRepublishesActiveDemo(t *testing.T) {
	e, _ := newTestEngine(t)
	var calls []string
	r := NewRunner(e, WithRepublisher(func(_ *Runner, demo string) {
		calls = append(calls, demo)
	}))

	r.Resume()
	r.Do(func(e *Engine) { e.SetActiveDemo("fanout") })
	r.Resume()
	r.Resume()
	r.Stop()

	require.NoError(t, runWithTimeout(t, r))
	assert.Equal(t, []string{"fanout", "fanout"}, calls, "no demo, no republish; every resume republishes")
}

func TestRunner_ScheduleSubmitsCommand(t *testing.T) {
	e, _ := newTestEngine(t)
	r := NewRunner(e)

	r.Schedule(5*time.Millisecond, func(e *Engine) {
		_, _ = e.CreateQueue("scheduled", model.Position{}, model.QueueOptions{})
		r.Stop()
	})

	require.NoError(t, runWithTimeout(t, r))
	_, ok := e.QueueByName("scheduled")
	assert.True(t, ok)
}

func TestRunner_ScheduleSurvivesPause(t *testing.T) {
	e, _ := newTestEngine(t)
	r := NewRunner(e, WithInterval(time.Hour))

	r.Resume()
	r.Schedule(5*time.Millisecond, func(e *Engine) {
		_, _ = e.CreateQueue("late", model.Position{}, model.QueueOptions{})
		r.Stop()
	})
	r.Pause()

	require.NoError(t, runWithTimeout(t, r))
	_, ok := e.QueueByName("late")
	assert.True(t, ok)
}

func TestRunner_ScheduleAfterStopIsDropped(t *testing.T) {
	e, _ := newTestEngine(t)
	r := NewRunner(e)
	r.Stop()
	require.NoError(t, runWithTimeout(t, r))

	ran := make(chan struct{}, 1)
	r.Schedule(0, func(*Engine) { ran <- struct{}{} })

	select {
	case <-ran:
		t.Fatal("command ran after stop")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestRunner_ContextCancel(t *testing.T) {
	e, _ := newTestEngine(t)
	r := NewRunner(e, WithInterval(time.Millisecond))
	r.Resume()

	ctx, cancel := context.WithCancel(context.Background())
	r.Schedule(10*time.Millisecond, func(*Engine) { cancel() })

	err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Greater(t, r.Ticks(), int64(0))
}

func TestRunner_RunOnce(t *testing.T) {
	e, _ := newTestEngine(t)
	r := NewRunner(e)
	r.Stop()
	require.NoError(t, runWithTimeout(t, r))

	err := r.Run(context.Background())
	assert.True(t, IsInvalidState(err))
}

func TestRunner_Options(t *testing.T) {
	e, _ := newTestEngine(t)

	r := NewRunner(e, WithInterval(-time.Second), WithTickLimit(-4))
	assert.Equal(t, DefaultTickInterval, r.interval)
	assert.Equal(t, int64(0), r.tickLimit)
}
