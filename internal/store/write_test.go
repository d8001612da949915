package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/brokersim/internal/model"
)

var testStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func testEvent(seq int64, typ model.EventType, desc string, details map[string]string) model.Event {
	return model.Event{
		ID:          "ev-" + desc,
		Seq:         seq,
		Type:        typ,
		Timestamp:   testStart.Add(time.Duration(seq) * time.Second),
		Description: desc,
		Details:     details,
	}
}

func TestBeginRun_AssignsIncreasingIDs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id1, err := s.BeginRun(ctx, "ecommerce", "demo", testStart)
	require.NoError(t, err)
	id2, err := s.BeginRun(ctx, "fanout", "demo", testStart)
	require.NoError(t, err)

	assert.Greater(t, id2, id1)
}

func TestWriteEvent_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	runID, err := s.BeginRun(ctx, "run", "", testStart)
	require.NoError(t, err)

	ev := testEvent(7, model.EventMessageRouted, "routed", map[string]string{
		"queue_id":   "q1",
		"message_id": "m1",
	})
	require.NoError(t, s.WriteEvent(ctx, runID, ev))

	events, err := s.ReadEvents(ctx, runID, EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ev, events[0])
}

func TestWriteEvent_EmptyDetailsStoredAsNull(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	runID, err := s.BeginRun(ctx, "run", "", testStart)
	require.NoError(t, err)
	require.NoError(t, s.WriteEvent(ctx, runID, testEvent(1, model.EventError, "boom", map[string]string{})))

	var isNull bool
	require.NoError(t, s.db.QueryRow(
		"SELECT details IS NULL FROM events WHERE run_id = ? AND seq = 1", runID,
	).Scan(&isNull))
	assert.True(t, isNull)

	events, err := s.ReadEvents(ctx, runID, EventFilter{})
	require.NoError(t, err)
	assert.Nil(t, events[0].Details)
}

func TestWriteEvent_DuplicateSeqIgnored(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	runID, err := s.BeginRun(ctx, "run", "", testStart)
	require.NoError(t, err)

	require.NoError(t, s.WriteEvent(ctx, runID, testEvent(1, model.EventQueueCreated, "first", nil)))
	require.NoError(t, s.WriteEvent(ctx, runID, testEvent(1, model.EventQueueCreated, "second", nil)))

	events, err := s.ReadEvents(ctx, runID, EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "first", events[0].Description)
}

func TestWriteEvent_UnknownRun(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteEvent(context.Background(), 42, testEvent(1, model.EventError, "x", nil))
	assert.Error(t, err, "foreign key should reject events for a missing run")
}

func TestWriteSnapshot_ReplacesSameSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	runID, err := s.BeginRun(ctx, "run", "", testStart)
	require.NoError(t, err)

	snap := model.NewSnapshot()
	snap.Events = []model.Event{testEvent(3, model.EventExchangeCreated, "created", nil)}
	first, err := s.WriteSnapshot(ctx, runID, snap)
	require.NoError(t, err)

	snap.ActiveFlows = []model.Flow{{ID: "f1", MessageID: "m1", ComponentID: "x1",
		ComponentType: model.ComponentExchange, StartTime: 1, Duration: 800}}
	second, err := s.WriteSnapshot(ctx, runID, snap)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM snapshots WHERE run_id = ?", runID).Scan(&count))
	assert.Equal(t, 1, count)

	got, digest, err := s.LatestSnapshot(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, second, digest)
	assert.Len(t, got.ActiveFlows, 1)
}

func TestFinishRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	runID, err := s.BeginRun(ctx, "run", "scenario.yaml", testStart)
	require.NoError(t, err)

	final := model.NewSnapshot()
	final.Exchanges = []model.Exchange{{ID: "x1", Name: "orders", Type: model.ExchangeTopic, BindingIDs: []string{}}}
	want, err := model.Digest(final)
	require.NoError(t, err)

	finishedAt := testStart.Add(time.Minute)
	require.NoError(t, s.FinishRun(ctx, runID, finishedAt, final))

	run, err := s.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.True(t, run.Finished())
	assert.Equal(t, finishedAt, run.FinishedAt)
	assert.Equal(t, want, run.FinalDigest)
	assert.Equal(t, "scenario.yaml", run.Source)

	got, digest, err := s.LatestSnapshot(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, want, digest)
	assert.Equal(t, final, got)
}

func TestFinishRun_UnknownRun(t *testing.T) {
	s := createTestStore(t)

	err := s.FinishRun(context.Background(), 99, testStart, model.NewSnapshot())
	assert.ErrorIs(t, err, ErrRunNotFound)
}
