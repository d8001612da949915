package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/brokersim/internal/engine"
	"github.com/roach88/brokersim/internal/model"
)

var never = 0.0

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := Load("testdata/scenarios/" + name + ".yaml")
	require.NoError(t, err)
	return s
}

func TestRun_Capacity(t *testing.T) {
	result, err := Run(loadTestScenario(t, "capacity"))
	require.NoError(t, err)

	assert.True(t, result.Pass, result.Errors)
	assert.Empty(t, result.Errors)
}

func TestRun_TTL(t *testing.T) {
	result, err := Run(loadTestScenario(t, "ttl"))
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)

	var expiredAt int64 = -1
	for _, ev := range result.Trace {
		if ev.Type == model.EventMessageRejected {
			expiredAt = ev.AtMs
		}
	}
	assert.Equal(t, int64(2000), expiredAt, "expires on the first tick at least 1500ms after publication")
}

func TestRun_TraceIsChronological(t *testing.T) {
	result, err := Run(loadTestScenario(t, "capacity"))
	require.NoError(t, err)

	require.NotEmpty(t, result.Trace)
	for i := 1; i < len(result.Trace); i++ {
		assert.Equal(t, result.Trace[i-1].Seq+1, result.Trace[i].Seq)
		assert.LessOrEqual(t, result.Trace[i-1].AtMs, result.Trace[i].AtMs)
	}
}

func TestRun_PublicationBeforeTickAtSameInstant(t *testing.T) {
	s := &Scenario{
		Name: "same-instant", Description: "publication and tick at 1000ms",
		Exchanges:    []ExchangeSpec{{Name: "ex", Type: "fanout"}},
		Queues:       []QueueSpec{{Name: "q"}},
		Bindings:     []BindingSpec{{Exchange: "ex", Queue: "q"}},
		Consumers:    []ConsumerSpec{{Name: "c", Queue: "q"}},
		Publications: []Publication{{AtMs: 1000, Exchange: "ex", Content: "m"}},
		Run:          &RunSpec{Ticks: 1, RejectProbability: &never},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count(model.EventMessageConsumed))
}

func TestRun_PublicationsAfterLastTickStillFire(t *testing.T) {
	s := &Scenario{
		Name: "late", Description: "publication after the last tick",
		Exchanges:    []ExchangeSpec{{Name: "ex", Type: "fanout"}},
		Queues:       []QueueSpec{{Name: "q"}},
		Bindings:     []BindingSpec{{Exchange: "ex", Queue: "q"}},
		Consumers:    []ConsumerSpec{{Name: "c", Queue: "q"}},
		Publications: []Publication{{AtMs: 9000, Exchange: "ex", Content: "late"}},
		Run:          &RunSpec{Ticks: 2},
		Assertions:   []Assertion{{Type: AssertQueueDepth, Queue: "q", Count: 1}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)

	last := result.Trace[len(result.Trace)-1]
	assert.Equal(t, model.EventMessageRouted, last.Type)
	assert.Equal(t, int64(9000), last.AtMs)
}

func TestRun_PublicationsSortedByOffset(t *testing.T) {
	s := &Scenario{
		Name: "unsorted", Description: "publications declared out of order",
		Exchanges: []ExchangeSpec{{Name: "ex", Type: "fanout"}},
		Queues:    []QueueSpec{{Name: "q"}},
		Bindings:  []BindingSpec{{Exchange: "ex", Queue: "q"}},
		Publications: []Publication{
			{AtMs: 300, Exchange: "ex", Content: "second"},
			{AtMs: 100, Exchange: "ex", Content: "first"},
		},
		Run: &RunSpec{Ticks: 1},
	}

	result, err := Run(s)
	require.NoError(t, err)

	msgs := result.State.Queues[0].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
}

func TestRun_ScriptedRejections(t *testing.T) {
	s := &Scenario{
		Name: "rejects", Description: "every delivery rejected",
		Exchanges: []ExchangeSpec{{Name: "ex", Type: "direct"}},
		Queues:    []QueueSpec{{Name: "q"}},
		Bindings:  []BindingSpec{{Exchange: "ex", Queue: "q", RoutingKey: "k"}},
		Consumers: []ConsumerSpec{{Name: "c", Queue: "q"}},
		Publications: []Publication{
			{AtMs: 0, Exchange: "ex", RoutingKey: "k", Content: "a"},
			{AtMs: 0, Exchange: "ex", RoutingKey: "k", Content: "b"},
		},
		Run: &RunSpec{Ticks: 3, Rejections: []bool{true}},
		Assertions: []Assertion{
			{Type: AssertConsumerProcessed, Consumer: "c", Count: 0},
			{Type: AssertEventCount, Event: "message_rejected", Count: 2},
			{Type: AssertEventCount, Event: "message_dlq", Count: 0},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_SeededRunsAreReproducible(t *testing.T) {
	s := &Scenario{
		Name: "seeded", Description: "default probability with a seed",
		Exchanges: []ExchangeSpec{{Name: "ex", Type: "fanout"}},
		Queues:    []QueueSpec{{Name: "q"}},
		Bindings:  []BindingSpec{{Exchange: "ex", Queue: "q"}},
		Consumers: []ConsumerSpec{{Name: "c", Queue: "q"}},
		Run:       &RunSpec{Ticks: 25, Seed: 42},
	}
	for i := 0; i < 20; i++ {
		s.Publications = append(s.Publications, Publication{AtMs: int64(i) * 100, Exchange: "ex", Content: "m"})
	}

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, 20, first.Count(model.EventMessageConsumed)+first.Count(model.EventMessageRejected))
}

func TestRun_FailedAssertions(t *testing.T) {
	s := &Scenario{
		Name: "failing", Description: "wrong expectations",
		Exchanges: []ExchangeSpec{{Name: "ex", Type: "direct"}},
		Queues:    []QueueSpec{{Name: "q"}},
		Assertions: []Assertion{
			{Type: AssertQueueDepth, Queue: "q", Count: 3},
			{Type: AssertEventOrder, Events: []string{"queue_created", "exchange_created"}},
			{Type: AssertEventCount, Event: "message_published", Count: 1},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "Assertion failed: queue_depth")
	assert.Contains(t, result.Errors[1], "should be before")
	assert.Contains(t, result.Errors[2], "0 occurrences")
}

func TestRun_WithSubscriber(t *testing.T) {
	var snapshots int
	_, err := Run(loadTestScenario(t, "capacity"), WithSubscriber(func(model.Snapshot) { snapshots++ }))
	require.NoError(t, err)
	assert.Greater(t, snapshots, 0)
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}

func TestRun_TraceKeepsEventsBeyondLogCap(t *testing.T) {
	const messages = 80
	pubs := make([]Publication, messages)
	for i := range pubs {
		pubs[i] = Publication{AtMs: 0, Exchange: "ex", Content: "m"}
	}
	s := &Scenario{
		Name: "burst-expiry", Description: "every message expires in the same tick",
		Exchanges:    []ExchangeSpec{{Name: "ex", Type: "fanout"}},
		Queues:       []QueueSpec{{Name: "short", DeadLetterQueue: "dead", MessageTTLMs: 100}, {Name: "dead"}},
		Bindings:     []BindingSpec{{Exchange: "ex", Queue: "short"}},
		Publications: pubs,
		Run:          &RunSpec{Ticks: 1, RejectProbability: &never},
		Assertions: []Assertion{
			{Type: AssertEventCount, Event: string(model.EventMessageDLQ), Count: messages},
			{Type: AssertEventCount, Event: string(model.EventMessageRejected), Count: messages},
			{Type: AssertQueueDepth, Queue: "dead", Count: messages},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)

	// Two events per expiry in one tick: more than the engine's log holds.
	require.Greater(t, 2*messages, engine.DefaultEventLogCap)
	for i := 1; i < len(result.Trace); i++ {
		assert.Equal(t, result.Trace[i-1].Seq+1, result.Trace[i].Seq)
	}
	assert.Len(t, result.State.Events, engine.DefaultEventLogCap)
}

func TestRun_WithEventListener(t *testing.T) {
	var heard []model.Event
	result, err := Run(loadTestScenario(t, "capacity"), WithEventListener(func(ev model.Event) { heard = append(heard, ev) }))
	require.NoError(t, err)

	require.Len(t, heard, len(result.Trace))
	for i, ev := range heard {
		assert.Equal(t, result.Trace[i].Seq, ev.Seq)
	}
}
