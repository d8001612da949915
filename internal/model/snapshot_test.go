package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshotCollectionsNonNil(t *testing.T) {
	s := NewSnapshot()

	assert.NotNil(t, s.Exchanges)
	assert.NotNil(t, s.Queues)
	assert.NotNil(t, s.Consumers)
	assert.NotNil(t, s.Bindings)
	assert.NotNil(t, s.Messages)
	assert.NotNil(t, s.Events)
	assert.NotNil(t, s.ActiveFlows)
}

func TestCloneIsIndependent(t *testing.T) {
	orig := sampleSnapshot()
	clone := orig.Clone()
	require.Equal(t, orig, clone)

	clone.Exchanges[0].BindingIDs[0] = "changed"
	clone.Queues[0].Messages[0].Content = "changed"
	clone.Queues[0].ConsumerIDs = append(clone.Queues[0].ConsumerIDs, "c-2")
	clone.Events[0].Details["exchange_id"] = "changed"
	clone.Consumers[0].ProcessedMessages = 99

	assert.Equal(t, "b-1", orig.Exchanges[0].BindingIDs[0])
	assert.Equal(t, "hello", orig.Queues[0].Messages[0].Content)
	assert.Len(t, orig.Queues[0].ConsumerIDs, 1)
	assert.Equal(t, "ex-1", orig.Events[0].Details["exchange_id"])
	assert.Equal(t, int64(0), orig.Consumers[0].ProcessedMessages)
}

func TestCloneOfZeroSnapshot(t *testing.T) {
	var s Snapshot
	assert.Equal(t, NewSnapshot(), s.Clone())
}

func TestDocumentRoundTrip(t *testing.T) {
	doc := Document{FormatVersion: FormatVersion, State: sampleSnapshot()}

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var decoded Document
	require.NoError(t, json.Unmarshal(data, &decoded))
	decoded.State.Normalize()

	assert.Equal(t, doc, decoded)
}

func TestNormalizeFillsNestedCollections(t *testing.T) {
	s := Snapshot{
		Exchanges: []Exchange{{ID: "e"}},
		Queues:    []Queue{{ID: "q"}},
	}
	s.Normalize()

	assert.NotNil(t, s.Exchanges[0].BindingIDs)
	assert.NotNil(t, s.Queues[0].Messages)
	assert.NotNil(t, s.Queues[0].ConsumerIDs)
	assert.NotNil(t, s.Events)
}
