package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"negative int", -100, "-100"},
		{"max int64", int64(9223372036854775807), "9223372036854775807"},
		{"float", 1.5, "1.5"},
		{"bool true", true, "true"},
		{"null", nil, "null"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"array of ints", []int{1, 2, 3}, "[1,2,3]"},
		{"simple object", map[string]any{"a": 1}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := map[string]any{
		"zebra": 1,
		"alpha": 2,
		"beta":  map[string]any{"y": 1, "x": 2},
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":{"x":2,"y":1},"zebra":1}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+1F600 encodes as a surrogate pair (0xD83D...) which sorts before
	// U+FFFF in UTF-16 but after it in UTF-8.
	obj := map[string]any{
		"\uFFFF":     2,
		"\U0001F600": 1,
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":1,\"\uFFFF\":2}", string(result))
}

func TestMarshalCanonicalStructTags(t *testing.T) {
	result, err := MarshalCanonical(Binding{
		ID:         "b1",
		ExchangeID: "e1",
		QueueID:    "q1",
		RoutingKey: "order.*",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"exchange_id":"e1","id":"b1","queue_id":"q1","routing_key":"order.*"}`, string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical("<a href=\"x\">&</a>")
	require.NoError(t, err)
	assert.Equal(t, `"<a href=\"x\">&</a>"`, string(result))
}

func TestMarshalCanonicalNFCNormalization(t *testing.T) {
	decomposed := "e\u0301"
	composed := "\u00e9"

	a, err := MarshalCanonical(map[string]any{decomposed: decomposed})
	require.NoError(t, err)
	b, err := MarshalCanonical(map[string]any{composed: composed})
	require.NoError(t, err)

	assert.Equal(t, string(b), string(a))
	assert.Equal(t, "{\"\u00e9\":\"\u00e9\"}", string(a))
}

func TestMarshalCanonicalLineSeparatorsNotEscaped(t *testing.T) {
	result, err := MarshalCanonical("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(result))
}

func TestMarshalCanonicalLiteralBackslashU2028(t *testing.T) {
	// The six-character text backslash-u2028 must stay escaped.
	result, err := MarshalCanonical(`\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(result))
}

func TestMarshalCanonicalControlCharsEscaped(t *testing.T) {
	result, err := MarshalCanonical("tab\there\nnewline")
	require.NoError(t, err)
	assert.Equal(t, `"tab\there\nnewline"`, string(result))
}

func TestMarshalCanonicalIdempotency(t *testing.T) {
	s := sampleSnapshot()

	first, err := MarshalCanonical(s)
	require.NoError(t, err)
	for range 5 {
		again, err := MarshalCanonical(s)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestMarshalCanonicalUnsupported(t *testing.T) {
	_, err := MarshalCanonical(make(chan int))
	assert.Error(t, err)
}
