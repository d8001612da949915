package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchTopic(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"order.*", "order.created", true},
		{"order.*", "order.created.extra", false},
		{"order.*", "order", false},
		{"order.#", "order", true},
		{"order.#", "order.created", true},
		{"order.#", "order.created.extra", true},
		{"*.error", "app.error", true},
		{"*.error", "app.warn.error", false},
		{"#", "", true},
		{"#", "anything.at.all", true},
		{"#.error", "error", true},
		{"#.error", "app.db.error", true},
		{"#.error", "app.db.warn", false},
		{"a.#.z", "a.z", true},
		{"a.#.z", "a.b.z", true},
		{"a.#.z", "a.b.c.z", true},
		{"a.#.z", "a.b.c", false},
		{"a.#.b.#.c", "a.x.b.y.c", true},
		{"a.#.b.#.c", "a.b.c", true},
		{"a.#.b.#.c", "a.c.b", false},
		{"#.#", "x", true},
		{"*", "", true},
		{"*.#", "", true},
		{"*.*", "", false},
		{"order.created", "order.created", true},
		{"order.created", "order.updated", false},
		{"", "", true},
		{"", "order", false},
		{"*.*", "a.b", true},
		{"*.*", "a", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"|"+tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchTopic(tt.pattern, tt.key))
		})
	}
}

func TestMatchTopic_InteriorHashTriesEverySplit(t *testing.T) {
	// The first candidate split ("x" after "a") fails; a later one succeeds.
	assert.True(t, MatchTopic("a.#.x.y", "a.x.b.x.y"))
}

func TestMatchTopic_ManyHashesStayFast(t *testing.T) {
	pattern := strings.Repeat("#.", 30) + "z"
	key := strings.Repeat("a.", 40) + "b"

	assert.False(t, MatchTopic(pattern, key))
}

func TestCollapseHashes(t *testing.T) {
	assert.Equal(t, []string{"#", "a", "#"}, collapseHashes([]string{"#", "#", "a", "#", "#", "#"}))
	assert.Equal(t, []string{}, collapseHashes([]string{}))
}
