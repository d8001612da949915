package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	assert.Equal(t, DemoNames, c.Names())
	assert.Len(t, c.All(), len(DemoNames))

	s, ok := c.Get(DefaultDemo)
	require.True(t, ok)
	assert.Equal(t, "order-exchange", s.Exchanges[0].Name)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCatalog_AddDuplicate(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Add(&Scenario{Name: "a"}))
	assert.ErrorContains(t, c.Add(&Scenario{Name: "a"}), "already registered")
	assert.Equal(t, []string{"a"}, c.Names())
}

func TestCatalog_NamesIsACopy(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Add(&Scenario{Name: "a"}))

	names := c.Names()
	names[0] = "mutated"
	assert.Equal(t, []string{"a"}, c.Names())
}

// Every built-in demo carries assertions describing its expected outcome.
func TestDemos_AssertionsHold(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	for _, s := range c.All() {
		t.Run(s.Name, func(t *testing.T) {
			require.NotEmpty(t, s.Assertions)
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestDemos_ScalingSpreadsLoad(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)
	s, _ := c.Get("scaling")

	result, err := Run(s)
	require.NoError(t, err)

	var lo, hi int64 = -1, 0
	for _, consumer := range result.State.Consumers {
		if lo < 0 || consumer.ProcessedMessages < lo {
			lo = consumer.ProcessedMessages
		}
		hi = max(hi, consumer.ProcessedMessages)
	}
	assert.LessOrEqual(t, hi-lo, int64(1))
}
