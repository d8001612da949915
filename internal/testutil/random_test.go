package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScriptedRandom_Cycles(t *testing.T) {
	r := NewScriptedRandom(0.05, 0.5)

	assert.Equal(t, 0.05, r.Float64())
	assert.Equal(t, 0.5, r.Float64())
	assert.Equal(t, 0.05, r.Float64())
	assert.Equal(t, 3, r.Draws())
}

func TestScriptedRandom_Presets(t *testing.T) {
	never := NeverReject()
	always := AlwaysReject()

	for range 3 {
		assert.False(t, never.Float64() < 0.999)
		assert.True(t, always.Float64() < 0.001)
	}
}
