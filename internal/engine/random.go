package engine

import "math/rand/v2"

// RandomSource supplies the uniform draw used for consumer rejection.
// *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// globalRandom draws from the math/rand/v2 top-level generator.
type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }

// NewSeededRandom returns a reproducible RandomSource.
func NewSeededRandom(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
