// Package randsrc provides seeded random sources for the sequencing engine.
package randsrc

import "math/rand/v2"

// PCG is a seeded random source backed by math/rand/v2's PCG generator.
//
// The PCG stream is fully determined by its seed and identical across
// platforms, so the same seed reproduces the same trial ordering on every
// machine. PCG is not safe for concurrent use; the engine draws from it on
// a single goroutine during ordering construction only.
type PCG struct {
	rng *rand.Rand
}

// New creates a source seeded with the given value.
func New(seed uint64) *PCG {
	return &PCG{rng: rand.New(rand.NewPCG(seed, seed))}
}

// Float64 returns the next uniform float in [0,1).
func (p *PCG) Float64() float64 {
	return p.rng.Float64()
}
