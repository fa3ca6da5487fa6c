// Package rng supplies the seeded sequence sources the simulation draws from.
package rng

import "math/rand/v2"

// stream separates the second PCG word from the seed so that nearby seeds
// still produce unrelated sequences.
const stream = 0x9e3779b97f4a7c15

// Source produces uniform reals in [0,1) and uniform integers in [0,n).
type Source interface {
	Float64() float64
	IntN(n int) int
}

// New returns a PCG-backed source. Two sources built from the same seed
// yield the same draws.
func New(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^stream))
}
