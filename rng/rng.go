// Package rng provides the single random source a simulation run draws from.
package rng

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Rand is an explicitly passed random source. Every stochastic decision in
// a run draws from the same Rand, so a fixed seed reproduces a run exactly.
type Rand struct {
	*rand.Rand
	src rand.Source
}

// New returns a Rand seeded with seed.
func New(seed uint64) *Rand {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &Rand{Rand: rand.New(src), src: src}
}

// Normal samples from N(mu, sigma) using the shared source.
func (r *Rand) Normal(mu, sigma float64) float64 {
	if sigma == 0 {
		return mu
	}
	return distuv.Normal{Mu: mu, Sigma: sigma, Src: r.src}.Rand()
}

// Choose returns a uniformly chosen index in [0, n). n must be positive.
func (r *Rand) Choose(n int) int {
	return r.IntN(n)
}
