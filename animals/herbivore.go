package animals

import (
	"math"

	"github.com/pthm-cable/biosim/params"
	"github.com/pthm-cable/biosim/rng"
)

// Herbivore grazes fodder and is prey to the predator tier.
type Herbivore struct {
	base
}

// EatingPriority is the herbivore's fitness: the fittest eat first.
func (h *Herbivore) EatingPriority() float64 {
	return h.Fitness()
}

// Feed eats up to F units of the remaining fodder and gains beta per unit.
// Herbivores never attack prey.
func (h *Herbivore) Feed(fodder float64, _ []Animal, _ *rng.Rand) float64 {
	eaten := math.Max(0, math.Min(fodder, h.p.Num(params.KeyF)))
	h.SetWeight(h.weight + eaten*h.p.Num(params.KeyBeta))
	return eaten
}
