package animals

import (
	"cmp"
	"math"
	"slices"

	"github.com/pthm-cable/biosim/params"
	"github.com/pthm-cable/biosim/rng"
)

// Carnivore hunts prey only, weakest first.
type Carnivore struct {
	base
}

// EatingPriority places every carnivore after all herbivores.
func (c *Carnivore) EatingPriority() float64 {
	return CarnivorePriority
}

// Feed sorts the shared prey list by ascending fitness and attacks the
// weakest living prey first. The chance of a kill is
// (own fitness - prey fitness) / DeltaPhiMax; once that is negative every
// remaining prey is out of reach. Carnivores eat no fodder and return 0.
func (c *Carnivore) Feed(_ float64, prey []Animal, r *rng.Rand) float64 {
	appetite := c.p.Num(params.KeyF)
	beta := c.p.Num(params.KeyBeta)
	deltaPhiMax := c.p.Num(params.KeyDeltaPhiMax)

	sortByFitness(prey)

	var eaten float64
	own := c.Fitness()
	for _, p := range prey {
		if p.Weight() <= 0 {
			continue
		}
		relative := (own - p.Fitness()) / deltaPhiMax
		if relative < 0 {
			break
		}
		if relative >= 1 || r.Float64() < relative {
			meal := math.Min(p.Weight(), appetite-eaten)
			eaten += meal
			p.SetWeight(0)
			c.SetWeight(c.weight + meal*beta)
			own = c.Fitness()
			if eaten >= appetite {
				break
			}
		}
	}
	return 0
}

// sortByFitness sorts prey in place by ascending fitness. The sort is stable
// so animals with equal fitness keep the cell's feeding order.
func sortByFitness(prey []Animal) {
	slices.SortStableFunc(prey, func(a, b Animal) int {
		return cmp.Compare(a.Fitness(), b.Fitness())
	})
}
