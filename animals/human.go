package animals

import (
	"math"

	"github.com/pthm-cable/biosim/params"
	"github.com/pthm-cable/biosim/rng"
)

// Human is an omnivore: it grazes first and hunts only when still hungry.
type Human struct {
	base
}

// EatingPriority places humans after every herbivore and carnivore.
func (h *Human) EatingPriority() float64 {
	return HumanPriority
}

// Feed eats up to F_fodder fodder at beta_fodder. If that does not reach the
// total appetite F, it hunts, trying the fittest prey first and converting
// prey at beta_prey. Prey it cannot beat are skipped; the hunt ends at the
// first dead prey since only dead or weaker prey follow it.
func (h *Human) Feed(fodder float64, prey []Animal, r *rng.Rand) float64 {
	appetite := h.p.Num(params.KeyF)

	eatenFodder := math.Max(0, math.Min(fodder, h.p.Num(params.KeyFFodder)))
	h.SetWeight(h.weight + eatenFodder*h.p.Num(params.KeyBetaFodder))

	eaten := eatenFodder
	if eaten >= appetite {
		return eatenFodder
	}

	betaPrey := h.p.Num(params.KeyBetaPrey)
	deltaPhiMax := h.p.Num(params.KeyDeltaPhiMax)

	sortByFitness(prey)

	own := h.Fitness()
	for i := len(prey) - 1; i >= 0; i-- {
		p := prey[i]
		if p.Weight() <= 0 {
			break
		}
		relative := (own - p.Fitness()) / deltaPhiMax
		if relative < 0 {
			continue
		}
		if relative >= 1 || r.Float64() < relative {
			meal := math.Min(p.Weight(), appetite-eaten)
			eaten += meal
			p.SetWeight(0)
			h.SetWeight(h.weight + meal*betaPrey)
			own = h.Fitness()
			if eaten >= appetite {
				break
			}
		}
	}
	return eatenFodder
}

// TryGiveBirth requires the human to have reached BirthAge_min before the
// shared procreation rule applies.
func (h *Human) TryGiveBirth(sameSpecies int, r *rng.Rand) Animal {
	if float64(h.age) < h.p.Num(params.KeyBirthAgeMin) {
		return nil
	}
	return h.base.TryGiveBirth(sameSpecies, r)
}
