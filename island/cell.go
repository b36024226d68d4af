package island

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/pthm-cable/biosim/animals"
	"github.com/pthm-cable/biosim/params"
	"github.com/pthm-cable/biosim/rng"
)

// Cell is one square of the island. It owns its residents and a buffer of
// animals that arrived this year and join the residents once every cell has
// finished migrating.
type Cell struct {
	landType string
	land     *params.Set

	animals  []animals.Animal
	incoming []animals.Animal
	fodder   float64
}

func newCell(landType string, land *params.Set) *Cell {
	return &Cell{landType: landType, land: land}
}

// LandType returns the single-character land code of the cell.
func (c *Cell) LandType() string { return c.landType }

// Habitable reports whether animals may live in the cell.
func (c *Cell) Habitable() bool { return c.land.Flag(params.KeyHabitable) }

// Fodder returns the fodder left after this year's feeding.
func (c *Cell) Fodder() float64 { return c.fodder }

// Residents returns the animals living in the cell. The slice is owned by the
// cell and only valid until the next mutation.
func (c *Cell) Residents() []animals.Animal { return c.animals }

// Incoming returns the animals that arrived this year and have not yet
// joined the residents.
func (c *Cell) Incoming() []animals.Animal { return c.incoming }

// build constructs the animals described by pop without touching the cell.
func (c *Cell) build(pop []animals.Individual, reg *params.Registry) ([]animals.Animal, error) {
	if len(pop) > 0 && !c.Habitable() {
		return nil, fmt.Errorf("%w: land type %s", ErrUninhabitable, c.landType)
	}
	built := make([]animals.Animal, 0, len(pop))
	for _, ind := range pop {
		p, err := reg.Species(ind.Species)
		if err != nil {
			return nil, err
		}
		a, err := animals.New(ind.Species, ind.Age, ind.Weight, p)
		if err != nil {
			return nil, err
		}
		built = append(built, a)
	}
	return built, nil
}

// AddPopulation creates the given animals and makes them residents. Either
// every animal is added or none is.
func (c *Cell) AddPopulation(pop []animals.Individual, reg *params.Registry) error {
	built, err := c.build(pop, reg)
	if err != nil {
		return err
	}
	c.animals = append(c.animals, built...)
	return nil
}

// AnimalFeeding lets every resident eat. The fodder is reset to f_max, the
// residents are shuffled and then stably sorted by descending eating
// priority, so animals of equal priority eat in random order. Eaten prey are
// removed afterwards.
func (c *Cell) AnimalFeeding(r *rng.Rand) {
	c.fodder = c.land.Num(params.KeyFMax)

	r.Shuffle(len(c.animals), func(i, j int) {
		c.animals[i], c.animals[j] = c.animals[j], c.animals[i]
	})
	slices.SortStableFunc(c.animals, func(a, b animals.Animal) int {
		return cmp.Compare(b.EatingPriority(), a.EatingPriority())
	})

	var prey []animals.Animal
	for _, a := range c.animals {
		if a.IsPrey() {
			prey = append(prey, a)
		}
	}

	for _, a := range c.animals {
		c.fodder -= a.Feed(c.fodder, prey, r)
	}

	c.animals = slices.DeleteFunc(c.animals, func(a animals.Animal) bool {
		return a.Weight() <= 0
	})
}

// AnimalBreeding gives every resident one chance to give birth. Newborns do
// not count towards the species totals and join after all attempts.
func (c *Cell) AnimalBreeding(r *rng.Rand) {
	counts := make(map[string]int)
	for _, a := range c.animals {
		counts[a.Species()]++
	}

	var born []animals.Animal
	for _, a := range c.animals {
		if child := a.TryGiveBirth(counts[a.Species()], r); child != nil {
			born = append(born, child)
		}
	}
	c.animals = append(c.animals, born...)
}

// AnimalMigration lets every resident try to move to one of neighbours.
// Animals that moved are no longer residents of this cell.
func (c *Cell) AnimalMigration(neighbours []*Cell, r *rng.Rand) {
	dst := make([]animals.Destination, len(neighbours))
	for i, n := range neighbours {
		dst[i] = n
	}
	c.animals = slices.DeleteFunc(c.animals, func(a animals.Animal) bool {
		return a.TryMigrate(dst, r)
	})
}

// TryAcceptMigrant stages a for arrival if the cell is habitable.
func (c *Cell) TryAcceptMigrant(a animals.Animal) bool {
	if !c.Habitable() {
		return false
	}
	c.incoming = append(c.incoming, a)
	return true
}

// FinishAnimalMigration turns this year's arrivals into residents.
func (c *Cell) FinishAnimalMigration() {
	c.animals = append(c.animals, c.incoming...)
	c.incoming = c.incoming[:0]
}

func (c *Cell) AnimalAgeing() {
	for _, a := range c.animals {
		a.Ageing()
	}
}

func (c *Cell) AnimalWeightLoss() {
	for _, a := range c.animals {
		a.WeightLoss()
	}
}

// AnimalDeath removes the residents that die this year.
func (c *Cell) AnimalDeath(r *rng.Rand) {
	c.animals = slices.DeleteFunc(c.animals, func(a animals.Animal) bool {
		return a.Death(r)
	})
}

// Count returns the number of residents of species.
func (c *Cell) Count(species string) int {
	n := 0
	for _, a := range c.animals {
		if a.Species() == species {
			n++
		}
	}
	return n
}

// Fitness returns the fitness of every resident of species.
func (c *Cell) Fitness(species string) []float64 {
	return c.collect(species, animals.Animal.Fitness)
}

// Weights returns the weight of every resident of species.
func (c *Cell) Weights(species string) []float64 {
	return c.collect(species, animals.Animal.Weight)
}

// Ages returns the age of every resident of species.
func (c *Cell) Ages(species string) []int {
	var out []int
	for _, a := range c.animals {
		if a.Species() == species {
			out = append(out, a.Age())
		}
	}
	return out
}

func (c *Cell) collect(species string, get func(animals.Animal) float64) []float64 {
	var out []float64
	for _, a := range c.animals {
		if a.Species() == species {
			out = append(out, get(a))
		}
	}
	return out
}
