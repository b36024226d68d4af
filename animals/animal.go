// Package animals implements the organisms living on the island: the shared
// life-cycle rules and the per-species feeding and birth policies.
package animals

import (
	"errors"
	"fmt"
	"math"

	"github.com/pthm-cable/biosim/params"
	"github.com/pthm-cable/biosim/rng"
)

// ErrInvalidAnimal is returned for a negative age or a non-positive weight.
var ErrInvalidAnimal = errors.New("invalid animal")

// Eating priorities of the predator tier. Herbivores use their fitness,
// which lies in [0, 1], so every herbivore eats before any predator.
const (
	CarnivorePriority = -1.0
	HumanPriority     = -2.0
)

// Animal is the capability set every species provides.
type Animal interface {
	Species() string
	Age() int
	Weight() float64
	// SetWeight overwrites the weight; predators set prey weight to 0.
	SetWeight(w float64)
	Fitness() float64
	EatingPriority() float64
	IsPrey() bool
	// Feed eats from the available fodder and the cell's prey list and
	// returns the amount of fodder consumed.
	Feed(fodder float64, prey []Animal, r *rng.Rand) float64
	// TryGiveBirth returns the newborn, or nil. sameSpecies is the number of
	// animals of this species in the cell before any birth this year.
	TryGiveBirth(sameSpecies int, r *rng.Rand) Animal
	// TryMigrate reports whether the animal left its cell.
	TryMigrate(neighbours []Destination, r *rng.Rand) bool
	Ageing()
	WeightLoss()
	Death(r *rng.Rand) bool
}

// Destination is a cell an animal can offer itself to when migrating.
type Destination interface {
	// TryAcceptMigrant stages the animal for arrival and reports success.
	TryAcceptMigrant(a Animal) bool
}

// Individual describes an animal to be created.
type Individual struct {
	Species string
	Age     int
	Weight  float64
}

// New creates an animal of the given species. p must be the species' shared
// parameter set; the animal keeps the pointer, never a copy.
func New(species string, age int, weight float64, p *params.Set) (Animal, error) {
	if age < 0 || !(weight > 0) || math.IsInf(weight, 1) {
		return nil, fmt.Errorf("%w: %s with age %d and weight %g", ErrInvalidAnimal, species, age, weight)
	}
	b := base{species: species, age: age, weight: weight, p: p}

	switch species {
	case params.Herbivore:
		h := &Herbivore{base: b}
		h.self = h
		return h, nil
	case params.Carnivore:
		c := &Carnivore{base: b}
		c.self = c
		return c, nil
	case params.Human:
		h := &Human{base: b}
		h.self = h
		return h, nil
	default:
		return nil, fmt.Errorf("%w: %s", params.ErrUnknownSpecies, species)
	}
}

// Fitness computes the fitness of an animal with the given age and weight.
//
//	q_age    = 1 / (1 + exp(phi_age * (age - a_half)))
//	q_weight = 1 / (1 + exp(-phi_weight * (weight - w_half)))
//	fitness  = q_age * q_weight, or 0 when weight <= 0
func Fitness(age int, weight float64, p *params.Set) float64 {
	if weight <= 0 {
		return 0
	}
	qAge := 1 / (1 + math.Exp(p.Num(params.KeyPhiAge)*(float64(age)-p.Num(params.KeyAHalf))))
	qWeight := 1 / (1 + math.Exp(-p.Num(params.KeyPhiWeight)*(weight-p.Num(params.KeyWHalf))))
	return qAge * qWeight
}

// base carries the state and rules shared by every species.
type base struct {
	species string
	age     int
	weight  float64
	p       *params.Set

	fitness float64
	fresh   bool // fitness is valid for the current age and weight

	self Animal // the concrete animal embedding this base
}

func (b *base) Species() string { return b.species }
func (b *base) Age() int        { return b.age }
func (b *base) Weight() float64 { return b.weight }

// Params returns the shared parameter set.
func (b *base) Params() *params.Set { return b.p }

func (b *base) SetWeight(w float64) {
	b.weight = w
	b.fresh = false
}

func (b *base) setAge(a int) {
	b.age = a
	b.fresh = false
}

func (b *base) Fitness() float64 {
	if !b.fresh {
		b.fitness = Fitness(b.age, b.weight, b.p)
		b.fresh = true
	}
	return b.fitness
}

func (b *base) IsPrey() bool {
	return b.p.Flag(params.KeyPrey)
}

// TryGiveBirth implements the shared procreation rule:
// the parent must weigh at least zeta*(w_birth+sigma_birth), then gives
// birth with probability min(1, gamma*fitness*(N-1)). The child's weight is
// drawn from N(w_birth, sigma_birth) and the parent loses xi times that; if
// the parent cannot afford the loss the birth is aborted.
func (b *base) TryGiveBirth(sameSpecies int, r *rng.Rand) Animal {
	wBirth := b.p.Num(params.KeyWBirth)
	sigmaBirth := b.p.Num(params.KeySigmaBirth)

	if b.weight < b.p.Num(params.KeyZeta)*(wBirth+sigmaBirth) {
		return nil
	}

	p := math.Min(1, b.p.Num(params.KeyGamma)*b.Fitness()*float64(sameSpecies-1))
	if r.Float64() > p {
		return nil
	}

	childWeight := r.Normal(wBirth, sigmaBirth)
	loss := b.p.Num(params.KeyXi) * childWeight
	if childWeight <= 0 || loss >= b.weight {
		return nil
	}

	child, err := New(b.species, 0, childWeight, b.p)
	if err != nil {
		return nil
	}
	b.SetWeight(b.weight - loss)
	return child
}

// TryMigrate moves with probability mu*fitness towards one uniformly chosen
// neighbour. Uninhabitable neighbours are chosen too and reject the animal.
func (b *base) TryMigrate(neighbours []Destination, r *rng.Rand) bool {
	if len(neighbours) == 0 {
		return false
	}
	if r.Float64() < b.p.Num(params.KeyMu)*b.Fitness() {
		return neighbours[r.Choose(len(neighbours))].TryAcceptMigrant(b.self)
	}
	return false
}

func (b *base) Ageing() {
	b.setAge(b.age + 1)
}

func (b *base) WeightLoss() {
	b.SetWeight(b.weight - b.p.Num(params.KeyEta)*b.weight)
}

// Death reports whether the animal dies this year: always when its weight
// is gone, otherwise with probability omega*(1-fitness).
func (b *base) Death(r *rng.Rand) bool {
	if b.weight <= 0 {
		return true
	}
	return r.Float64() < b.p.Num(params.KeyOmega)*(1-b.Fitness())
}
