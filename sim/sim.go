// Package sim drives a BioSim run: it owns the parameter registry, the
// island and the random source, advances years and answers queries about
// the populations.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/biosim/config"
	"github.com/pthm-cable/biosim/island"
	"github.com/pthm-cable/biosim/params"
	"github.com/pthm-cable/biosim/rng"
)

// ErrNegativeYears is returned by Simulate for a negative year count.
var ErrNegativeYears = errors.New("number of years can not be negative")

// YearHook is called after every simulated year. A non-nil error stops the
// run.
type YearHook func(s *Simulation) error

type options struct {
	species  map[string]map[string]any
	land     map[string]map[string]any
	logger   *slog.Logger
	logEvery int
	hooks    []YearHook
}

// Option configures a Simulation.
type Option func(*options)

// WithParameters replaces the default species and landscape tables.
func WithParameters(species, land map[string]map[string]any) Option {
	return func(o *options) {
		o.species = species
		o.land = land
	}
}

// WithLogger sets the logger for yearly records. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithLogEvery logs a "year" record every n years; 0 disables it.
func WithLogEvery(n int) Option {
	return func(o *options) { o.logEvery = n }
}

// WithYearHook adds a hook run after every year, in the order added.
func WithYearHook(h YearHook) Option {
	return func(o *options) { o.hooks = append(o.hooks, h) }
}

// Simulation is a single BioSim run.
type Simulation struct {
	reg    *params.Registry
	isl    *island.Island
	rng    *rng.Rand
	geo    string
	seed   int64
	year   int
	logger *slog.Logger

	logEvery int
	hooks    []YearHook
}

// New builds the registry and the island, seeds the random source and adds
// the initial population. The random source is seeded once here, so two
// Simulate calls continue one stream of draws.
func New(geography string, initial []island.Placement, seed int64, opts ...Option) (*Simulation, error) {
	o := options{logEvery: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.species == nil || o.land == nil {
		defaults, err := config.Defaults()
		if err != nil {
			return nil, err
		}
		if o.species == nil {
			o.species = defaults.Species
		}
		if o.land == nil {
			o.land = defaults.Landscape
		}
	}

	reg, err := params.NewRegistry(o.species, o.land)
	if err != nil {
		return nil, fmt.Errorf("building parameter registry: %w", err)
	}
	isl, err := island.New(geography, reg)
	if err != nil {
		return nil, fmt.Errorf("building island: %w", err)
	}

	s := &Simulation{
		reg:      reg,
		isl:      isl,
		rng:      rng.New(uint64(seed)),
		geo:      geography,
		seed:     seed,
		logger:   o.logger,
		logEvery: o.logEvery,
		hooks:    o.hooks,
	}
	if err := s.AddPopulation(initial); err != nil {
		return nil, fmt.Errorf("adding initial population: %w", err)
	}
	return s, nil
}

// SetAnimalParameters updates parameters of one species. Nothing changes
// unless every entry is valid.
func (s *Simulation) SetAnimalParameters(species string, values map[string]any) error {
	return s.reg.SetSpecies(species, values)
}

// SetLandscapeParameters updates parameters of one land type.
func (s *Simulation) SetLandscapeParameters(code string, values map[string]any) error {
	return s.reg.SetLand(code, values)
}

// SetSpeciesParameter updates a single species parameter.
func (s *Simulation) SetSpeciesParameter(species, name string, value any) error {
	return s.reg.SetSpecies(species, map[string]any{name: value})
}

// SetLandParameter updates a single land type parameter.
func (s *Simulation) SetLandParameter(code, name string, value any) error {
	return s.reg.SetLand(code, map[string]any{name: value})
}

// AddPopulation places animals on the island; a failing call adds nothing.
func (s *Simulation) AddPopulation(placements []island.Placement) error {
	return s.isl.AddPopulations(placements)
}

// Simulate runs the given number of years.
func (s *Simulation) Simulate(years int) error {
	return s.SimulateContext(context.Background(), years)
}

// SimulateContext runs the given number of years, stopping between years if
// ctx is done.
func (s *Simulation) SimulateContext(ctx context.Context, years int) error {
	if years < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeYears, years)
	}
	for i := 0; i < years; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.isl.SimulateYear(s.rng)
		s.year++

		if s.logEvery > 0 && s.year%s.logEvery == 0 {
			s.logYear(ctx)
		}
		for _, h := range s.hooks {
			if err := h(s); err != nil {
				return fmt.Errorf("year %d hook: %w", s.year, err)
			}
		}
	}
	return nil
}

func (s *Simulation) logYear(ctx context.Context) {
	counts := s.NumAnimalsPerSpecies()
	attrs := make([]slog.Attr, 0, len(counts))
	for _, name := range s.Species() {
		attrs = append(attrs, slog.Int(name, counts[name]))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "year",
		slog.Int("year", s.year),
		slog.Int("total", s.NumAnimals()),
		slog.Attr{Key: "counts", Value: slog.GroupValue(attrs...)},
	)
}

// Year returns the number of years simulated so far.
func (s *Simulation) Year() int { return s.year }

// Seed returns the seed the random source was created with.
func (s *Simulation) Seed() int64 { return s.seed }

// Geography returns the map the island was built from.
func (s *Simulation) Geography() string { return s.geo }

// Species returns the registered species in sorted order.
func (s *Simulation) Species() []string { return s.reg.SpeciesNames() }

func (s *Simulation) Island() *island.Island     { return s.isl }
func (s *Simulation) Registry() *params.Registry { return s.reg }

// NumAnimals returns the total number of animals on the island.
func (s *Simulation) NumAnimals() int {
	n := 0
	for _, name := range s.Species() {
		n += s.isl.SpeciesCount(name)
	}
	return n
}

// NumAnimalsPerSpecies returns the island-wide count of every species.
func (s *Simulation) NumAnimalsPerSpecies() map[string]int {
	out := make(map[string]int)
	for _, name := range s.Species() {
		out[name] = s.isl.SpeciesCount(name)
	}
	return out
}

// NumAnimalsPerCellPerSpecies returns, for every species, the count in each
// cell of the island.
func (s *Simulation) NumAnimalsPerCellPerSpecies() map[string]map[island.Location]int {
	out := make(map[string]map[island.Location]int)
	for _, name := range s.Species() {
		out[name] = s.isl.CellPopulation(name)
	}
	return out
}

func (s *Simulation) FitnessPerSpecies() map[string][]float64 {
	out := make(map[string][]float64)
	for _, name := range s.Species() {
		out[name] = s.isl.SpeciesFitness(name)
	}
	return out
}

func (s *Simulation) AgesPerSpecies() map[string][]int {
	out := make(map[string][]int)
	for _, name := range s.Species() {
		out[name] = s.isl.SpeciesAges(name)
	}
	return out
}

func (s *Simulation) WeightsPerSpecies() map[string][]float64 {
	out := make(map[string][]float64)
	for _, name := range s.Species() {
		out[name] = s.isl.SpeciesWeights(name)
	}
	return out
}
