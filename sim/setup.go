package sim

import (
	"fmt"

	"github.com/pthm-cable/biosim/animals"
	"github.com/pthm-cable/biosim/config"
	"github.com/pthm-cable/biosim/island"
)

// FromConfig builds a simulation from a loaded configuration: the island map
// (generated when island.generate is set), the parameter tables, the inline
// population and the population file. Options are applied after the ones
// derived from cfg.
func FromConfig(cfg *config.Config, opts ...Option) (*Simulation, error) {
	geography := cfg.Derived.Geography
	if cfg.Derived.GenerateMap {
		gen := cfg.Island.Generate
		g, err := island.Generate(gen.Rows, gen.Cols, cfg.Derived.GenerateSeed)
		if err != nil {
			return nil, fmt.Errorf("generating island: %w", err)
		}
		geography = g
	}

	placements := Placements(cfg.Population)
	if cfg.PopulationFile != "" {
		extra, err := config.LoadPopulation(cfg.PopulationFile)
		if err != nil {
			return nil, err
		}
		placements = append(placements, Placements(extra)...)
	}

	all := append([]Option{
		WithParameters(cfg.Species, cfg.Landscape),
		WithLogEvery(cfg.Simulation.LogEvery),
	}, opts...)
	return New(geography, placements, cfg.Simulation.Seed, all...)
}

// Placements expands configured placements into island placements. Entries
// with a count stand for that many identical individuals.
func Placements(cfgs []config.PlacementConfig) []island.Placement {
	out := make([]island.Placement, 0, len(cfgs))
	for _, pc := range cfgs {
		p := island.Placement{Loc: island.Location{Row: pc.Loc[0], Col: pc.Loc[1]}}
		for _, ind := range pc.Pop {
			for range ind.N() {
				p.Pop = append(p.Pop, animals.Individual{
					Species: ind.Species,
					Age:     ind.Age,
					Weight:  ind.Weight,
				})
			}
		}
		out = append(out, p)
	}
	return out
}
