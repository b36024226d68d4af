package telemetry

import "slices"

// Collector produces one YearStats per species each year and remembers the
// previous counts to report the yearly change.
type Collector struct {
	prev map[string]int
}

// NewCollector creates a new stats collector.
func NewCollector() *Collector {
	return &Collector{prev: make(map[string]int)}
}

// Collect samples src and returns the stats for every species in the order
// src.Species reports them.
func (c *Collector) Collect(src Source) []YearStats {
	counts := src.NumAnimalsPerSpecies()
	perCell := src.NumAnimalsPerCellPerSpecies()
	fitness := src.FitnessPerSpecies()
	ages := src.AgesPerSpecies()
	weights := src.WeightsPerSpecies()

	species := src.Species()
	out := make([]YearStats, 0, len(species))
	for _, name := range species {
		f := Summarize(fitness[name])
		a := Summarize(toFloats(ages[name]))
		w := Summarize(weights[name])

		occupied := 0
		for _, n := range perCell[name] {
			if n > 0 {
				occupied++
			}
		}
		ageMax := 0
		if len(ages[name]) > 0 {
			ageMax = slices.Max(ages[name])
		}

		out = append(out, YearStats{
			Year:          src.Year(),
			Species:       name,
			Count:         counts[name],
			Change:        counts[name] - c.prev[name],
			FitnessMean:   f.Mean,
			FitnessStd:    f.Std,
			FitnessP10:    f.P10,
			FitnessP50:    f.P50,
			FitnessP90:    f.P90,
			AgeMean:       a.Mean,
			AgeMax:        ageMax,
			WeightMean:    w.Mean,
			WeightP50:     w.P50,
			OccupiedCells: occupied,
		})
		c.prev[name] = counts[name]
	}
	return out
}
