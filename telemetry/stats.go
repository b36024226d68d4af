// Package telemetry turns a running simulation into yearly statistics,
// histograms and population events, and writes them to CSV, SQLite and
// compressed JSONL sinks.
package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/biosim/island"
)

// Source is the read-only view of a simulation the telemetry needs.
type Source interface {
	Year() int
	Species() []string
	NumAnimalsPerSpecies() map[string]int
	NumAnimalsPerCellPerSpecies() map[string]map[island.Location]int
	FitnessPerSpecies() map[string][]float64
	AgesPerSpecies() map[string][]int
	WeightsPerSpecies() map[string][]float64
}

// YearStats holds the statistics of one species at the end of one year.
type YearStats struct {
	Year    int    `csv:"year"`
	Species string `csv:"species"`

	Count  int `csv:"count"`
	Change int `csv:"change"` // Count minus last year's count

	FitnessMean float64 `csv:"fitness_mean"`
	FitnessStd  float64 `csv:"fitness_std"`
	FitnessP10  float64 `csv:"fitness_p10"`
	FitnessP50  float64 `csv:"fitness_p50"`
	FitnessP90  float64 `csv:"fitness_p90"`

	AgeMean float64 `csv:"age_mean"`
	AgeMax  int     `csv:"age_max"`

	WeightMean float64 `csv:"weight_mean"`
	WeightP50  float64 `csv:"weight_p50"`

	OccupiedCells int `csv:"occupied_cells"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Summary holds the moments and percentiles of a sample.
type Summary struct {
	Mean, Std     float64
	P10, P50, P90 float64
}

// Summarize computes mean, population standard deviation and percentiles.
// An empty sample yields the zero Summary.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	mean, std := stat.PopMeanStdDev(values, nil)

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	return Summary{
		Mean: mean,
		Std:  std,
		P10:  Percentile(sorted, 0.10),
		P50:  Percentile(sorted, 0.50),
		P90:  Percentile(sorted, 0.90),
	}
}

func toFloats(xs []int) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}

// LogValue implements slog.LogValuer for structured logging.
func (s YearStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("year", s.Year),
		slog.String("species", s.Species),
		slog.Int("count", s.Count),
		slog.Int("change", s.Change),
		slog.Float64("fitness_mean", s.FitnessMean),
		slog.Float64("fitness_std", s.FitnessStd),
		slog.Float64("fitness_p10", s.FitnessP10),
		slog.Float64("fitness_p50", s.FitnessP50),
		slog.Float64("fitness_p90", s.FitnessP90),
		slog.Float64("age_mean", s.AgeMean),
		slog.Int("age_max", s.AgeMax),
		slog.Float64("weight_mean", s.WeightMean),
		slog.Float64("weight_p50", s.WeightP50),
		slog.Int("occupied_cells", s.OccupiedCells),
	)
}

// LogStats logs the year stats using slog.
func (s YearStats) LogStats() {
	slog.Info("stats", "stats", s)
}
