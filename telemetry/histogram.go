package telemetry

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/biosim/config"
)

// Histogram quantities.
const (
	QuantityFitness = "fitness"
	QuantityAge     = "age"
	QuantityWeight  = "weight"
)

// HistogramRow is one bin of one species' histogram in one year.
type HistogramRow struct {
	Year     int     `csv:"year"`
	Species  string  `csv:"species"`
	Quantity string  `csv:"quantity"`
	BinLow   float64 `csv:"bin_low"`
	BinHigh  float64 `csv:"bin_high"`
	Count    int     `csv:"count"`
}

// Histograms bins fitness, age and weight per species with fixed bins from
// 0 to each quantity's max.
type Histograms struct {
	quantities []string
	dividers   map[string][]float64
}

// NewHistograms prepares the bin edges for every configured quantity.
// Quantities other than fitness, age and weight are ignored.
func NewHistograms(specs map[string]config.HistogramSpec) *Histograms {
	h := &Histograms{dividers: make(map[string][]float64)}
	for _, q := range []string{QuantityAge, QuantityFitness, QuantityWeight} {
		spec, ok := specs[q]
		if !ok || spec.Max <= 0 || spec.Delta <= 0 {
			continue
		}
		h.quantities = append(h.quantities, q)
		h.dividers[q] = Dividers(spec.Max, spec.Delta)
	}
	return h
}

// Dividers returns evenly spaced bin edges of width delta covering [0, upper].
func Dividers(upper, delta float64) []float64 {
	bins := int(math.Ceil(upper/delta - 1e-9))
	if bins < 1 {
		bins = 1
	}
	return floats.Span(make([]float64, bins+1), 0, float64(bins)*delta)
}

// Bin counts values into the bins given by dividers. Values outside the
// range are counted in the first or last bin.
func Bin(values, dividers []float64) []float64 {
	lo, hi := dividers[0], math.Nextafter(dividers[len(dividers)-1], math.Inf(-1))
	x := make([]float64, len(values))
	for i, v := range values {
		x[i] = math.Min(math.Max(v, lo), hi)
	}
	slices.Sort(x)
	return stat.Histogram(nil, dividers, x, nil)
}

// Compute returns the histogram rows of every species for the current year.
func (h *Histograms) Compute(src Source) []HistogramRow {
	fitness := src.FitnessPerSpecies()
	ages := src.AgesPerSpecies()
	weights := src.WeightsPerSpecies()

	var rows []HistogramRow
	for _, name := range src.Species() {
		for _, q := range h.quantities {
			var values []float64
			switch q {
			case QuantityFitness:
				values = fitness[name]
			case QuantityAge:
				values = toFloats(ages[name])
			case QuantityWeight:
				values = weights[name]
			}

			div := h.dividers[q]
			for i, n := range Bin(values, div) {
				rows = append(rows, HistogramRow{
					Year:     src.Year(),
					Species:  name,
					Quantity: q,
					BinLow:   div[i],
					BinHigh:  div[i+1],
					Count:    int(n),
				})
			}
		}
	}
	return rows
}
