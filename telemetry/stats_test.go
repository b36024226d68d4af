package telemetry

import (
	"math"
	"slices"
	"testing"

	"github.com/pthm-cable/biosim/island"
)

// fakeSource is a fixed Source for tests.
type fakeSource struct {
	year    int
	species []string
	perCell map[string]map[island.Location]int
	fitness map[string][]float64
	ages    map[string][]int
	weights map[string][]float64
}

func (f *fakeSource) Year() int         { return f.year }
func (f *fakeSource) Species() []string { return f.species }

func (f *fakeSource) NumAnimalsPerSpecies() map[string]int {
	out := make(map[string]int, len(f.species))
	for _, name := range f.species {
		for _, n := range f.perCell[name] {
			out[name] += n
		}
	}
	return out
}

func (f *fakeSource) NumAnimalsPerCellPerSpecies() map[string]map[island.Location]int {
	return f.perCell
}
func (f *fakeSource) FitnessPerSpecies() map[string][]float64 { return f.fitness }
func (f *fakeSource) AgesPerSpecies() map[string][]int        { return f.ages }
func (f *fakeSource) WeightsPerSpecies() map[string][]float64 { return f.weights }

// newFakeSource returns a source with three herbivores in two cells and no
// carnivores.
func newFakeSource(year int) *fakeSource {
	return &fakeSource{
		year:    year,
		species: []string{"Carnivore", "Herbivore"},
		perCell: map[string]map[island.Location]int{
			"Carnivore": {{Row: 1, Col: 1}: 0, {Row: 1, Col: 2}: 0},
			"Herbivore": {{Row: 1, Col: 1}: 2, {Row: 1, Col: 2}: 1},
		},
		fitness: map[string][]float64{"Carnivore": nil, "Herbivore": {0.2, 0.4, 0.9}},
		ages:    map[string][]int{"Carnivore": nil, "Herbivore": {1, 3, 8}},
		weights: map[string][]float64{"Carnivore": nil, "Herbivore": {10, 20, 60}},
	}
}

// countsSource returns a source whose species live in a single cell with the
// given counts.
func countsSource(year int, counts map[string]int) *fakeSource {
	out := newFakeSource(year)
	for _, name := range out.species {
		out.perCell[name] = map[island.Location]int{{Row: 1, Col: 1}: counts[name]}
	}
	return out
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.9},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	values := []float64{1.0, 0.1, 0.5, 0.3, 0.9, 0.2, 0.7, 0.4, 0.8, 0.6}
	orig := slices.Clone(values)

	s := Summarize(values)

	if math.Abs(s.Mean-0.55) > 0.001 {
		t.Errorf("mean = %v, want 0.55", s.Mean)
	}
	// population std of 0.1..1.0
	if math.Abs(s.Std-math.Sqrt(0.0825)) > 0.001 {
		t.Errorf("std = %v, want %v", s.Std, math.Sqrt(0.0825))
	}
	if math.Abs(s.P10-0.19) > 0.001 {
		t.Errorf("p10 = %v, want 0.19", s.P10)
	}
	if math.Abs(s.P50-0.55) > 0.001 {
		t.Errorf("p50 = %v, want 0.55", s.P50)
	}
	if math.Abs(s.P90-0.91) > 0.001 {
		t.Errorf("p90 = %v, want 0.91", s.P90)
	}
	if !slices.Equal(values, orig) {
		t.Error("Summarize reordered its input")
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if s := Summarize(nil); s != (Summary{}) {
		t.Errorf("Summarize(nil) = %+v, want zero", s)
	}
}

func TestCollector(t *testing.T) {
	c := NewCollector()

	first := c.Collect(newFakeSource(1))
	if len(first) != 2 {
		t.Fatalf("got %d stats, want 2", len(first))
	}
	if first[0].Species != "Carnivore" || first[1].Species != "Herbivore" {
		t.Fatalf("species order = %s, %s", first[0].Species, first[1].Species)
	}

	carn, herb := first[0], first[1]
	if carn.Count != 0 || carn.OccupiedCells != 0 || carn.FitnessMean != 0 || carn.AgeMax != 0 {
		t.Errorf("empty species stats = %+v, want zeros", carn)
	}
	if herb.Year != 1 || herb.Count != 3 || herb.Change != 3 {
		t.Errorf("herbivore year/count/change = %d/%d/%d, want 1/3/3", herb.Year, herb.Count, herb.Change)
	}
	if herb.OccupiedCells != 2 {
		t.Errorf("occupied cells = %d, want 2", herb.OccupiedCells)
	}
	if herb.AgeMax != 8 || math.Abs(herb.AgeMean-4) > 1e-9 {
		t.Errorf("age max/mean = %d/%v, want 8/4", herb.AgeMax, herb.AgeMean)
	}
	if math.Abs(herb.WeightMean-30) > 1e-9 || herb.WeightP50 != 20 {
		t.Errorf("weight mean/p50 = %v/%v, want 30/20", herb.WeightMean, herb.WeightP50)
	}
	if math.Abs(herb.FitnessMean-0.5) > 1e-9 || herb.FitnessP50 != 0.4 {
		t.Errorf("fitness mean/p50 = %v/%v, want 0.5/0.4", herb.FitnessMean, herb.FitnessP50)
	}

	second := c.Collect(countsSource(2, map[string]int{"Herbivore": 1}))
	if second[1].Change != -2 {
		t.Errorf("second year change = %d, want -2", second[1].Change)
	}
}
