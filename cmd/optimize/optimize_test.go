package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/biosim/config"
	"github.com/pthm-cable/biosim/params"
	"github.com/pthm-cable/biosim/telemetry"
)

func TestNormalizeRoundTrip(t *testing.T) {
	pv := NewParamVector()
	def := pv.DefaultVector()

	back := pv.Denormalize(pv.Normalize(def))
	for i, spec := range pv.Specs {
		if math.Abs(back[i]-def[i]) > 1e-9 {
			t.Errorf("%s: round trip = %v, want %v", spec.Name, back[i], def[i])
		}
	}
}

func TestDefaultsMatchConfig(t *testing.T) {
	cfg, err := config.Defaults()
	if err != nil {
		t.Fatal(err)
	}
	pv := NewParamVector()
	got := pv.ExtractFromConfig(cfg)
	for i, spec := range pv.Specs {
		if got[i] != spec.Default {
			t.Errorf("%s: config value %v, spec default %v", spec.Name, got[i], spec.Default)
		}
		if spec.Default < spec.Min || spec.Default > spec.Max {
			t.Errorf("%s: default %v outside [%v, %v]", spec.Name, spec.Default, spec.Min, spec.Max)
		}
	}
}

func TestApplyToConfig(t *testing.T) {
	cfg, err := config.Defaults()
	if err != nil {
		t.Fatal(err)
	}
	shared := cfg.Species["Carnivore"]

	pv := NewParamVector()
	values := pv.DefaultVector()
	values[0] = 1000 // carn_F above max
	pv.ApplyToConfig(cfg, values)

	if got := cfg.Species["Carnivore"]["F"]; got != pv.Specs[0].Max {
		t.Errorf("carnivore F = %v, want clamped %v", got, pv.Specs[0].Max)
	}
	if shared["F"] != 50.0 {
		t.Errorf("original table modified: F = %v", shared["F"])
	}

	got := pv.ExtractFromConfig(cfg)
	want := pv.Clamp(values)
	for i, spec := range pv.Specs {
		if got[i] != want[i] {
			t.Errorf("%s: extracted %v, want %v", spec.Name, got[i], want[i])
		}
	}
	if err := cfg.Refresh(); err != nil {
		t.Errorf("config invalid after apply: %v", err)
	}
}

func yearStats(prey, pred int, fitness float64) []telemetry.YearStats {
	return []telemetry.YearStats{
		{Species: predatorSpecies, Count: pred, FitnessMean: fitness},
		{Species: preySpecies, Count: prey, FitnessMean: fitness},
	}
}

func TestComputeQuality(t *testing.T) {
	steady := make([][]telemetry.YearStats, 20)
	for i := range steady {
		steady[i] = yearStats(100, 20, 0.6)
	}

	// ratio 5 is ideal, no variation, mean fitness 0.6
	want := qualityWeightRatio + qualityWeightStability + qualityWeightFitness*0.6
	if got := computeQuality(steady); math.Abs(got-want) > 1e-9 {
		t.Errorf("steady quality = %v, want %v", got, want)
	}

	tests := []struct {
		name  string
		years [][]telemetry.YearStats
	}{
		{"warmup only", steady[:qualityWarmupYears]},
		{"predators too few", func() [][]telemetry.YearStats {
			out := make([][]telemetry.YearStats, 10)
			for i := range out {
				out[i] = yearStats(100, 2, 0.5)
			}
			return out
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeQuality(tt.years); got != 0 {
				t.Errorf("quality = %v, want 0", got)
			}
		})
	}
}

func TestPairMatchesConfigSpecies(t *testing.T) {
	cfg, err := config.Defaults()
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{preySpecies, predatorSpecies} {
		if _, ok := cfg.Species[name]; !ok {
			t.Errorf("species %q missing from the default config", name)
		}
	}

	stats := []telemetry.YearStats{
		{Species: params.Human, Count: 7},
		{Species: params.Carnivore, Count: 4},
		{Species: params.Herbivore, Count: 9},
	}
	prey, pred, ok := pair(stats)
	if !ok || prey.Count != 9 || pred.Count != 4 {
		t.Errorf("pair = %+v, %+v, %v; want herbivores 9, carnivores 4", prey, pred, ok)
	}
}

func TestComputeFitness(t *testing.T) {
	if got := computeFitness(100, 0); got != -100 {
		t.Errorf("computeFitness(100, 0) = %v, want -100", got)
	}
	if got := computeFitness(100, 1); math.Abs(got+120) > 1e-9 {
		t.Errorf("computeFitness(100, 1) = %v, want -120", got)
	}
}

func TestCV(t *testing.T) {
	if got := cv([]float64{4, 4, 4}); got != 0 {
		t.Errorf("cv of constant = %v, want 0", got)
	}
	// mean 2, population std 1
	if got := cv([]float64{1, 3}); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("cv = %v, want 0.5", got)
	}
	if got := cv(nil); got != 0 {
		t.Errorf("cv(nil) = %v, want 0", got)
	}
}

func TestEvaluateShortRun(t *testing.T) {
	cfg, err := config.Defaults()
	if err != nil {
		t.Fatal(err)
	}
	pv := NewParamVector()
	fe := NewFitnessEvaluator(pv, 3, []int64{1, 2}, cfg)

	fitness := fe.Evaluate(pv.DefaultVector())

	// both species survive three years from the default population
	if fitness > -3 || math.IsNaN(fitness) {
		t.Errorf("fitness = %v, want <= -3", fitness)
	}
	if q := fe.LastQuality(); q != 0 {
		t.Errorf("quality = %v, want 0 inside the warmup", q)
	}

	// the base config is left untouched
	if cfg.Species["Carnivore"]["F"] != 50.0 {
		t.Errorf("base config modified: %v", cfg.Species["Carnivore"]["F"])
	}
}
