package main

import (
	"errors"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/biosim/config"
	"github.com/pthm-cable/biosim/params"
	"github.com/pthm-cable/biosim/sim"
	"github.com/pthm-cable/biosim/telemetry"
)

// Species whose coexistence is optimized.
const (
	preySpecies     = params.Herbivore
	predatorSpecies = params.Carnivore
)

// Minimum viable population: if either species stays below this for
// extinctionGraceYears consecutive years, it counts as functionally extinct.
const (
	minViablePop         = 3
	extinctionGraceYears = 5
)

var errExtinct = errors.New("functional extinction")

// FitnessEvaluator runs simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	years      int
	seeds      []int64
	baseConfig *config.Config

	mu          sync.Mutex
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(pv *ParamVector, years int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     pv,
		years:      years,
		seeds:      seeds,
		baseConfig: baseCfg,
	}
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalYears int                    // years before functional extinction (or years if survived)
	yearStats     [][]telemetry.YearStats // one entry per simulated year
	err           error
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness float64
	quality float64
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is negative survival years scaled by up to 20% for quality.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			result := fe.runSimulation(x, s)
			quality := computeQuality(result.yearStats)
			results[idx] = seedResult{
				fitness: computeFitness(result.survivalYears, quality),
				quality: quality,
			}
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalQuality float64
	for _, r := range results {
		totalFitness += r.fitness
		totalQuality += r.quality
	}

	n := float64(len(fe.seeds))
	fe.mu.Lock()
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return totalFitness / n
}

// runSimulation runs one simulation until functional extinction or the year
// limit, whichever comes first.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) *runResult {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)
	cfg.Simulation.Seed = seed
	cfg.Simulation.LogEvery = 0

	result := &runResult{}
	collector := telemetry.NewCollector()
	var preyBelow, predBelow int

	s, err := sim.FromConfig(cfg, sim.WithYearHook(func(s *sim.Simulation) error {
		stats := collector.Collect(s)
		result.yearStats = append(result.yearStats, stats)

		counts := s.NumAnimalsPerSpecies()
		prey, pred := counts[preySpecies], counts[predatorSpecies]

		// Hard extinction: either species completely gone
		if prey == 0 || pred == 0 {
			return errExtinct
		}

		preyBelow = belowCount(preyBelow, prey)
		predBelow = belowCount(predBelow, pred)
		if preyBelow >= extinctionGraceYears || predBelow >= extinctionGraceYears {
			return errExtinct
		}
		return nil
	}))
	if err != nil {
		result.err = err
		return result
	}

	err = s.Simulate(fe.years)
	if err != nil && !errors.Is(err, errExtinct) {
		result.err = err
		return result
	}
	result.survivalYears = s.Year()
	return result
}

func belowCount(years, count int) int {
	if count < minViablePop {
		return years + 1
	}
	return 0
}

// copyConfig returns a copy of the base config. Parameter tables are cloned
// by ApplyToConfig.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(survivalYears × (1.0 + 0.2 × quality))
func computeFitness(survivalYears int, quality float64) float64 {
	return -(float64(survivalYears) * (1.0 + 0.2*quality))
}

// Quality component weights.
const (
	qualityWeightRatio     = 0.40
	qualityWeightStability = 0.35
	qualityWeightFitness   = 0.25

	qualityWarmupYears = 5 // skip first N years
	qualityMinPop      = 3 // exclude years where either species < this
	targetRatio        = 5.0
)

// computeQuality computes ecosystem quality ∈ [0, 1] from yearly stats.
func computeQuality(years [][]telemetry.YearStats) float64 {
	if len(years) <= qualityWarmupYears {
		return 0
	}

	var ratioSum, fitnessSum float64
	var preyCounts, predCounts []float64

	for _, stats := range years[qualityWarmupYears:] {
		prey, pred, ok := pair(stats)
		if !ok || prey.Count < qualityMinPop || pred.Count < qualityMinPop {
			continue
		}

		preyCounts = append(preyCounts, float64(prey.Count))
		predCounts = append(predCounts, float64(pred.Count))

		// Population ratio score
		logErr := math.Log(float64(prey.Count) / float64(pred.Count) / targetRatio)
		ratioSum += math.Exp(-logErr * logErr)

		// Both species in good condition
		fitnessSum += (prey.FitnessMean + pred.FitnessMean) / 2
	}

	if len(preyCounts) == 0 {
		return 0
	}
	n := float64(len(preyCounts))

	stabilityScore := 0.0
	if len(preyCounts) >= 2 {
		cvPrey := cv(preyCounts)
		cvPred := cv(predCounts)
		stabilityScore = math.Exp(-(cvPrey*cvPrey + cvPred*cvPred))
	}

	quality := qualityWeightRatio*ratioSum/n +
		qualityWeightStability*stabilityScore +
		qualityWeightFitness*fitnessSum/n

	return clamp01(quality)
}

// pair picks the prey and predator stats of one year.
func pair(stats []telemetry.YearStats) (prey, pred telemetry.YearStats, ok bool) {
	var havePrey, havePred bool
	for _, s := range stats {
		switch s.Species {
		case preySpecies:
			prey, havePrey = s, true
		case predatorSpecies:
			pred, havePred = s, true
		}
	}
	return prey, pred, havePrey && havePred
}

// cv computes the coefficient of variation (std/mean) for a slice of values.
func cv(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	if mean == 0 {
		return 0
	}
	return std / mean
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	return min(max(x, 0), 1)
}
