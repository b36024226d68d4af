package telemetry

import (
	"log/slog"
	"math"
	"time"
)

// Phase names for one simulated year.
const (
	PhaseSimulate = "simulate"
	PhaseStats    = "stats"
	PhaseOutput   = "output"
)

// PerfSample holds timing data for a single year.
type PerfSample struct {
	YearDuration time.Duration
	Phases       map[string]time.Duration
}

// PerfCollector tracks performance metrics over a rolling window.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	yearStart     time.Time
	phaseStart    time.Time
	lastPhase     string
}

// NewPerfCollector creates a new performance collector averaging over the
// last windowSize years.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 20
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartYear begins timing a new simulated year.
func (p *PerfCollector) StartYear() {
	p.yearStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase begins timing a specific phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	// End previous phase if any
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndYear finishes timing the current year and records the sample.
func (p *PerfCollector) EndYear() {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.samples[p.writeIndex] = PerfSample{
		YearDuration: now.Sub(p.yearStart),
		Phases:       p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgYearDuration time.Duration
	MinYearDuration time.Duration
	MaxYearDuration time.Duration

	// Phase breakdown (average durations)
	PhaseAvg map[string]time.Duration

	// Phase percentages of total year time
	PhasePct map[string]float64

	YearsPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var total, minYear, maxYear time.Duration
	phaseSum := make(map[string]time.Duration)

	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.YearDuration

		if i == 0 || s.YearDuration < minYear {
			minYear = s.YearDuration
		}
		if s.YearDuration > maxYear {
			maxYear = s.YearDuration
		}
		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	avg := total / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avg > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avg) * 100
		}
	}

	var perSec float64
	if avg > 0 {
		perSec = float64(time.Second) / float64(avg)
	}

	return PerfStats{
		AvgYearDuration: avg,
		MinYearDuration: minYear,
		MaxYearDuration: maxYear,
		PhaseAvg:        phaseAvg,
		PhasePct:        phasePct,
		YearsPerSecond:  perSec,
	}
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_year_us", s.AvgYearDuration.Microseconds(),
		"min_year_us", s.MinYearDuration.Microseconds(),
		"max_year_us", s.MaxYearDuration.Microseconds(),
		"years_per_sec", s.YearsPerSecond,
	}
	for _, phase := range []string{PhaseSimulate, PhaseStats, PhaseOutput} {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", math.Round(pct*10)/10)
		}
	}
	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_year_us", s.AvgYearDuration.Microseconds()),
		slog.Int64("min_year_us", s.MinYearDuration.Microseconds()),
		slog.Int64("max_year_us", s.MaxYearDuration.Microseconds()),
		slog.Float64("years_per_sec", s.YearsPerSecond),
	}
	for phase, pct := range s.PhasePct {
		attrs = append(attrs, slog.Float64(phase+"_pct", pct))
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Year        int     `csv:"year"`
	AvgYearUS   int64   `csv:"avg_year_us"`
	MinYearUS   int64   `csv:"min_year_us"`
	MaxYearUS   int64   `csv:"max_year_us"`
	YearsPerSec float64 `csv:"years_per_sec"`
	SimulatePct float64 `csv:"simulate_pct"`
	StatsPct    float64 `csv:"stats_pct"`
	OutputPct   float64 `csv:"output_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(year int) PerfStatsCSV {
	return PerfStatsCSV{
		Year:        year,
		AvgYearUS:   s.AvgYearDuration.Microseconds(),
		MinYearUS:   s.MinYearDuration.Microseconds(),
		MaxYearUS:   s.MaxYearDuration.Microseconds(),
		YearsPerSec: s.YearsPerSecond,
		SimulatePct: s.PhasePct[PhaseSimulate],
		StatsPct:    s.PhasePct[PhaseStats],
		OutputPct:   s.PhasePct[PhaseOutput],
	}
}
