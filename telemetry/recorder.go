package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/pthm-cable/biosim/config"
)

// Recorder runs every enabled telemetry component once per simulated year.
// Sinks that are not configured are skipped.
type Recorder struct {
	collector  *Collector
	histograms *Histograms
	events     *EventDetector
	perf       *PerfCollector

	out   *OutputManager
	db    *SQLiteStore
	cells *CellLog

	perfWindow int
	logStats   bool

	latest []YearStats
	seen   []Event
}

// NewRecorder opens the sinks named in cfg. With logStats set, every year's
// stats and the perf window summaries are logged.
func NewRecorder(ctx context.Context, cfg config.TelemetryConfig, logStats bool) (*Recorder, error) {
	if cfg.PerfWindow < 1 {
		cfg.PerfWindow = 20
	}
	r := &Recorder{
		collector:  NewCollector(),
		histograms: NewHistograms(cfg.Histograms),
		events:     NewEventDetector(cfg.Events),
		perf:       NewPerfCollector(cfg.PerfWindow),
		perfWindow: cfg.PerfWindow,
		logStats:   logStats,
	}

	out, err := NewOutputManager(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	r.out = out

	if cfg.SQLitePath != "" {
		r.db = NewSQLiteStore(cfg.SQLitePath)
		if err := r.db.Init(ctx); err != nil {
			r.Close()
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
	}

	if cfg.CellLog {
		if cfg.OutputDir == "" {
			r.Close()
			return nil, errors.New("telemetry.cell_log needs telemetry.output_dir")
		}
		cells, err := NewCellLog(cfg.OutputDir)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.cells = cells
	}

	return r, nil
}

// Start begins timing the next year. Call it right before the simulation
// starts so setup time is not counted.
func (r *Recorder) Start() {
	r.perf.StartYear()
	r.perf.StartPhase(PhaseSimulate)
}

// Record samples src after a simulated year and writes to every sink.
func (r *Recorder) Record(ctx context.Context, src Source) error {
	r.perf.StartPhase(PhaseStats)
	stats := r.collector.Collect(src)
	events := r.events.Check(stats)
	hist := r.histograms.Compute(src)
	r.latest = stats
	r.seen = append(r.seen, events...)

	for _, e := range events {
		e.LogEvent()
	}
	if r.logStats {
		for _, s := range stats {
			s.LogStats()
		}
	}

	r.perf.StartPhase(PhaseOutput)
	if err := r.write(ctx, src, stats, events, hist); err != nil {
		return err
	}
	r.perf.EndYear()

	if year := src.Year(); year%r.perfWindow == 0 {
		ps := r.perf.Stats()
		if r.logStats {
			ps.LogStats()
		}
		if err := r.out.WritePerf(ps, year); err != nil {
			return err
		}
	}

	r.Start()
	return nil
}

func (r *Recorder) write(ctx context.Context, src Source, stats []YearStats, events []Event, hist []HistogramRow) error {
	if err := r.out.WriteStats(stats); err != nil {
		return err
	}
	if err := r.out.WriteEvents(events); err != nil {
		return err
	}
	if err := r.out.WriteHistograms(hist); err != nil {
		return err
	}
	if r.db != nil {
		if err := r.db.WriteYear(ctx, stats); err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
		if err := r.db.WriteEvents(ctx, events); err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
	}
	if r.cells != nil {
		if err := r.cells.Write(Entries(src)); err != nil {
			return fmt.Errorf("cell log: %w", err)
		}
	}
	return nil
}

// WriteConfig saves cfg next to the CSV output, if output is enabled.
func (r *Recorder) WriteConfig(cfg *config.Config) error {
	return r.out.WriteConfig(cfg)
}

// Latest returns the stats of the most recently recorded year.
func (r *Recorder) Latest() []YearStats { return r.latest }

// Events returns every event detected so far.
func (r *Recorder) Events() []Event { return r.seen }

// Close closes every sink and reports the first error.
func (r *Recorder) Close() error {
	var firstErr error
	if err := r.out.Close(); err != nil {
		firstErr = err
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if r.cells != nil {
		if err := r.cells.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
