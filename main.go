package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/biosim/config"
	"github.com/pthm-cable/biosim/sim"
	"github.com/pthm-cable/biosim/telemetry"
)

type flags struct {
	configPath string
	seed       int64
	years      int
	outputDir  string
	sqlitePath string
	cellLog    bool
	logStats   bool
	mapRows    int
	mapCols    int
	population string
}

func main() {
	var f flags

	// CLI flags
	flag.StringVar(&f.configPath, "config", "", "Path to config.yaml (empty = use defaults)")
	flag.Int64Var(&f.seed, "seed", 0, "RNG seed (0 = config seed, or time-based if that is 0 too)")
	flag.IntVar(&f.years, "years", -1, "Years to simulate (-1 = use config)")
	flag.StringVar(&f.outputDir, "output-dir", "", "Output directory for CSV logs and config snapshot")
	flag.StringVar(&f.sqlitePath, "sqlite", "", "SQLite database for the yearly history")
	flag.BoolVar(&f.cellLog, "cell-log", false, "Write per-cell counts to the output directory")
	flag.BoolVar(&f.logStats, "log-stats", false, "Output yearly stats via slog")
	flag.IntVar(&f.mapRows, "map-rows", 0, "Generate an island with this many rows (needs -map-cols)")
	flag.IntVar(&f.mapCols, "map-cols", 0, "Generate an island with this many columns (needs -map-rows)")
	flag.StringVar(&f.population, "population", "", "JSON file with additional initial population")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(f, logger); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func run(f flags, logger *slog.Logger) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, f); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec, err := telemetry.NewRecorder(ctx, cfg.Telemetry, f.logStats)
	if err != nil {
		return err
	}
	defer func() {
		if err := rec.Close(); err != nil {
			slog.Error("closing telemetry", "error", err)
		}
	}()
	if err := rec.WriteConfig(cfg); err != nil {
		return err
	}

	s, err := sim.FromConfig(cfg,
		sim.WithLogger(logger),
		sim.WithYearHook(func(s *sim.Simulation) error { return rec.Record(ctx, s) }),
	)
	if err != nil {
		return err
	}

	slog.Info("starting simulation",
		"seed", s.Seed(),
		"years", cfg.Simulation.Years,
		"animals", s.NumAnimals(),
		"output_dir", cfg.Telemetry.OutputDir,
	)

	start := time.Now()
	rec.Start()
	err = s.SimulateContext(ctx, cfg.Simulation.Years)
	if errors.Is(err, context.Canceled) {
		slog.Info("simulation interrupted", "year", s.Year())
		err = nil
	}
	if err != nil {
		return err
	}

	slog.Info("simulation finished",
		"year", s.Year(),
		"animals", s.NumAnimals(),
		"events", len(rec.Events()),
		"elapsed", time.Since(start).String(),
	)
	return nil
}

// applyFlags overrides cfg with the flags that were set.
func applyFlags(cfg *config.Config, f flags) error {
	if f.seed != 0 {
		cfg.Simulation.Seed = f.seed
	}
	if cfg.Simulation.Seed == 0 {
		cfg.Simulation.Seed = time.Now().UnixNano()
	}
	if f.years >= 0 {
		cfg.Simulation.Years = f.years
	}
	if f.outputDir != "" {
		cfg.Telemetry.OutputDir = f.outputDir
	}
	if f.sqlitePath != "" {
		cfg.Telemetry.SQLitePath = f.sqlitePath
	}
	if f.cellLog {
		cfg.Telemetry.CellLog = true
	}
	if (f.mapRows == 0) != (f.mapCols == 0) {
		return fmt.Errorf("-map-rows and -map-cols must be given together")
	}
	if f.mapRows > 0 {
		cfg.Island.Generate.Rows = f.mapRows
		cfg.Island.Generate.Cols = f.mapCols
		// inline placements refer to the configured map
		cfg.Population = nil
	}
	if f.population != "" {
		cfg.PopulationFile = f.population
	}
	return cfg.Refresh()
}
