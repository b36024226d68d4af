// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Simulation     SimulationConfig          `yaml:"simulation"`
	Island         IslandConfig              `yaml:"island"`
	Population     []PlacementConfig         `yaml:"population"`
	PopulationFile string                    `yaml:"population_file"`
	Species        map[string]map[string]any `yaml:"species"`
	Landscape      map[string]map[string]any `yaml:"landscape"`
	Telemetry      TelemetryConfig           `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimulationConfig holds run-level settings.
type SimulationConfig struct {
	Seed     int64 `yaml:"seed"`
	Years    int   `yaml:"years"`
	LogEvery int   `yaml:"log_every"` // Years between "year" log records (0 = never)
}

// IslandConfig describes the island geography.
// Generate takes precedence over Map when rows and cols are both set.
type IslandConfig struct {
	Map      string         `yaml:"map"`
	Generate GenerateConfig `yaml:"generate"`
}

// GenerateConfig holds procedural map settings.
type GenerateConfig struct {
	Rows int   `yaml:"rows"`
	Cols int   `yaml:"cols"`
	Seed int64 `yaml:"seed"` // 0 = use simulation seed
}

// PlacementConfig places a list of individuals at one (row, col) location.
type PlacementConfig struct {
	Loc [2]int             `yaml:"loc" json:"loc"`
	Pop []IndividualConfig `yaml:"pop" json:"pop"`
}

// IndividualConfig describes one individual, or Count identical ones.
type IndividualConfig struct {
	Species string  `yaml:"species" json:"species"`
	Age     int     `yaml:"age" json:"age"`
	Weight  float64 `yaml:"weight" json:"weight"`
	Count   int     `yaml:"count,omitempty" json:"count,omitempty"` // 0 means 1
}

// TelemetryConfig holds output and statistics parameters.
type TelemetryConfig struct {
	OutputDir  string                   `yaml:"output_dir"`
	SQLitePath string                   `yaml:"sqlite_path"`
	CellLog    bool                     `yaml:"cell_log"`
	PerfWindow int                      `yaml:"perf_window"`
	Histograms map[string]HistogramSpec `yaml:"histograms"`
	Events     EventsConfig             `yaml:"events"`
}

// HistogramSpec gives the upper bound and bin width of a histogram.
type HistogramSpec struct {
	Max   float64 `yaml:"max"`
	Delta float64 `yaml:"delta"`
}

// EventsConfig holds population event detection thresholds.
type EventsConfig struct {
	CrashDropPercent      float64 `yaml:"crash_drop_percent"`
	CrashMinDrop          int     `yaml:"crash_min_drop"`
	RecoveryMinPopulation int     `yaml:"recovery_min_population"`
	RecoveryMultiplier    int     `yaml:"recovery_multiplier"`
	HistorySize           int     `yaml:"history_size"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Geography     string // Map with surrounding whitespace trimmed
	GenerateMap   bool   // Island.Generate is fully specified
	GenerateSeed  int64  // Effective seed for map generation
	TotalPopulace int    // Individuals across all inline placements
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Defaults returns the embedded default configuration.
func Defaults() (*Config, error) {
	return Load("")
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := cfg.overlay(data); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// overlay unmarshals data on top of cfg. Plain fields are overwritten only
// when present; parameter tables merge per key so a file can change a single
// species parameter.
func (c *Config) overlay(data []byte) error {
	species, landscape := c.Species, c.Landscape
	c.Species, c.Landscape = nil, nil

	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}

	c.Species = mergeTables(species, c.Species)
	c.Landscape = mergeTables(landscape, c.Landscape)
	return nil
}

func mergeTables(base, over map[string]map[string]any) map[string]map[string]any {
	merged := make(map[string]map[string]any, len(base)+len(over))
	for name, table := range base {
		merged[name] = copyTable(table)
	}
	for name, table := range over {
		dst, ok := merged[name]
		if !ok {
			dst = make(map[string]any, len(table))
			merged[name] = dst
		}
		for k, v := range table {
			dst[k] = v
		}
	}
	return merged
}

func copyTable(t map[string]any) map[string]any {
	out := make(map[string]any, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Validate checks settings the simulation core does not validate itself.
// Parameter tables are validated by the parameter registry.
func (c *Config) Validate() error {
	err := &ValidationError{}

	if c.Simulation.Years < 0 {
		err.Add("simulation.years can not be negative")
	}
	if c.Simulation.LogEvery < 0 {
		err.Add("simulation.log_every can not be negative")
	}

	gen := c.Island.Generate
	if gen.Rows != 0 || gen.Cols != 0 {
		if gen.Rows < 3 || gen.Cols < 3 {
			err.Add("island.generate needs at least 3 rows and 3 cols")
		}
	} else if strings.TrimSpace(c.Island.Map) == "" {
		err.Add("island.map is required when island.generate is not set")
	}

	for i, p := range c.Population {
		for j, ind := range p.Pop {
			if ind.Species == "" {
				err.Add(fmt.Sprintf("population[%d].pop[%d]: species is required", i, j))
			}
			if ind.Count < 0 {
				err.Add(fmt.Sprintf("population[%d].pop[%d]: count can not be negative", i, j))
			}
		}
	}

	for name, h := range c.Telemetry.Histograms {
		if h.Max <= 0 || h.Delta <= 0 {
			err.Add(fmt.Sprintf("telemetry.histograms.%s: max and delta must be positive", name))
		}
	}

	if err.HasIssues() {
		return err
	}
	return nil
}

// Refresh validates c again and recomputes the derived values. Call it after
// changing fields of a loaded config, for example from command-line flags.
func (c *Config) Refresh() error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.computeDerived()
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.Geography = strings.TrimSpace(c.Island.Map)

	gen := c.Island.Generate
	c.Derived.GenerateMap = gen.Rows > 0 && gen.Cols > 0
	c.Derived.GenerateSeed = gen.Seed
	if c.Derived.GenerateSeed == 0 {
		c.Derived.GenerateSeed = c.Simulation.Seed
	}

	c.Derived.TotalPopulace = 0
	for _, p := range c.Population {
		for _, ind := range p.Pop {
			c.Derived.TotalPopulace += ind.N()
		}
	}
}

// N returns how many individuals the entry stands for.
func (ind IndividualConfig) N() int {
	if ind.Count == 0 {
		return 1
	}
	return ind.Count
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// ValidationError collects multiple validation issues.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "invalid config: unknown validation error"
	}
	if len(e.Issues) == 1 {
		return "invalid config: " + e.Issues[0]
	}
	return "invalid config: " + strings.Join(e.Issues, "; ")
}

// Add records one issue.
func (e *ValidationError) Add(issue string) {
	e.Issues = append(e.Issues, issue)
}

// HasIssues reports whether any issue was recorded.
func (e *ValidationError) HasIssues() bool {
	return len(e.Issues) > 0
}
