package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/biosim/config"
)

// Output file names inside the output directory.
const (
	PopulationFile = "population.csv"
	EventsFile     = "events.csv"
	PerfFile       = "perf.csv"
	HistogramsFile = "histograms.csv"
	ConfigFile     = "config.yaml"
)

// csvFile appends records to one CSV file, writing the header once.
type csvFile struct {
	name          string
	f             *os.File
	headerWritten bool
}

func (c *csvFile) write(records any) error {
	if !c.headerWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, c.f); err != nil {
			return fmt.Errorf("writing %s: %w", c.name, err)
		}
		c.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, c.f); err != nil {
		return fmt.Errorf("writing %s: %w", c.name, err)
	}
	return nil
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir        string
	population *csvFile
	events     *csvFile
	perf       *csvFile
	histograms *csvFile
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	for _, target := range []struct {
		name string
		dst  **csvFile
	}{
		{PopulationFile, &om.population},
		{EventsFile, &om.events},
		{PerfFile, &om.perf},
		{HistogramsFile, &om.histograms},
	} {
		f, err := os.Create(filepath.Join(dir, target.name))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating %s: %w", target.name, err)
		}
		*target.dst = &csvFile{name: target.name, f: f}
	}

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, ConfigFile))
}

// WriteStats appends one year of species stats to population.csv.
func (om *OutputManager) WriteStats(stats []YearStats) error {
	if om == nil || len(stats) == 0 {
		return nil
	}
	return om.population.write(stats)
}

// WriteEvents appends events to events.csv.
func (om *OutputManager) WriteEvents(events []Event) error {
	if om == nil || len(events) == 0 {
		return nil
	}
	return om.events.write(events)
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, year int) error {
	if om == nil {
		return nil
	}
	return om.perf.write([]PerfStatsCSV{stats.ToCSV(year)})
}

// WriteHistograms appends histogram rows to histograms.csv.
func (om *OutputManager) WriteHistograms(rows []HistogramRow) error {
	if om == nil || len(rows) == 0 {
		return nil
	}
	return om.histograms.write(rows)
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, c := range []*csvFile{om.population, om.events, om.perf, om.histograms} {
		if c == nil {
			continue
		}
		if err := c.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
