package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/biosim/config"
)

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}
	if om != nil {
		t.Fatal("expected nil manager for empty dir")
	}

	// All methods are no-ops on a nil manager.
	if err := om.WriteStats([]YearStats{{Year: 1}}); err != nil {
		t.Errorf("WriteStats: %v", err)
	}
	if err := om.WritePerf(PerfStats{}, 1); err != nil {
		t.Errorf("WritePerf: %v", err)
	}
	if err := om.WriteConfig(&config.Config{}); err != nil {
		t.Errorf("WriteConfig: %v", err)
	}
	if om.Dir() != "" {
		t.Errorf("Dir = %q, want empty", om.Dir())
	}
	if err := om.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestOutputManagerWritesCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	c := NewCollector()
	for year := 1; year <= 3; year++ {
		if err := om.WriteStats(c.Collect(newFakeSource(year))); err != nil {
			t.Fatalf("WriteStats: %v", err)
		}
	}
	events := []Event{{Type: EventExtinction, Year: 3, Species: "Carnivore", Description: "gone"}}
	if err := om.WriteEvents(events); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	if err := om.WriteEvents(nil); err != nil {
		t.Fatalf("WriteEvents(nil): %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var stats []YearStats
	readCSV(t, filepath.Join(dir, PopulationFile), &stats)
	if len(stats) != 6 {
		t.Fatalf("population.csv has %d rows, want 6", len(stats))
	}
	if stats[5].Year != 3 || stats[5].Species != "Herbivore" || stats[5].Count != 3 {
		t.Errorf("last row = %+v", stats[5])
	}

	data, err := os.ReadFile(filepath.Join(dir, PopulationFile))
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "year,species"); n != 1 {
		t.Errorf("header written %d times, want 1", n)
	}

	var gotEvents []Event
	readCSV(t, filepath.Join(dir, EventsFile), &gotEvents)
	if len(gotEvents) != 1 || gotEvents[0] != events[0] {
		t.Errorf("events.csv = %+v, want %+v", gotEvents, events)
	}
}

func TestOutputManagerWriteConfig(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}
	defer om.Close()

	cfg, err := config.Defaults()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Simulation.Seed = 4242
	if err := om.WriteConfig(cfg); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}

	loaded, err := config.Load(filepath.Join(dir, ConfigFile))
	if err != nil {
		t.Fatalf("reloading written config: %v", err)
	}
	if loaded.Simulation.Seed != 4242 {
		t.Errorf("seed = %d, want 4242", loaded.Simulation.Seed)
	}
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()

	if err := NewSQLiteStore("").Init(ctx); err == nil {
		t.Error("expected error for empty path")
	}

	path := filepath.Join(t.TempDir(), "history.db")
	s := NewSQLiteStore(path)
	if err := s.WriteYear(ctx, nil); err == nil {
		t.Error("expected error before Init")
	}
	if err := s.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	c := NewCollector()
	for year := 1; year <= 2; year++ {
		if err := s.WriteYear(ctx, c.Collect(newFakeSource(year))); err != nil {
			t.Fatalf("WriteYear: %v", err)
		}
	}
	// rewriting a year replaces it
	if err := s.WriteYear(ctx, []YearStats{{Year: 2, Species: "Herbivore", Count: 7}}); err != nil {
		t.Fatalf("WriteYear: %v", err)
	}
	if err := s.WriteEvents(ctx, []Event{
		{Type: EventCrash, Year: 2, Species: "Herbivore", Description: "crash"},
		{Type: EventCoexistence, Year: 2, Description: "stable"},
	}); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// reopen to check the data was persisted
	s = NewSQLiteStore(path)
	if err := s.Init(ctx); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	counts, err := s.Counts(ctx, "Herbivore")
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if len(counts) != 2 || counts[1] != 3 || counts[2] != 7 {
		t.Errorf("counts = %v, want map[1:3 2:7]", counts)
	}

	events, err := s.Events(ctx)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 2 || events[0].Type != EventCrash || events[1].Type != EventCoexistence {
		t.Errorf("events = %+v", events)
	}
}

func TestCellLog(t *testing.T) {
	dir := t.TempDir()
	l, err := NewCellLog(dir)
	if err != nil {
		t.Fatalf("NewCellLog: %v", err)
	}
	for year := 1; year <= 2; year++ {
		if err := l.Write(Entries(newFakeSource(year))); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := l.Write(nil); err == nil {
		t.Error("expected error writing to a closed log")
	}

	entries, err := ReadCellLog(filepath.Join(dir, CellLogFile))
	if err != nil {
		t.Fatalf("ReadCellLog: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}

	carn, herb := entries[2], entries[3]
	if carn.Year != 2 || carn.Species != "Carnivore" || len(carn.Cells) != 0 {
		t.Errorf("carnivore entry = %+v", carn)
	}
	want := [][3]int{{1, 1, 2}, {1, 2, 1}}
	if herb.Species != "Herbivore" || len(herb.Cells) != 2 || herb.Cells[0] != want[0] || herb.Cells[1] != want[1] {
		t.Errorf("herbivore cells = %v, want %v", herb.Cells, want)
	}
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cfg, err := config.Defaults()
	if err != nil {
		t.Fatal(err)
	}
	tc := cfg.Telemetry
	tc.OutputDir = dir
	tc.SQLitePath = filepath.Join(dir, "history.db")
	tc.CellLog = true
	tc.PerfWindow = 2

	rec, err := NewRecorder(ctx, tc, false)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	if err := rec.WriteConfig(cfg); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}

	rec.Start()
	for year := 1; year <= 3; year++ {
		if err := rec.Record(ctx, newFakeSource(year)); err != nil {
			t.Fatalf("Record year %d: %v", year, err)
		}
	}
	if len(rec.Latest()) != 2 || rec.Latest()[0].Year != 3 {
		t.Errorf("Latest = %+v", rec.Latest())
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var stats []YearStats
	readCSV(t, filepath.Join(dir, PopulationFile), &stats)
	if len(stats) != 6 {
		t.Errorf("population.csv has %d rows, want 6", len(stats))
	}

	var perf []PerfStatsCSV
	readCSV(t, filepath.Join(dir, PerfFile), &perf)
	if len(perf) != 1 || perf[0].Year != 2 {
		t.Errorf("perf.csv = %+v, want one row for year 2", perf)
	}

	var hist []HistogramRow
	readCSV(t, filepath.Join(dir, HistogramsFile), &hist)
	// fitness 20 + age 30 + weight 30 bins, two species, three years
	if len(hist) != 3*2*80 {
		t.Errorf("histograms.csv has %d rows, want %d", len(hist), 3*2*80)
	}

	entries, err := ReadCellLog(filepath.Join(dir, CellLogFile))
	if err != nil {
		t.Fatalf("ReadCellLog: %v", err)
	}
	if len(entries) != 6 {
		t.Errorf("cell log has %d entries, want 6", len(entries))
	}

	if _, err := os.Stat(filepath.Join(dir, ConfigFile)); err != nil {
		t.Errorf("config not written: %v", err)
	}
}

func TestRecorderCellLogNeedsOutputDir(t *testing.T) {
	_, err := NewRecorder(context.Background(), config.TelemetryConfig{CellLog: true}, false)
	if err == nil {
		t.Fatal("expected error")
	}
}

func readCSV(t *testing.T, path string, out any) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	defer f.Close()
	if err := gocsv.UnmarshalFile(f, out); err != nil {
		t.Fatalf("parsing %s: %v", path, err)
	}
}
