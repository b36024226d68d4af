package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/biosim/config"
)

// EventType identifies a population event.
type EventType string

const (
	EventExtinction  EventType = "extinction"
	EventCrash       EventType = "population_crash"
	EventRecovery    EventType = "population_recovery"
	EventCoexistence EventType = "stable_coexistence"
)

// Event is a notable change in one species' population, or across all
// species for EventCoexistence.
type Event struct {
	Type        EventType `csv:"type"`
	Year        int       `csv:"year"`
	Species     string    `csv:"species"`
	Description string    `csv:"description"`
}

// LogEvent logs the event using slog.
func (e Event) LogEvent() {
	slog.Info("event",
		"type", string(e.Type),
		"year", e.Year,
		"species", e.Species,
		"description", e.Description,
	)
}

// speciesTrack holds the rolling history of one species' counts.
type speciesTrack struct {
	history []int
	idx     int
	full    bool

	last    int
	seen    bool // count has been positive at least once
	extinct bool
	peak    int // peak count since the last crash
	low     int // minimum positive count since the last recovery
}

func (t *speciesTrack) add(count int) {
	t.history[t.idx] = count
	t.idx = (t.idx + 1) % len(t.history)
	if t.idx == 0 {
		t.full = true
	}
}

// recent returns up to n of the latest counts, oldest first.
func (t *speciesTrack) recent(n int) []int {
	size := t.idx
	if t.full {
		size = len(t.history)
	}
	if n > size {
		n = size
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		j := (t.idx - n + i + len(t.history)) % len(t.history)
		out[i] = t.history[j]
	}
	return out
}

// EventDetector detects extinctions, crashes, recoveries and stable
// coexistence in the yearly stats.
type EventDetector struct {
	cfg    config.EventsConfig
	tracks map[string]*speciesTrack

	stableYears int
}

// NewEventDetector creates a detector with the given thresholds.
func NewEventDetector(cfg config.EventsConfig) *EventDetector {
	if cfg.HistorySize < 5 {
		cfg.HistorySize = 5 // minimum for stability detection
	}
	return &EventDetector{
		cfg:    cfg,
		tracks: make(map[string]*speciesTrack),
	}
}

func (d *EventDetector) track(species string) *speciesTrack {
	t, ok := d.tracks[species]
	if !ok {
		t = &speciesTrack{history: make([]int, d.cfg.HistorySize)}
		d.tracks[species] = t
	}
	return t
}

// Check analyzes one year of stats and returns any triggered events.
func (d *EventDetector) Check(stats []YearStats) []Event {
	var events []Event

	for _, s := range stats {
		t := d.track(s.Species)

		if e := d.checkExtinction(t, s); e != nil {
			events = append(events, *e)
		}
		if e := d.checkCrash(t, s); e != nil {
			events = append(events, *e)
		}
		if e := d.checkRecovery(t, s); e != nil {
			events = append(events, *e)
		}

		t.add(s.Count)
		t.last = s.Count
		if s.Count > 0 {
			t.seen = true
			t.extinct = false
		}
		if s.Count > t.peak {
			t.peak = s.Count
		}
		if s.Count > 0 && (t.low == 0 || s.Count < t.low) {
			t.low = s.Count
		}
	}

	if e := d.checkCoexistence(stats); e != nil {
		events = append(events, *e)
	}
	return events
}

func (d *EventDetector) checkExtinction(t *speciesTrack, s YearStats) *Event {
	if !t.seen || t.extinct || s.Count > 0 {
		return nil
	}
	t.extinct = true
	t.peak, t.low = 0, 0
	return &Event{
		Type:        EventExtinction,
		Year:        s.Year,
		Species:     s.Species,
		Description: fmt.Sprintf("%s died out (%d the year before)", s.Species, t.last),
	}
}

func (d *EventDetector) checkCrash(t *speciesTrack, s YearStats) *Event {
	if t.peak == 0 || s.Count == 0 {
		return nil
	}
	drop := 1.0 - float64(s.Count)/float64(t.peak)
	if drop < d.cfg.CrashDropPercent || t.peak-s.Count < d.cfg.CrashMinDrop {
		return nil
	}

	// Reset peak after crash
	oldPeak := t.peak
	t.peak = s.Count
	return &Event{
		Type:        EventCrash,
		Year:        s.Year,
		Species:     s.Species,
		Description: fmt.Sprintf("%s crashed %.0f%% from peak %d to %d", s.Species, drop*100, oldPeak, s.Count),
	}
}

func (d *EventDetector) checkRecovery(t *speciesTrack, s YearStats) *Event {
	if t.low == 0 || t.low > d.cfg.RecoveryMinPopulation {
		return nil
	}
	if s.Count < t.low*d.cfg.RecoveryMultiplier || s.Count < 2*d.cfg.RecoveryMinPopulation {
		return nil
	}

	oldLow := t.low
	t.low = s.Count
	return &Event{
		Type:        EventRecovery,
		Year:        s.Year,
		Species:     s.Species,
		Description: fmt.Sprintf("%s recovered from %d to %d", s.Species, oldLow, s.Count),
	}
}

// checkCoexistence fires once when at least two species have been present
// with a low coefficient of variation for five consecutive years.
func (d *EventDetector) checkCoexistence(stats []YearStats) *Event {
	present := 0
	stable := true
	for _, s := range stats {
		if s.Count == 0 {
			continue
		}
		present++
		counts := d.track(s.Species).recent(4)
		if len(counts) < 4 || cv2(counts) >= 0.04 { // CV^2 < 0.04 means CV < 0.2
			stable = false
		}
	}

	if present < 2 || !stable {
		d.stableYears = 0
		return nil
	}
	d.stableYears++
	if d.stableYears != 5 { // trigger exactly once at 5 years
		return nil
	}

	year := 0
	if len(stats) > 0 {
		year = stats[0].Year
	}
	return &Event{
		Type:        EventCoexistence,
		Year:        year,
		Description: fmt.Sprintf("%d species stable over 5+ years", present),
	}
}

// cv2 returns the squared coefficient of variation of counts.
func cv2(counts []int) float64 {
	mean, std := stat.PopMeanStdDev(toFloats(counts), nil)
	if mean == 0 {
		return 0
	}
	c := std / mean
	return c * c
}
