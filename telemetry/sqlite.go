package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the yearly species history and detected events in a
// SQLite database so runs can be queried after the fact.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteStore returns a store for path. Init must be called before use.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Init opens the database and creates the tables if needed.
func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// WriteYear stores one year of species stats. Writing the same year twice
// replaces the earlier rows.
func (s *SQLiteStore) WriteYear(ctx context.Context, stats []YearStats) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, st := range stats {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO year_stats (year, species, count, change, fitness_mean, fitness_std,
				fitness_p50, age_mean, age_max, weight_mean, occupied_cells)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(year, species) DO UPDATE SET
				count = excluded.count,
				change = excluded.change,
				fitness_mean = excluded.fitness_mean,
				fitness_std = excluded.fitness_std,
				fitness_p50 = excluded.fitness_p50,
				age_mean = excluded.age_mean,
				age_max = excluded.age_max,
				weight_mean = excluded.weight_mean,
				occupied_cells = excluded.occupied_cells
		`, st.Year, st.Species, st.Count, st.Change, st.FitnessMean, st.FitnessStd,
			st.FitnessP50, st.AgeMean, st.AgeMax, st.WeightMean, st.OccupiedCells)
		if err != nil {
			return fmt.Errorf("insert %s year %d: %w", st.Species, st.Year, err)
		}
	}
	return tx.Commit()
}

// WriteEvents appends events.
func (s *SQLiteStore) WriteEvents(ctx context.Context, events []Event) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	for _, e := range events {
		_, err := db.ExecContext(ctx, `
			INSERT INTO events (year, type, species, description) VALUES (?, ?, ?, ?)
		`, e.Year, string(e.Type), e.Species, e.Description)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return nil
}

// Counts returns the stored population of species keyed by year.
func (s *SQLiteStore) Counts(ctx context.Context, species string) (map[int]int, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT year, count FROM year_stats WHERE species = ? ORDER BY year`, species)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var year, count int
		if err := rows.Scan(&year, &count); err != nil {
			return nil, err
		}
		out[year] = count
	}
	return out, rows.Err()
}

// Events returns every stored event in insertion order.
func (s *SQLiteStore) Events(ctx context.Context) ([]Event, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT year, type, species, description FROM events ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var typ string
		if err := rows.Scan(&e.Year, &typ, &e.Species, &e.Description); err != nil {
			return nil, err
		}
		e.Type = EventType(typ)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database. It is safe to call on an uninitialized store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS year_stats (
			year INTEGER NOT NULL,
			species TEXT NOT NULL,
			count INTEGER NOT NULL,
			change INTEGER NOT NULL,
			fitness_mean REAL NOT NULL,
			fitness_std REAL NOT NULL,
			fitness_p50 REAL NOT NULL,
			age_mean REAL NOT NULL,
			age_max INTEGER NOT NULL,
			weight_mean REAL NOT NULL,
			occupied_cells INTEGER NOT NULL,
			PRIMARY KEY (year, species)
		);
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			year INTEGER NOT NULL,
			type TEXT NOT NULL,
			species TEXT NOT NULL,
			description TEXT NOT NULL
		);
	`)
	return err
}
