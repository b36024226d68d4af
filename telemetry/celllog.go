package telemetry

import (
	"bufio"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// CellLogFile is the file name of the per-cell population log.
const CellLogFile = "cells.jsonl.zst"

// CellEntry is one species' per-cell counts for one year. Cells holds one
// [row, col, count] triple per inhabited cell in row-major order.
type CellEntry struct {
	Year    int      `json:"year"`
	Species string   `json:"species"`
	Cells   [][3]int `json:"cells"`
}

// CellLog writes per-cell population counts as zstd-compressed JSONL, one
// line per species per year. The data is enough to draw population heat maps.
type CellLog struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// NewCellLog creates dir if needed and opens a fresh log inside it.
func NewCellLog(dir string) (*CellLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cell log directory: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, CellLogFile))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", CellLogFile, err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &CellLog{f: f, enc: enc, w: bufio.NewWriterSize(enc, 128*1024)}, nil
}

// Entries converts src's per-cell counts into log entries, one per species
// in src.Species order. Empty cells are omitted.
func Entries(src Source) []CellEntry {
	perCell := src.NumAnimalsPerCellPerSpecies()
	species := src.Species()
	out := make([]CellEntry, 0, len(species))
	for _, name := range species {
		counts := perCell[name]
		e := CellEntry{Year: src.Year(), Species: name, Cells: [][3]int{}}
		for loc, n := range counts {
			if n > 0 {
				e.Cells = append(e.Cells, [3]int{loc.Row, loc.Col, n})
			}
		}
		slices.SortFunc(e.Cells, func(a, b [3]int) int {
			if a[0] != b[0] {
				return cmp.Compare(a[0], b[0])
			}
			return cmp.Compare(a[1], b[1])
		})
		out = append(out, e)
	}
	return out
}

// Write appends the entries of one year.
func (l *CellLog) Write(entries []CellEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.w == nil {
		return errors.New("cell log is closed")
	}
	for _, e := range entries {
		b, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if _, err := l.w.Write(b); err != nil {
			return err
		}
		if err := l.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return l.w.Flush()
}

// Close flushes the compressor and closes the file.
func (l *CellLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var err1 error
	if l.w != nil {
		err1 = l.w.Flush()
		l.w = nil
	}
	if l.enc != nil {
		if err := l.enc.Close(); err != nil && err1 == nil {
			err1 = err
		}
		l.enc = nil
	}
	if l.f != nil {
		if err := l.f.Close(); err != nil && err1 == nil {
			err1 = err
		}
		l.f = nil
	}
	return err1
}

// ReadCellLog decodes every entry of the log at path.
func ReadCellLog(path string) ([]CellEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []CellEntry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		var e CellEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("decoding cell log line: %w", err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
