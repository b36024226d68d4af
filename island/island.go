// Package island models the grid of land cells the animals live on and the
// yearly cycle that runs across it.
package island

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pthm-cable/biosim/animals"
	"github.com/pthm-cable/biosim/params"
	"github.com/pthm-cable/biosim/rng"
)

var (
	ErrEmptyMap        = errors.New("empty island map")
	ErrNotRectangular  = errors.New("map rows have differing widths")
	ErrUnknownLandType = params.ErrUnknownLandType
	ErrNotIsland       = errors.New("not an island: habitable cell on the border")
	ErrOutOfBounds     = errors.New("location outside the island")
	ErrUninhabitable   = errors.New("can not add animals to uninhabitable land")
	ErrMapTooSmall     = errors.New("map too small")
)

// Location addresses a cell, 1-indexed from the top-left corner.
type Location struct {
	Row int
	Col int
}

func (l Location) String() string {
	return fmt.Sprintf("(%d, %d)", l.Row, l.Col)
}

// Placement is a group of animals to put at one location.
type Placement struct {
	Loc Location
	Pop []animals.Individual
}

// Island is a rectangular grid of cells surrounded by uninhabitable land.
type Island struct {
	rows, cols int
	cells      []*Cell // row-major
	reg        *params.Registry
}

// New parses geography and builds the island. The map is one row of land
// codes per line; surrounding whitespace and indentation are ignored.
func New(geography string, reg *params.Registry) (*Island, error) {
	lines := strings.Fields(geography)
	if len(lines) == 0 {
		return nil, ErrEmptyMap
	}

	cols := len(lines[0])
	isl := &Island{
		rows:  len(lines),
		cols:  cols,
		cells: make([]*Cell, 0, len(lines)*cols),
		reg:   reg,
	}

	for i, line := range lines {
		if len(line) != cols {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrNotRectangular, i+1, len(line), cols)
		}
		for j := range len(line) {
			code := line[j : j+1]
			land, err := reg.Land(code)
			if err != nil {
				return nil, fmt.Errorf("row %d col %d: %w", i+1, j+1, err)
			}
			isl.cells = append(isl.cells, newCell(code, land))
		}
	}

	for _, loc := range isl.Locations() {
		if isl.onBorder(loc) && isl.Cell(loc).Habitable() {
			return nil, fmt.Errorf("%w: %s is %s", ErrNotIsland, loc, isl.Cell(loc).LandType())
		}
	}
	return isl, nil
}

func (isl *Island) onBorder(loc Location) bool {
	return loc.Row == 1 || loc.Row == isl.rows || loc.Col == 1 || loc.Col == isl.cols
}

func (isl *Island) Rows() int { return isl.rows }
func (isl *Island) Cols() int { return isl.cols }

// Cell returns the cell at loc, or nil when loc is outside the island.
func (isl *Island) Cell(loc Location) *Cell {
	if loc.Row < 1 || loc.Row > isl.rows || loc.Col < 1 || loc.Col > isl.cols {
		return nil
	}
	return isl.cells[(loc.Row-1)*isl.cols+loc.Col-1]
}

// Locations returns every location in row-major order.
func (isl *Island) Locations() []Location {
	locs := make([]Location, 0, len(isl.cells))
	for r := 1; r <= isl.rows; r++ {
		for c := 1; c <= isl.cols; c++ {
			locs = append(locs, Location{Row: r, Col: c})
		}
	}
	return locs
}

// Neighbours returns the cells south, east, north and west of loc, in that
// order, leaving out those beyond the map edge.
func (isl *Island) Neighbours(loc Location) []*Cell {
	candidates := [4]Location{
		{loc.Row + 1, loc.Col},
		{loc.Row, loc.Col + 1},
		{loc.Row - 1, loc.Col},
		{loc.Row, loc.Col - 1},
	}
	out := make([]*Cell, 0, len(candidates))
	for _, n := range candidates {
		if c := isl.Cell(n); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// AddPopulations places animals on the island. Every placement is checked
// and every animal constructed before any cell changes, so a failing call
// leaves the island untouched.
func (isl *Island) AddPopulations(placements []Placement) error {
	type batch struct {
		cell  *Cell
		built []animals.Animal
	}
	batches := make([]batch, 0, len(placements))

	for _, p := range placements {
		cell := isl.Cell(p.Loc)
		if cell == nil {
			return fmt.Errorf("%w: %s", ErrOutOfBounds, p.Loc)
		}
		built, err := cell.build(p.Pop, isl.reg)
		if err != nil {
			return fmt.Errorf("location %s: %w", p.Loc, err)
		}
		batches = append(batches, batch{cell: cell, built: built})
	}

	for _, b := range batches {
		b.cell.animals = append(b.cell.animals, b.built...)
	}
	return nil
}

// SimulateYear runs one year. The first pass feeds, breeds and migrates cell
// by cell in row-major order; migrants wait in their destination's incoming
// buffer, so no animal moves twice. The second pass settles the migrants and
// applies ageing, weight loss and death.
func (isl *Island) SimulateYear(r *rng.Rand) {
	for i, cell := range isl.cells {
		cell.AnimalFeeding(r)
		cell.AnimalBreeding(r)
		cell.AnimalMigration(isl.Neighbours(isl.location(i)), r)
	}
	for _, cell := range isl.cells {
		cell.FinishAnimalMigration()
		cell.AnimalAgeing()
		cell.AnimalWeightLoss()
		cell.AnimalDeath(r)
	}
}

func (isl *Island) location(i int) Location {
	return Location{Row: i/isl.cols + 1, Col: i%isl.cols + 1}
}

// SpeciesCount returns the number of animals of species on the island.
func (isl *Island) SpeciesCount(species string) int {
	n := 0
	for _, cell := range isl.cells {
		n += cell.Count(species)
	}
	return n
}

// CellPopulation returns the count of species for every cell, including
// empty and uninhabitable ones.
func (isl *Island) CellPopulation(species string) map[Location]int {
	out := make(map[Location]int, len(isl.cells))
	for i, cell := range isl.cells {
		out[isl.location(i)] = cell.Count(species)
	}
	return out
}

// SpeciesFitness returns the fitness of every animal of species, cell by
// cell in row-major order.
func (isl *Island) SpeciesFitness(species string) []float64 {
	var out []float64
	for _, cell := range isl.cells {
		out = append(out, cell.Fitness(species)...)
	}
	return out
}

func (isl *Island) SpeciesAges(species string) []int {
	var out []int
	for _, cell := range isl.cells {
		out = append(out, cell.Ages(species)...)
	}
	return out
}

func (isl *Island) SpeciesWeights(species string) []float64 {
	var out []float64
	for _, cell := range isl.cells {
		out = append(out, cell.Weights(species)...)
	}
	return out
}
