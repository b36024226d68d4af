package params

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrUnknownSpecies   = errors.New("unknown species")
	ErrUnknownLandType  = errors.New("unknown land type")
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrMissingParameter = errors.New("missing parameter")
	ErrInvalidValue     = errors.New("invalid parameter value")
	ErrNegative         = errors.New("parameter can not be negative")
	ErrAboveOne         = errors.New("parameter can not be more than 1")
	ErrNotPositive      = errors.New("parameter must be positive")
)

// Registry owns the parameter tables for every species and land type.
type Registry struct {
	species map[string]*Set
	land    map[string]*Set
}

// NewRegistry validates the given tables and builds a registry from them.
// Every species table must match its schema exactly; land codes must be a
// single character.
func NewRegistry(species, land map[string]map[string]any) (*Registry, error) {
	r := &Registry{
		species: make(map[string]*Set, len(species)),
		land:    make(map[string]*Set, len(land)),
	}

	for name, table := range species {
		schema, ok := SpeciesSchemas[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSpecies, name)
		}
		set := newSet(name)
		if err := fill(set, schema, table); err != nil {
			return nil, fmt.Errorf("species %s: %w", name, err)
		}
		r.species[name] = set
	}

	for code, table := range land {
		if len(code) != 1 {
			return nil, fmt.Errorf("%w: %q is not a single character", ErrUnknownLandType, code)
		}
		set := newSet(code)
		if err := fill(set, LandSchema, table); err != nil {
			return nil, fmt.Errorf("land type %s: %w", code, err)
		}
		r.land[code] = set
	}

	return r, nil
}

// fill validates a complete table against schema and stores it in set.
func fill(set *Set, schema Schema, table map[string]any) error {
	staged, err := stage(schema, table)
	if err != nil {
		return err
	}
	for _, key := range schema.Numeric {
		if _, ok := staged.num[key]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingParameter, key)
		}
	}
	for _, key := range schema.Flags {
		if _, ok := staged.flags[key]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingParameter, key)
		}
	}
	staged.apply(set)
	return nil
}

// staged holds validated values that have not been applied yet.
type staged struct {
	num   map[string]float64
	flags map[string]bool
}

func (s staged) apply(set *Set) {
	for k, v := range s.num {
		set.num[k] = v
	}
	for k, v := range s.flags {
		set.flags[k] = v
	}
}

// stage validates every entry of values. Nothing is returned unless all
// entries pass.
func stage(schema Schema, values map[string]any) (staged, error) {
	s := staged{
		num:   make(map[string]float64, len(values)),
		flags: make(map[string]bool),
	}
	// Sorted so the reported error is stable.
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := values[key]
		switch {
		case schema.isFlag(key):
			b, ok := value.(bool)
			if !ok {
				return staged{}, fmt.Errorf("%w: %s must be a boolean, got %v", ErrInvalidValue, key, value)
			}
			s.flags[key] = b
		case schema.isNumeric(key):
			f, err := checkNumeric(schema, key, value)
			if err != nil {
				return staged{}, err
			}
			s.num[key] = f
		default:
			return staged{}, fmt.Errorf("%w: %s", ErrUnknownParameter, key)
		}
	}
	return s, nil
}

func checkNumeric(schema Schema, key string, value any) (float64, error) {
	f, ok := toFloat(value)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s must be a finite number, got %v", ErrInvalidValue, key, value)
	}
	if f < 0 {
		return 0, fmt.Errorf("%w: %s = %g", ErrNegative, key, f)
	}
	if contains(schema.Capped, key) && f > 1 {
		return 0, fmt.Errorf("%w: %s = %g", ErrAboveOne, key, f)
	}
	if contains(schema.Positive, key) && f <= 0 {
		return 0, fmt.Errorf("%w: %s = %g", ErrNotPositive, key, f)
	}
	return f, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Species returns the shared parameter set for a species.
func (r *Registry) Species(name string) (*Set, error) {
	set, ok := r.species[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSpecies, name)
	}
	return set, nil
}

// Land returns the shared parameter set for a land type code.
func (r *Registry) Land(code string) (*Set, error) {
	set, ok := r.land[code]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLandType, code)
	}
	return set, nil
}

// SetSpecies validates values against the species schema and, only if every
// entry is valid, writes them into the shared set.
func (r *Registry) SetSpecies(name string, values map[string]any) error {
	set, err := r.Species(name)
	if err != nil {
		return err
	}
	s, err := stage(SpeciesSchemas[name], values)
	if err != nil {
		return fmt.Errorf("species %s: %w", name, err)
	}
	s.apply(set)
	return nil
}

// SetLand validates values against the land schema and applies them to the
// land type's shared set.
func (r *Registry) SetLand(code string, values map[string]any) error {
	set, err := r.Land(code)
	if err != nil {
		return err
	}
	s, err := stage(LandSchema, values)
	if err != nil {
		return fmt.Errorf("land type %s: %w", code, err)
	}
	s.apply(set)
	return nil
}

// SpeciesNames returns the registered species in sorted order.
func (r *Registry) SpeciesNames() []string {
	names := make([]string, 0, len(r.species))
	for name := range r.species {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LandCodes returns the registered land type codes in sorted order.
func (r *Registry) LandCodes() []string {
	codes := make([]string, 0, len(r.land))
	for code := range r.land {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Tables returns deep copies of the species and land tables.
func (r *Registry) Tables() (species, land map[string]map[string]any) {
	species = make(map[string]map[string]any, len(r.species))
	for name, set := range r.species {
		species[name] = set.Table()
	}
	land = make(map[string]map[string]any, len(r.land))
	for code, set := range r.land {
		land[code] = set.Table()
	}
	return species, land
}
