package main

import (
	"maps"

	"github.com/pthm-cable/biosim/config"
	"github.com/pthm-cable/biosim/params"
)

// ParamSpec defines a single optimizable parameter: one key of a species or
// landscape table.
type ParamSpec struct {
	Name    string // Column name in the log
	Table   string // species name or land code
	Key     string
	Land    bool // Table is a landscape code
	Min     float64
	Max     float64
	Default float64
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Carnivore hunting and metabolism
			{Name: "carn_F", Table: params.Carnivore, Key: "F", Min: 10, Max: 80, Default: 50},
			{Name: "carn_beta", Table: params.Carnivore, Key: "beta", Min: 0.3, Max: 1.0, Default: 0.75},
			{Name: "carn_dphi_max", Table: params.Carnivore, Key: "DeltaPhiMax", Min: 1, Max: 20, Default: 10},
			{Name: "carn_eta", Table: params.Carnivore, Key: "eta", Min: 0.05, Max: 0.3, Default: 0.125},
			{Name: "carn_gamma", Table: params.Carnivore, Key: "gamma", Min: 0.1, Max: 1.0, Default: 0.8},
			{Name: "carn_mu", Table: params.Carnivore, Key: "mu", Min: 0, Max: 1, Default: 0.4},
			// Herbivore
			{Name: "herb_F", Table: params.Herbivore, Key: "F", Min: 5, Max: 20, Default: 10},
			{Name: "herb_gamma", Table: params.Herbivore, Key: "gamma", Min: 0.05, Max: 0.5, Default: 0.2},
			{Name: "herb_mu", Table: params.Herbivore, Key: "mu", Min: 0, Max: 1, Default: 0.25},
			// Fodder
			{Name: "lowland_f_max", Table: "L", Key: "f_max", Land: true, Min: 200, Max: 1200, Default: 800},
			{Name: "highland_f_max", Table: "H", Key: "f_max", Land: true, Min: 50, Max: 600, Default: 300},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes clamped parameter values into the config's tables.
// Tables are copied before writing so configs sharing them are unaffected.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	cfg.Species = cloneTables(cfg.Species)
	cfg.Landscape = cloneTables(cfg.Landscape)
	for i, spec := range pv.Specs {
		tables := cfg.Species
		if spec.Land {
			tables = cfg.Landscape
		}
		t, ok := tables[spec.Table]
		if !ok {
			t = make(map[string]any)
			tables[spec.Table] = t
		}
		t[spec.Key] = clamped[i]
	}
}

// ExtractFromConfig reads the current parameter values from cfg. Missing or
// non-numeric entries fall back to Default.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		tables := cfg.Species
		if spec.Land {
			tables = cfg.Landscape
		}
		v[i] = spec.Default
		if f, ok := asFloat(tables[spec.Table][spec.Key]); ok {
			v[i] = f
		}
	}
	return v
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func cloneTables(in map[string]map[string]any) map[string]map[string]any {
	out := make(map[string]map[string]any, len(in))
	for name, t := range in {
		out[name] = maps.Clone(t)
	}
	return out
}
