package params

import "sort"

// Set is one named parameter table. The registry owns every Set; organisms
// and cells keep a pointer to it so updates are seen immediately.
type Set struct {
	name  string
	num   map[string]float64
	flags map[string]bool
}

func newSet(name string) *Set {
	return &Set{
		name:  name,
		num:   make(map[string]float64),
		flags: make(map[string]bool),
	}
}

// Name returns the species name or land code the set belongs to.
func (s *Set) Name() string {
	return s.name
}

// Num returns a numeric parameter. Missing keys read as 0; the registry
// guarantees every required key is present.
func (s *Set) Num(key string) float64 {
	return s.num[key]
}

// Flag returns a boolean parameter.
func (s *Set) Flag(key string) bool {
	return s.flags[key]
}

// Keys returns all parameter names in sorted order.
func (s *Set) Keys() []string {
	keys := make([]string, 0, len(s.num)+len(s.flags))
	for k := range s.num {
		keys = append(keys, k)
	}
	for k := range s.flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Table returns a copy of the set as a plain map.
func (s *Set) Table() map[string]any {
	t := make(map[string]any, len(s.num)+len(s.flags))
	for k, v := range s.num {
		t[k] = v
	}
	for k, v := range s.flags {
		t[k] = v
	}
	return t
}

// NewSet builds a free-standing set without validation. It is meant for
// tests and tools that construct organisms outside a registry.
func NewSet(name string, table map[string]any) *Set {
	s := newSet(name)
	for k, v := range table {
		if b, ok := v.(bool); ok {
			s.flags[k] = b
			continue
		}
		if f, ok := toFloat(v); ok {
			s.num[k] = f
		}
	}
	return s
}
