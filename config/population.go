package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed population.schema.json
var populationSchemaJSON string

var populationSchema = jsonschema.MustCompileString("population.schema.json", populationSchemaJSON)

// LoadPopulation reads a JSON population file and validates it against the
// embedded population schema before decoding it.
func LoadPopulation(path string) ([]PlacementConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading population file: %w", err)
	}
	return ParsePopulation(data)
}

// ParsePopulation validates and decodes population JSON.
func ParsePopulation(data []byte) ([]PlacementConfig, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing population: %w", err)
	}
	if err := populationSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validating population: %w", err)
	}

	var placements []PlacementConfig
	if err := json.Unmarshal(data, &placements); err != nil {
		return nil, fmt.Errorf("decoding population: %w", err)
	}
	return placements, nil
}
