// Package cost resolves what an action costs and whether an actor can pay it.
package cost

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/fiefdom/internal/game/actor"
)

//go:embed costs.yaml
var defaultCosts []byte

// Entry is the static cost of one action kind.
type Entry struct {
	Stamina   int                    `yaml:"stamina"`
	Resources map[actor.Resource]int `yaml:"resources"`
}

// Table maps action kind identifiers to their costs.
type Table map[string]Entry

// ErrUnknownKind is returned by Lookup for kinds without an entry.
var ErrUnknownKind = errors.New("no cost entry")

type yamlCostFile struct {
	Costs map[string]Entry `yaml:"costs"`
}

// DefaultTable returns the built-in cost table.
//
// Postcondition: Returns a validated Table; panics only if the embedded file is corrupt.
func DefaultTable() Table {
	t, err := LoadTableFromBytes(defaultCosts)
	if err != nil {
		panic("cost: embedded table invalid: " + err.Error())
	}
	return t
}

// LoadTableFromFile reads a YAML cost table.
//
// Postcondition: Returns a validated Table or a non-nil error.
func LoadTableFromFile(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cost file %s: %w", path, err)
	}
	return LoadTableFromBytes(data)
}

// LoadTableFromBytes parses and validates a YAML cost table.
//
// Postcondition: Returns a validated Table or a non-nil error.
func LoadTableFromBytes(data []byte) (Table, error) {
	var file yamlCostFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing cost YAML: %w", err)
	}
	t := Table(file.Costs)
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("validating cost table: %w", err)
	}
	return t, nil
}

// Validate checks that every entry is non-negative and names known resources.
func (t Table) Validate() error {
	if len(t) == 0 {
		return errors.New("cost table is empty")
	}
	for kind, e := range t {
		if e.Stamina < 0 {
			return fmt.Errorf("%s: stamina must be >= 0, got %d", kind, e.Stamina)
		}
		for res, n := range e.Resources {
			if !res.Valid() {
				return fmt.Errorf("%s: unknown resource %q", kind, res)
			}
			if n < 0 {
				return fmt.Errorf("%s: %s must be >= 0, got %d", kind, res, n)
			}
		}
	}
	return nil
}

// Lookup returns the entry for kind.
func (t Table) Lookup(kind string) (Entry, error) {
	e, ok := t[kind]
	if !ok {
		return Entry{}, fmt.Errorf("%s: %w", kind, ErrUnknownKind)
	}
	return e, nil
}

// sortedResources returns e's resource keys in a stable order.
func (e Entry) sortedResources() []actor.Resource {
	keys := make([]actor.Resource, 0, len(e.Resources))
	for r := range e.Resources {
		keys = append(keys, r)
	}
	slices.Sort(keys)
	return keys
}
