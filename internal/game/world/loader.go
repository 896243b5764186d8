package world

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlRealmFile is the top-level YAML structure for realm files.
type yamlRealmFile struct {
	Realm yamlRealm `yaml:"realm"`
}

// yamlRealm is the YAML representation of a realm.
type yamlRealm struct {
	ID      string       `yaml:"id"`
	Name    string       `yaml:"name"`
	Regions []yamlRegion `yaml:"regions"`
}

// yamlRegion is the YAML representation of a region.
type yamlRegion struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	FortLevel     int    `yaml:"fort_level"`
	FortHP        int    `yaml:"fort_hp"`
	GarrisonSword int    `yaml:"garrison_swords"`
	GarrisonArmor int    `yaml:"garrison_armor"`
	Morale        int    `yaml:"morale"`
}

// Realm is the static seed for a room's regions.
type Realm struct {
	ID      string
	Name    string
	Regions []*Region
}

// Validate checks realm invariants.
//
// Postcondition: Returns nil if valid, or an error describing the first violation.
func (r *Realm) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("realm ID must not be empty")
	}
	if len(r.Regions) == 0 {
		return fmt.Errorf("realm %q: must contain at least one region", r.ID)
	}
	seen := make(map[string]bool, len(r.Regions))
	for _, reg := range r.Regions {
		if reg.ID == "" {
			return fmt.Errorf("realm %q: region ID must not be empty", r.ID)
		}
		if seen[reg.ID] {
			return fmt.Errorf("realm %q: duplicate region ID %q", r.ID, reg.ID)
		}
		seen[reg.ID] = true
		if reg.Name == "" {
			return fmt.Errorf("realm %q: region %q: name must not be empty", r.ID, reg.ID)
		}
		if reg.Fortification.Level < 1 {
			return fmt.Errorf("realm %q: region %q: fort_level must be >= 1", r.ID, reg.ID)
		}
		if reg.Fortification.HP < 1 {
			return fmt.Errorf("realm %q: region %q: fort_hp must be >= 1", r.ID, reg.ID)
		}
	}
	return nil
}

// LoadRealmFromFile reads and validates a single realm YAML file.
//
// Precondition: path must point to a valid YAML realm file.
// Postcondition: Returns a validated Realm or a non-nil error.
func LoadRealmFromFile(path string) (*Realm, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading realm file %s: %w", path, err)
	}
	return LoadRealmFromBytes(data)
}

// LoadRealmFromBytes parses and validates a realm from YAML bytes.
//
// Postcondition: Returns a validated Realm or a non-nil error.
func LoadRealmFromBytes(data []byte) (*Realm, error) {
	var file yamlRealmFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing realm YAML: %w", err)
	}

	realm := convertYAMLRealm(file.Realm)
	if err := realm.Validate(); err != nil {
		return nil, fmt.Errorf("validating realm: %w", err)
	}
	return realm, nil
}

// LoadRealmsFromDir loads all YAML files in a directory as realms.
//
// Postcondition: Returns all validated realms or the first error encountered.
func LoadRealmsFromDir(dir string) ([]*Realm, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading realm directory %s: %w", dir, err)
	}

	var realms []*Realm
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		realm, err := LoadRealmFromFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loading realm from %s: %w", name, err)
		}
		realms = append(realms, realm)
	}

	if len(realms) == 0 {
		return nil, fmt.Errorf("no realm files found in %s", dir)
	}
	return realms, nil
}

func convertYAMLRealm(yr yamlRealm) *Realm {
	realm := &Realm{ID: yr.ID, Name: yr.Name}
	for _, y := range yr.Regions {
		morale := y.Morale
		if morale == 0 {
			morale = 100
		}
		realm.Regions = append(realm.Regions, &Region{
			ID:   y.ID,
			Name: strings.TrimSpace(y.Name),
			Garrison: Garrison{
				Swords: y.GarrisonSword,
				Armor:  y.GarrisonArmor,
				Morale: morale,
			},
			Fortification: Fortification{
				HP:    y.FortHP,
				MaxHP: y.FortHP,
				Level: y.FortLevel,
			},
		})
	}
	return realm
}
