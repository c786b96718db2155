package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/atriumverse/atrium/internal/world"
)

type zoneEntry struct {
	ID   string  `yaml:"id"`
	Name string  `yaml:"name"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
	W    float64 `yaml:"w"`
	H    float64 `yaml:"h"`
}

type zoneListFile struct {
	Zones []zoneEntry `yaml:"zones"`
}

// LoadZones reads the restricted zone rectangles from YAML. Geometry is not
// validated here: a malformed zone must survive loading so the access check
// can fail closed on it.
func LoadZones(path string) ([]world.Zone, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zones: %w", err)
	}

	var f zoneListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse zones: %w", err)
	}

	zones := make([]world.Zone, 0, len(f.Zones))
	seen := make(map[string]struct{}, len(f.Zones))
	for _, z := range f.Zones {
		if z.ID == "" {
			return nil, fmt.Errorf("zones: entry %q has no id", z.Name)
		}
		if _, dup := seen[z.ID]; dup {
			return nil, fmt.Errorf("zones: duplicate id %s", z.ID)
		}
		seen[z.ID] = struct{}{}
		zones = append(zones, world.Zone{ID: z.ID, Name: z.Name, X: z.X, Y: z.Y, W: z.W, H: z.H})
	}
	return zones, nil
}

type accessFile struct {
	Access map[string][]string `yaml:"access"`
}

// LoadAccessTable reads the zone-to-roles table from YAML.
func LoadAccessTable(path string) (*world.AccessTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read access table: %w", err)
	}

	var f accessFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse access table: %w", err)
	}

	rules := make(map[string][]world.Role, len(f.Access))
	for zoneID, roles := range f.Access {
		out := make([]world.Role, len(roles))
		for i, r := range roles {
			out[i] = world.Role(r)
		}
		rules[zoneID] = out
	}
	return world.NewAccessTable(rules), nil
}
