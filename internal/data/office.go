package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/atriumverse/atrium/internal/world"
)

// OfficeMap is the static world layout: the collision layer plus the spawn
// point every joiner starts from.
type OfficeMap struct {
	Grid   *world.ObstacleGrid
	SpawnX float64
	SpawnY float64
}

type officeMapFile struct {
	Width    int      `yaml:"width"`     // tiles
	Height   int      `yaml:"height"`    // tiles
	TileSize float64  `yaml:"tile_size"` // px
	Spawn    spawnPos `yaml:"spawn"`
	Solid    []string `yaml:"solid"` // one string per row, '#' = wall
}

type spawnPos struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// LoadOfficeMap reads the office layout from YAML.
func LoadOfficeMap(path string) (*OfficeMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read office map: %w", err)
	}

	var f officeMapFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse office map: %w", err)
	}

	if len(f.Solid) != f.Height {
		return nil, fmt.Errorf("office map: %d solid rows for height %d", len(f.Solid), f.Height)
	}
	solid := make([]bool, f.Width*f.Height)
	for ty, row := range f.Solid {
		if len(row) != f.Width {
			return nil, fmt.Errorf("office map: row %d has %d tiles, want %d", ty, len(row), f.Width)
		}
		for tx := 0; tx < f.Width; tx++ {
			solid[ty*f.Width+tx] = row[tx] == '#'
		}
	}

	grid := world.NewObstacleGrid(f.Width, f.Height, f.TileSize, solid)
	if grid == nil {
		return nil, fmt.Errorf("office map: invalid dimensions %dx%d tile_size=%v", f.Width, f.Height, f.TileSize)
	}

	return &OfficeMap{Grid: grid, SpawnX: f.Spawn.X, SpawnY: f.Spawn.Y}, nil
}
