package world

import "math"

type cellKey struct {
	cx, cy int32
}

// Grid is a uniform cell index over player positions. Cell size equals the
// proximity radius, so any pair within radius of each other shares a cell or
// sits in adjacent cells.
// Single-goroutine access only (game loop).
type Grid struct {
	cellSize float64
	cells    map[cellKey]map[string]struct{}
}

func NewGrid(cellSize float64) *Grid {
	return &Grid{
		cellSize: cellSize,
		cells:    make(map[cellKey]map[string]struct{}),
	}
}

func (g *Grid) cellOf(x, y float64) cellKey {
	return cellKey{
		cx: int32(math.Floor(x / g.cellSize)),
		cy: int32(math.Floor(y / g.cellSize)),
	}
}

// Add indexes id at (x, y).
func (g *Grid) Add(id string, x, y float64) {
	key := g.cellOf(x, y)
	cell, ok := g.cells[key]
	if !ok {
		cell = make(map[string]struct{})
		g.cells[key] = cell
	}
	cell[id] = struct{}{}
}

// Remove drops id from the cell containing (x, y).
func (g *Grid) Remove(id string, x, y float64) {
	key := g.cellOf(x, y)
	if cell, ok := g.cells[key]; ok {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, key)
		}
	}
}

// Move reindexes id when it crosses a cell boundary.
func (g *Grid) Move(id string, oldX, oldY, newX, newY float64) {
	oldKey := g.cellOf(oldX, oldY)
	newKey := g.cellOf(newX, newY)
	if oldKey == newKey {
		return
	}
	g.Remove(id, oldX, oldY)
	g.Add(id, newX, newY)
}

// Clone returns an independent copy of the index.
func (g *Grid) Clone() *Grid {
	cp := NewGrid(g.cellSize)
	for key, cell := range g.cells {
		members := make(map[string]struct{}, len(cell))
		for id := range cell {
			members[id] = struct{}{}
		}
		cp.cells[key] = members
	}
	return cp
}

// Nearby returns all ids indexed in the 3x3 cell neighborhood around (x, y),
// excluding excludeID. Callers still apply the exact distance check.
func (g *Grid) Nearby(x, y float64, excludeID string) []string {
	center := g.cellOf(x, y)
	var out []string
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			cell, ok := g.cells[cellKey{center.cx + dx, center.cy + dy}]
			if !ok {
				continue
			}
			for id := range cell {
				if id == excludeID {
					continue
				}
				out = append(out, id)
			}
		}
	}
	return out
}
