package world

import "math"

// ObstacleGrid is the static collision layer of the office map: a row-major
// tile grid where true marks a wall. Out-of-bounds lookups count as solid.
type ObstacleGrid struct {
	TileSize float64
	Width    int // tiles
	Height   int // tiles
	solid    []bool
}

// NewObstacleGrid builds a grid from row-major solid flags. Returns nil when
// the dimensions do not match the data; callers treat a nil grid as opaque.
func NewObstacleGrid(width, height int, tileSize float64, solid []bool) *ObstacleGrid {
	if width <= 0 || height <= 0 || tileSize <= 0 || len(solid) != width*height {
		return nil
	}
	return &ObstacleGrid{TileSize: tileSize, Width: width, Height: height, solid: solid}
}

// SolidAtTile reports whether tile (tx, ty) blocks sight.
func (g *ObstacleGrid) SolidAtTile(tx, ty int) bool {
	if tx < 0 || ty < 0 || tx >= g.Width || ty >= g.Height {
		return true
	}
	return g.solid[ty*g.Width+tx]
}

// SolidAt reports whether the tile under world point (x, y) blocks sight.
func (g *ObstacleGrid) SolidAt(x, y float64) bool {
	if g == nil {
		return true
	}
	return g.SolidAtTile(int(math.Floor(x/g.TileSize)), int(math.Floor(y/g.TileSize)))
}

// Blocked walks the tiles crossed by the segment (ax, ay)-(bx, by) and
// reports whether any is solid. The walk never extends past the segment, so
// a wall beyond the far endpoint does not block. A nil or malformed grid
// reports blocked.
func (g *ObstacleGrid) Blocked(ax, ay, bx, by float64) bool {
	if g == nil || g.TileSize <= 0 || len(g.solid) != g.Width*g.Height {
		return true
	}

	ts := g.TileSize
	tx := int(math.Floor(ax / ts))
	ty := int(math.Floor(ay / ts))
	endX := int(math.Floor(bx / ts))
	endY := int(math.Floor(by / ts))

	dx := bx - ax
	dy := by - ay

	stepX, stepY := 0, 0
	tMaxX, tMaxY := math.Inf(1), math.Inf(1)
	tDeltaX, tDeltaY := math.Inf(1), math.Inf(1)

	if dx > 0 {
		stepX = 1
		tMaxX = (float64(tx+1)*ts - ax) / dx
		tDeltaX = ts / dx
	} else if dx < 0 {
		stepX = -1
		tMaxX = (float64(tx)*ts - ax) / dx
		tDeltaX = -ts / dx
	}
	if dy > 0 {
		stepY = 1
		tMaxY = (float64(ty+1)*ts - ay) / dy
		tDeltaY = ts / dy
	} else if dy < 0 {
		stepY = -1
		tMaxY = (float64(ty)*ts - ay) / dy
		tDeltaY = -ts / dy
	}

	// Bound the traversal in case of degenerate float input.
	maxSteps := g.Width + g.Height + 2

	for i := 0; i < maxSteps; i++ {
		if g.SolidAtTile(tx, ty) {
			return true
		}
		if tx == endX && ty == endY {
			return false
		}
		if tMaxX < tMaxY {
			if tMaxX > 1 {
				return false
			}
			tx += stepX
			tMaxX += tDeltaX
		} else {
			if tMaxY > 1 {
				return false
			}
			ty += stepY
			tMaxY += tDeltaY
		}
	}
	return true
}
