package world

import "testing"

// office returns a 10x10 tile grid (32 px tiles) with a vertical wall at
// column 5 spanning rows 0-4.
func office() *ObstacleGrid {
	solid := make([]bool, 10*10)
	for ty := 0; ty <= 4; ty++ {
		solid[ty*10+5] = true
	}
	return NewObstacleGrid(10, 10, 32, solid)
}

func TestBlocked(t *testing.T) {
	g := office()
	tests := []struct {
		name           string
		ax, ay, bx, by float64
		want           bool
	}{
		{"clear horizontal", 32, 288, 288, 288, false},
		{"through wall", 32, 64, 288, 64, true},
		{"around wall below", 32, 200, 288, 200, false},
		{"diagonal through wall", 64, 32, 256, 128, true},
		{"same tile", 40, 40, 50, 50, false},
		{"stops at endpoint before wall", 32, 64, 128, 64, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.Blocked(tt.ax, tt.ay, tt.bx, tt.by); got != tt.want {
				t.Fatalf("Blocked(%v,%v -> %v,%v) = %v, want %v",
					tt.ax, tt.ay, tt.bx, tt.by, got, tt.want)
			}
		})
	}
}

func TestBlockedFailsClosed(t *testing.T) {
	var g *ObstacleGrid
	if !g.Blocked(0, 0, 10, 10) {
		t.Fatal("nil grid must report blocked")
	}

	bad := &ObstacleGrid{TileSize: 32, Width: 10, Height: 10, solid: make([]bool, 3)}
	if !bad.Blocked(0, 0, 10, 10) {
		t.Fatal("malformed grid must report blocked")
	}
}

func TestBlockedOutOfBounds(t *testing.T) {
	g := office()
	if !g.Blocked(-100, -100, -50, -50) {
		t.Fatal("segments outside the map must report blocked")
	}
}

func TestNewObstacleGridRejectsBadDimensions(t *testing.T) {
	if g := NewObstacleGrid(10, 10, 32, make([]bool, 5)); g != nil {
		t.Fatal("mismatched solid length must yield nil grid")
	}
	if g := NewObstacleGrid(0, 10, 32, nil); g != nil {
		t.Fatal("zero width must yield nil grid")
	}
}
