package world

import (
	"math"
	"testing"
)

func snapOf(players ...Player) Snapshot {
	m := make(map[string]Player, len(players))
	grid := NewGrid(150)
	for _, p := range players {
		m[p.ID] = p
		grid.Add(p.ID, p.X, p.Y)
	}
	return Snapshot{Players: m, Grid: grid}
}

func TestResolveInclusiveBoundary(t *testing.T) {
	tests := []struct {
		name string
		bx   float64
		want int
	}{
		{"well inside", 100, 1},
		{"exactly at radius", 150, 1},
		{"just outside", 150.001, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Resolver{Radius: 150}
			snap := snapOf(
				Player{ID: "a", X: 0, Y: 0},
				Player{ID: "b", X: tt.bx, Y: 0},
			)
			edges := r.Resolve(snap)
			if len(edges) != tt.want {
				t.Fatalf("got %d edges, want %d", len(edges), tt.want)
			}
			if tt.want == 1 && math.Abs(edges[0].Distance-tt.bx) > 1e-9 {
				t.Fatalf("distance = %v, want %v", edges[0].Distance, tt.bx)
			}
		})
	}
}

func TestResolveSymmetricSingleEdge(t *testing.T) {
	r := Resolver{Radius: 150}
	snap := snapOf(
		Player{ID: "b", X: 0, Y: 0},
		Player{ID: "a", X: 50, Y: 50},
	)
	edges := r.Resolve(snap)
	if len(edges) != 1 {
		t.Fatalf("got %d edges, want 1", len(edges))
	}
	if edges[0].A != "a" || edges[0].B != "b" {
		t.Fatalf("edge not normalized: %+v", edges[0])
	}
}

func TestResolveAcrossCellBoundary(t *testing.T) {
	// Neighbors in adjacent grid cells must still pair up.
	r := Resolver{Radius: 150}
	snap := snapOf(
		Player{ID: "a", X: 149, Y: 0},
		Player{ID: "b", X: 151, Y: 0},
	)
	if edges := r.Resolve(snap); len(edges) != 1 {
		t.Fatalf("cross-cell pair missed: %v", edges)
	}
}

func TestResolveEuclideanNotChebyshev(t *testing.T) {
	// dx and dy both under the radius but the diagonal over it.
	r := Resolver{Radius: 150}
	snap := snapOf(
		Player{ID: "a", X: 0, Y: 0},
		Player{ID: "b", X: 120, Y: 120},
	)
	if edges := r.Resolve(snap); len(edges) != 0 {
		t.Fatalf("diagonal pair at ~169.7 px should not match: %v", edges)
	}
}

func TestResolveLOSWallBlocks(t *testing.T) {
	// 10x3 tile map, 32 px tiles, vertical wall at tile column 5.
	solid := make([]bool, 10*3)
	for ty := 0; ty < 3; ty++ {
		solid[ty*10+5] = true
	}
	geo := NewObstacleGrid(10, 3, 32, solid)

	a := Player{ID: "a", X: 3 * 32, Y: 48}
	b := Player{ID: "b", X: 7 * 32, Y: 48}

	blocked := Resolver{Radius: 150, LOS: true, Geo: geo}
	if edges := blocked.Resolve(snapOf(a, b)); len(edges) != 0 {
		t.Fatalf("wall between pair should block: %v", edges)
	}

	open := Resolver{Radius: 150, LOS: false, Geo: geo}
	if edges := open.Resolve(snapOf(a, b)); len(edges) != 1 {
		t.Fatalf("with LOS off the pair should match: %v", edges)
	}
}

func TestResolveLOSFailsClosedWithoutGeometry(t *testing.T) {
	r := Resolver{Radius: 150, LOS: true, Geo: nil}
	snap := snapOf(
		Player{ID: "a", X: 0, Y: 0},
		Player{ID: "b", X: 10, Y: 0},
	)
	if edges := r.Resolve(snap); len(edges) != 0 {
		t.Fatalf("missing geometry must suppress edges, got %v", edges)
	}
}

func TestResolveDoesNotMutateSnapshot(t *testing.T) {
	r := Resolver{Radius: 150}
	snap := snapOf(
		Player{ID: "a", X: 0, Y: 0},
		Player{ID: "b", X: 10, Y: 0},
	)
	first := r.Resolve(snap)
	second := r.Resolve(snap)
	if len(first) != len(second) {
		t.Fatalf("resolver not stable: %v vs %v", first, second)
	}
	if p := snap.Players["a"]; p.X != 0 || p.Y != 0 {
		t.Fatalf("snapshot mutated: %+v", p)
	}
}

func TestPeersOf(t *testing.T) {
	players := map[string]Player{
		"a": {ID: "a", Username: "ada", X: 0, Y: 0},
		"b": {ID: "b", Username: "grace", X: 100, Y: 0},
		"c": {ID: "c", Username: "joan", X: 0, Y: 50},
	}
	edges := []Edge{
		{A: "a", B: "b", Distance: 100},
		{A: "a", B: "c", Distance: 50},
	}

	peers := PeersOf(edges, players, "a")
	if len(peers) != 2 {
		t.Fatalf("got %d peers, want 2", len(peers))
	}
	if peers[0].ID != "c" || peers[1].ID != "b" {
		t.Fatalf("peers not sorted by distance: %+v", peers)
	}
	if peers[1].Username != "grace" {
		t.Fatalf("peer fields not projected: %+v", peers[1])
	}

	if got := PeersOf(edges, players, "b"); len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("reverse direction peers wrong: %+v", got)
	}
	if got := PeersOf(edges, players, "zz"); len(got) != 0 {
		t.Fatalf("unrelated session got peers: %+v", got)
	}
}
