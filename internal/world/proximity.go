package world

import (
	"math"
	"sort"
)

// Edge is one proximate pair. A is always the lexically smaller session id,
// so the edge set is symmetric by construction.
type Edge struct {
	A, B     string
	Distance float64
}

// Peer is one entry in a per-session proximity report.
type Peer struct {
	ID       string
	Username string
	X, Y     float64
	Distance float64
}

// Resolver computes proximity edges from a registry snapshot. It mutates
// nothing: the same snapshot always yields the same edge set.
type Resolver struct {
	Radius float64
	LOS    bool
	Geo    *ObstacleGrid
}

// Resolve returns every pair of players within Radius of each other. The
// boundary is inclusive. With LOS enabled a pair is dropped when the sight
// segment between them crosses a wall; sight is only tested out to the pair
// distance, so geometry past either player is irrelevant. Edges come back
// sorted by (A, B).
func (r Resolver) Resolve(snap Snapshot) []Edge {
	grid := snap.Grid
	if grid == nil {
		grid = NewGrid(r.Radius)
		for id, p := range snap.Players {
			grid.Add(id, p.X, p.Y)
		}
	}

	r2 := r.Radius * r.Radius
	var edges []Edge
	for id, p := range snap.Players {
		for _, otherID := range grid.Nearby(p.X, p.Y, id) {
			if otherID <= id {
				continue // each unordered pair once
			}
			other, ok := snap.Players[otherID]
			if !ok {
				continue
			}
			dx := other.X - p.X
			dy := other.Y - p.Y
			d2 := dx*dx + dy*dy
			if d2 > r2 {
				continue
			}
			if r.LOS && r.Geo.Blocked(p.X, p.Y, other.X, other.Y) {
				continue
			}
			edges = append(edges, Edge{A: id, B: otherID, Distance: math.Sqrt(d2)})
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].A != edges[j].A {
			return edges[i].A < edges[j].A
		}
		return edges[i].B < edges[j].B
	})
	return edges
}

// PeersOf projects the edges touching id into that session's report, sorted
// by distance then id.
func PeersOf(edges []Edge, players map[string]Player, id string) []Peer {
	var peers []Peer
	for _, e := range edges {
		var otherID string
		switch id {
		case e.A:
			otherID = e.B
		case e.B:
			otherID = e.A
		default:
			continue
		}
		other, ok := players[otherID]
		if !ok {
			continue
		}
		peers = append(peers, Peer{
			ID:       otherID,
			Username: other.Username,
			X:        other.X,
			Y:        other.Y,
			Distance: e.Distance,
		})
	}
	sort.Slice(peers, func(i, j int) bool {
		if peers[i].Distance != peers[j].Distance {
			return peers[i].Distance < peers[j].Distance
		}
		return peers[i].ID < peers[j].ID
	})
	return peers
}
