package system

import (
	"time"

	coresys "github.com/atriumverse/atrium/internal/core/system"
	"github.com/atriumverse/atrium/internal/handler"
	"github.com/atriumverse/atrium/internal/protocol"
	"github.com/atriumverse/atrium/internal/world"
)

// ProximitySystem runs the resolver at its own cadence (1 Hz by default),
// decoupled from the movement rate, and sends every session its private edge
// list. An empty list still goes out so receivers can start draining calls
// that fell out of range. Phase 1 (Update).
type ProximitySystem struct {
	deps     *handler.Deps
	resolver world.Resolver
	interval time.Duration
	acc      time.Duration
}

func NewProximitySystem(deps *handler.Deps, resolver world.Resolver, interval time.Duration) *ProximitySystem {
	return &ProximitySystem{
		deps:     deps,
		resolver: resolver,
		interval: interval,
	}
}

func (s *ProximitySystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *ProximitySystem) Update(dt time.Duration) {
	s.acc += dt
	if s.acc < s.interval {
		return
	}
	s.acc = 0

	start := time.Now()
	snap := s.deps.World.Snapshot()
	edges := s.resolver.Resolve(snap)
	if s.deps.Metrics != nil {
		s.deps.Metrics.ResolverDuration.Observe(time.Since(start).Seconds())
	}

	for id, sess := range s.deps.Sessions {
		peers := world.PeersOf(edges, snap.Players, id)
		out := make([]protocol.NearbyPlayer, len(peers))
		for i, p := range peers {
			out[i] = protocol.NearbyPlayer{
				ID:       p.ID,
				Username: p.Username,
				X:        p.X,
				Y:        p.Y,
				Distance: p.Distance,
			}
		}
		sess.SendEvent(protocol.EvProximityCalls, protocol.ProximityCalls{NearbyPlayers: out})
	}
}
