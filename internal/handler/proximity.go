package handler

import (
	"go.uber.org/zap"

	"github.com/atriumverse/atrium/internal/net"
	"github.com/atriumverse/atrium/internal/protocol"
)

// HandleNearbyPlayers processes a client's own proximity report. The
// server-side resolver is authoritative, so by default the report is only
// logged. With world.trust_client_proximity enabled the legacy behavior is
// restored: the list is echoed straight back as the call trigger.
func HandleNearbyPlayers(sess *net.Session, env protocol.Envelope, deps *Deps) {
	var report protocol.NearbyPlayers
	if err := env.Decode(&report); err != nil {
		deps.Log.Debug("bad nearbyPlayers payload", zap.String("session", sess.ID), zap.Error(err))
		return
	}

	if deps.World.Get(sess.ID) == nil {
		deps.Log.Debug("nearbyPlayers from unknown session", zap.String("session", sess.ID))
		return
	}

	if !deps.Config.World.TrustClientProximity {
		deps.Log.Debug("ignoring client proximity report",
			zap.String("session", sess.ID),
			zap.Int("count", len(report.NearbyPlayers)))
		return
	}

	sess.SendEvent(protocol.EvProximityCalls, protocol.ProximityCalls{
		NearbyPlayers: report.NearbyPlayers,
	})
}
