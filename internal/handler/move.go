package handler

import (
	"go.uber.org/zap"

	"github.com/atriumverse/atrium/internal/net"
	"github.com/atriumverse/atrium/internal/protocol"
	"github.com/atriumverse/atrium/internal/world"
)

// HandleMove processes a position report. The client is authoritative over
// its own position (trust-the-client): the server records what it is told
// and never sends a correction. Zone rules are mirrored server-side only to
// echo an accessDenied notice; the client enforces the push-back itself.
func HandleMove(sess *net.Session, env protocol.Envelope, deps *Deps) {
	var m protocol.Move
	if err := env.Decode(&m); err != nil {
		deps.Log.Debug("bad move payload", zap.String("session", sess.ID), zap.Error(err))
		return
	}

	p := deps.World.Get(sess.ID)
	if p == nil {
		deps.Log.Debug("move from unknown session", zap.String("session", sess.ID))
		return
	}

	deps.World.UpdatePosition(sess.ID, m.X, m.Y, m.Anim)

	if d := world.CheckAccess(m.X, m.Y, p.Role, deps.Zones, deps.Access); !d.Allowed && d.Zone != nil {
		sess.SendEvent(protocol.EvAccessDenied, protocol.AccessDenied{
			ZoneID: d.Zone.ID,
			Name:   d.Zone.Name,
		})
	}

	broadcast(deps, sess.ID, protocol.EvPlayerMoved, protocol.PlayerMoved{
		ID:   sess.ID,
		Pos:  protocol.Pos{X: m.X, Y: m.Y},
		Anim: m.Anim,
	})
}
