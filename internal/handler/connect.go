package handler

import (
	"go.uber.org/zap"

	"github.com/atriumverse/atrium/internal/net"
	"github.com/atriumverse/atrium/internal/protocol"
	"github.com/atriumverse/atrium/internal/world"
)

// HandleConnect joins a freshly upgraded session into the world. The private
// welcome, rules, and snapshot frames are buffered before the playerJoined
// broadcast, so the joiner always sees the snapshot before any movement
// events from those sessions.
func HandleConnect(sess *net.Session, deps *Deps) {
	p := deps.World.Join(world.Player{
		ID:       sess.ID,
		UserID:   sess.Identity.UserID,
		Username: sess.Identity.Username,
		Role:     world.Role(sess.Identity.Role),
		X:        deps.SpawnX,
		Y:        deps.SpawnY,
		Anim:     "idle",
	})
	deps.Sessions[sess.ID] = sess

	if deps.Presence != nil {
		deps.Presence.SetOnline(p.UserID, true)
	}
	if deps.Metrics != nil {
		deps.Metrics.SessionsOnline.Set(float64(deps.World.Count()))
	}

	sess.SendEvent(protocol.EvWelcome, protocol.Welcome{
		ID:       p.ID,
		Username: p.Username,
		Role:     string(p.Role),
		X:        p.X,
		Y:        p.Y,
	})
	sess.SendEvent(protocol.EvGameRules, protocol.GameRules{RoomAccess: accessRules(deps)})

	snap := deps.World.Snapshot()
	players := make(protocol.Players, len(snap.Players))
	for id, other := range snap.Players {
		players[id] = protocol.PlayerState{
			Username: other.Username,
			Role:     string(other.Role),
			X:        other.X,
			Y:        other.Y,
			Anim:     other.Anim,
			VideoOn:  other.VideoOn,
		}
	}
	sess.SendEvent(protocol.EvPlayers, players)

	broadcast(deps, sess.ID, protocol.EvPlayerJoined, protocol.PlayerJoined{
		ID:       p.ID,
		Username: p.Username,
		Role:     string(p.Role),
		X:        p.X,
		Y:        p.Y,
		Anim:     p.Anim,
	})

	deps.Log.Info("player joined",
		zap.String("session", sess.ID),
		zap.String("username", p.Username),
		zap.String("role", string(p.Role)))
}

// HandleDisconnect removes a session from the world. Both the transport
// error path and an explicit quit funnel here; the second call finds nothing
// and stays silent.
func HandleDisconnect(sessionID string, deps *Deps) {
	delete(deps.Sessions, sessionID)

	p := deps.World.Leave(sessionID)
	if p == nil {
		deps.Log.Debug("disconnect for unknown session", zap.String("session", sessionID))
		return
	}

	if deps.Presence != nil {
		deps.Presence.SetOnline(p.UserID, false)
	}
	if deps.Metrics != nil {
		deps.Metrics.SessionsOnline.Set(float64(deps.World.Count()))
	}

	broadcast(deps, sessionID, protocol.EvPlayerLeft, sessionID)

	deps.Log.Info("player left",
		zap.String("session", sessionID),
		zap.String("username", p.Username))
}

func accessRules(deps *Deps) map[string][]string {
	rules := make(map[string][]string, len(deps.Zones))
	for _, z := range deps.Zones {
		roles := deps.Access.AllowedRoles(z.ID)
		out := make([]string, len(roles))
		for i, r := range roles {
			out[i] = string(r)
		}
		rules[z.ID] = out
	}
	return rules
}
