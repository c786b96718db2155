package handler

import (
	"go.uber.org/zap"

	"github.com/atriumverse/atrium/internal/net"
	"github.com/atriumverse/atrium/internal/protocol"
	"github.com/atriumverse/atrium/internal/scripting"
)

// HandleInteract runs the Lua hook of an interactable object (chairs,
// computers, boards). The hook decides whether the interaction is accepted
// and which animation the client should lock into.
func HandleInteract(sess *net.Session, env protocol.Envelope, deps *Deps) {
	var in protocol.Interact
	if err := env.Decode(&in); err != nil {
		deps.Log.Debug("bad interact payload", zap.String("session", sess.ID), zap.Error(err))
		return
	}
	p := deps.World.Get(sess.ID)
	if p == nil {
		return
	}

	obj := deps.Interactables.Get(in.ObjectID)
	if obj == nil {
		deps.Log.Debug("interact with unknown object",
			zap.String("session", sess.ID),
			zap.String("object", in.ObjectID))
		return
	}

	if deps.Scripting == nil {
		return
	}
	res := deps.Scripting.OnInteract(scripting.InteractContext{
		ObjectID: obj.ID,
		Type:     obj.Type,
		Name:     obj.Name,
		Username: p.Username,
		Role:     string(p.Role),
		X:        p.X,
		Y:        p.Y,
	})
	if !res.Accept {
		return
	}

	sess.SendEvent(protocol.EvInteract, protocol.Interact{
		ObjectID: obj.ID,
		Result:   res.Anim,
	})

	// Sitting and similar poses are visible to everyone.
	if res.Anim != "" {
		deps.World.UpdatePosition(sess.ID, p.X, p.Y, res.Anim)
		broadcast(deps, sess.ID, protocol.EvPlayerMoved, protocol.PlayerMoved{
			ID:   sess.ID,
			Pos:  protocol.Pos{X: p.X, Y: p.Y},
			Anim: res.Anim,
		})
	}
}
