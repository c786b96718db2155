package handler

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/atriumverse/atrium/internal/net"
	"github.com/atriumverse/atrium/internal/protocol"
)

const maxChatLen = 500

// HandleReaction relays an emoji reaction to everyone, sender included, so
// the sender's own HUD animates from the same event all other clients see.
func HandleReaction(sess *net.Session, env protocol.Envelope, deps *Deps) {
	var r protocol.PlayerReaction
	if err := env.Decode(&r); err != nil {
		deps.Log.Debug("bad reaction payload", zap.String("session", sess.ID), zap.Error(err))
		return
	}
	if deps.World.Get(sess.ID) == nil {
		return
	}
	if r.Emoji == "" {
		return
	}

	broadcast(deps, "", protocol.EvPlayerReaction, protocol.PlayerReaction{
		ID:    sess.ID,
		Emoji: r.Emoji,
	})
}

// HandleVideoStatus records camera state on the presence record and relays
// it, stamped with the sender id. The inbound payload is a bare boolean.
func HandleVideoStatus(sess *net.Session, env protocol.Envelope, deps *Deps) {
	var enabled bool
	if err := env.Decode(&enabled); err != nil {
		deps.Log.Debug("bad videoStatus payload", zap.String("session", sess.ID), zap.Error(err))
		return
	}
	if !deps.World.SetVideo(sess.ID, enabled) {
		return
	}

	broadcast(deps, sess.ID, protocol.EvVideoStatus, protocol.VideoStatus{
		ID:      sess.ID,
		Enabled: enabled,
	})
}

// HandleChat relays a world chat line stamped with the sender's identity.
func HandleChat(sess *net.Session, env protocol.Envelope, deps *Deps) {
	var c protocol.Chat
	if err := env.Decode(&c); err != nil {
		deps.Log.Debug("bad chat payload", zap.String("session", sess.ID), zap.Error(err))
		return
	}
	p := deps.World.Get(sess.ID)
	if p == nil {
		return
	}

	text := clampChat(strings.TrimSpace(c.Text))
	if text == "" {
		return
	}

	broadcast(deps, "", protocol.EvChat, protocol.Chat{
		ID:       sess.ID,
		Username: p.Username,
		Text:     text,
	})
}

// clampChat caps a chat line at maxChatLen bytes, backing the cut onto a
// rune boundary so the broadcast stays valid UTF-8.
func clampChat(text string) string {
	if len(text) <= maxChatLen {
		return text
	}
	cut := maxChatLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// HandleQuit is the explicit leave. The world removal happens here so the
// departure broadcast is not delayed by transport teardown; the later
// transport close then finds nothing to remove.
func HandleQuit(sess *net.Session, env protocol.Envelope, deps *Deps) {
	HandleDisconnect(sess.ID, deps)
	sess.Close()
}
