package handler

import (
	"go.uber.org/zap"

	"github.com/atriumverse/atrium/internal/protocol"
)

// broadcast buffers one event on every connected session except exceptID.
// Pass "" to reach everyone. Runs on the game loop; frames go out when
// OutputSystem flushes.
func broadcast(deps *Deps, exceptID string, t protocol.EventType, v any) {
	data, err := protocol.Marshal(t, v)
	if err != nil {
		deps.Log.Error("encode broadcast", zap.String("type", string(t)), zap.Error(err))
		return
	}
	for id, sess := range deps.Sessions {
		if id == exceptID {
			continue
		}
		sess.Send(data)
	}
}
