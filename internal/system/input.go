package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/atriumverse/atrium/internal/core/system"
	"github.com/atriumverse/atrium/internal/handler"
	"github.com/atriumverse/atrium/internal/net"
)

// InputSystem drains the connection and event queues and dispatches events
// through the handler registry. Phase 0 (Input).
type InputSystem struct {
	netServer  *net.Server
	registry   *handler.Registry
	deps       *handler.Deps
	maxPerTick int
	log        *zap.Logger
}

func NewInputSystem(netServer *net.Server, registry *handler.Registry, deps *handler.Deps, maxPerTick int, log *zap.Logger) *InputSystem {
	return &InputSystem{
		netServer:  netServer,
		registry:   registry,
		deps:       deps,
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	// Accept new sessions
	for {
		select {
		case sess := <-s.netServer.NewSessions():
			handler.HandleConnect(sess, s.deps)
		default:
			goto doneNew
		}
	}
doneNew:

	// Process dead sessions
	for {
		select {
		case id := <-s.netServer.DeadSessions():
			handler.HandleDisconnect(id, s.deps)
		default:
			goto doneDead
		}
	}
doneDead:

	// Drain events from each session (up to maxPerTick per session)
	for id, sess := range s.deps.Sessions {
		if sess.IsClosed() {
			// The dead notification may still be in flight; clean up now so
			// no frame is built for a gone connection.
			handler.HandleDisconnect(id, s.deps)
			continue
		}
		s.drainSession(sess)
	}
}

func (s *InputSystem) drainSession(sess *net.Session) {
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case env := <-sess.InQueue:
			s.registry.Dispatch(sess, env, s.deps)
		default:
			return
		}
	}
}
