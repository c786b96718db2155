package handler

import (
	"go.uber.org/zap"

	"github.com/atriumverse/atrium/internal/config"
	"github.com/atriumverse/atrium/internal/data"
	"github.com/atriumverse/atrium/internal/metrics"
	"github.com/atriumverse/atrium/internal/net"
	"github.com/atriumverse/atrium/internal/persist"
	"github.com/atriumverse/atrium/internal/protocol"
	"github.com/atriumverse/atrium/internal/scripting"
	"github.com/atriumverse/atrium/internal/world"
)

// Deps holds shared dependencies injected into all event handlers.
// Sessions maps session id to live connection and is owned by the game loop.
type Deps struct {
	Config        *config.Config
	Log           *zap.Logger
	World         *world.Registry
	Zones         []world.Zone
	Access        *world.AccessTable
	Geo           *world.ObstacleGrid
	SpawnX        float64
	SpawnY        float64
	Interactables *data.InteractableTable
	Scripting     *scripting.Engine
	Sessions      map[string]*net.Session
	Presence      *persist.PresenceWriter
	Metrics       *metrics.Metrics
}

// HandlerFunc processes one inbound event on the game loop goroutine.
type HandlerFunc func(sess *net.Session, env protocol.Envelope, deps *Deps)

// Registry dispatches inbound events by type tag.
type Registry struct {
	handlers map[protocol.EventType]HandlerFunc
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[protocol.EventType]HandlerFunc),
		log:      log,
	}
}

func (r *Registry) Register(t protocol.EventType, fn HandlerFunc) {
	r.handlers[t] = fn
}

// Dispatch routes env to its handler. Unknown types are dropped with a debug
// log, never answered.
func (r *Registry) Dispatch(sess *net.Session, env protocol.Envelope, deps *Deps) {
	fn, ok := r.handlers[env.Type]
	if !ok {
		r.log.Debug("unknown event type",
			zap.String("type", string(env.Type)),
			zap.String("session", sess.ID))
		return
	}
	if deps.Metrics != nil {
		deps.Metrics.EventsTotal.WithLabelValues(string(env.Type)).Inc()
	}
	fn(sess, env, deps)
}

// RegisterAll registers all event handlers into the registry.
func RegisterAll(reg *Registry, deps *Deps) {
	reg.Register(protocol.EvMove, HandleMove)
	reg.Register(protocol.EvNearbyPlayers, HandleNearbyPlayers)
	reg.Register(protocol.EvPlayerReaction, HandleReaction)
	reg.Register(protocol.EvVideoStatus, HandleVideoStatus)
	reg.Register(protocol.EvChat, HandleChat)
	reg.Register(protocol.EvInteract, HandleInteract)
	reg.Register(protocol.EvQuit, HandleQuit)
}
