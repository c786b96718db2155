package net

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/atriumverse/atrium/internal/config"
)

// TokenVerifier validates a presence token and returns the identity it
// carries.
type TokenVerifier func(token string) (Identity, error)

// Server upgrades websocket connections into Sessions. New and dead sessions
// are communicated to the game loop via channels.
type Server struct {
	upgrader websocket.Upgrader
	cfg      config.NetworkConfig
	verify   TokenVerifier
	newConns chan *Session
	deadCh   chan string // session ids of dead sessions
	log      *zap.Logger
}

func NewServer(cfg config.NetworkConfig, verify TokenVerifier, log *zap.Logger) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The REST boundary handles CORS; the upgrade itself is gated by
			// the token check below.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		cfg:      cfg,
		verify:   verify,
		newConns: make(chan *Session, 64),
		deadCh:   make(chan string, 64),
		log:      log,
	}
}

// HandleWS is the /ws endpoint. The presence token rides the query string
// because browser websocket clients cannot set headers.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	ident, err := s.verify(token)
	if err != nil {
		s.log.Debug("rejected ws token", zap.Error(err))
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("upgrade failed", zap.Error(err))
		return
	}

	id := uuid.NewString()
	sess := NewSession(conn, id, ident, SessionOptions{
		InQueueSize:     s.cfg.InQueueSize,
		OutQueueSize:    s.cfg.OutQueueSize,
		EventsPerSecond: s.cfg.EventsPerSecond,
		WriteTimeout:    s.cfg.WriteTimeout,
		PongTimeout:     s.cfg.PongTimeout,
		MaxMessageBytes: s.cfg.MaxMessageBytes,
		OnDead:          s.NotifyDead,
	}, s.log)
	sess.Start()

	s.log.Info("player connected",
		zap.String("session", id),
		zap.String("username", ident.Username),
		zap.String("ip", sess.IP))

	select {
	case s.newConns <- sess:
	default:
		s.log.Warn("connection queue full, rejecting session")
		sess.Close()
	}
}

// NewSessions returns the channel of newly connected sessions.
func (s *Server) NewSessions() <-chan *Session {
	return s.newConns
}

// NotifyDead reports a dead session id to the game loop.
func (s *Server) NotifyDead(sessionID string) {
	select {
	case s.deadCh <- sessionID:
	default:
	}
}

// DeadSessions returns the channel of dead session ids.
func (s *Server) DeadSessions() <-chan string {
	return s.deadCh
}
