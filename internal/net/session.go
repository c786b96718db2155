package net

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/atriumverse/atrium/internal/protocol"
)

// Identity is the verified auth claim set bound to a connection.
type Identity struct {
	UserID   string
	Username string
	Role     string
}

// Session represents a single websocket connection. Network I/O runs in
// dedicated goroutines; game state is accessed only from the game loop.
type Session struct {
	ID       string
	Identity Identity
	conn     *websocket.Conn

	InQueue  chan protocol.Envelope // game loop reads events from here
	OutQueue chan []byte            // writer goroutine reads from here

	IP string

	outBuf [][]byte // buffered frames, flushed by OutputSystem (game loop only)

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	onDead    func(id string)

	// Per-second event rate limiter (readLoop goroutine only, no lock needed)
	evtPerSec  int
	evtCount   int
	evtResetAt int64

	writeTimeout time.Duration
	pongTimeout  time.Duration
	maxMsgBytes  int64

	log *zap.Logger
}

func NewSession(conn *websocket.Conn, id string, ident Identity, opts SessionOptions, log *zap.Logger) *Session {
	return &Session{
		ID:           id,
		Identity:     ident,
		conn:         conn,
		InQueue:      make(chan protocol.Envelope, opts.InQueueSize),
		OutQueue:     make(chan []byte, opts.OutQueueSize),
		IP:           conn.RemoteAddr().String(),
		closeCh:      make(chan struct{}),
		onDead:       opts.OnDead,
		evtPerSec:    opts.EventsPerSecond,
		writeTimeout: opts.WriteTimeout,
		pongTimeout:  opts.PongTimeout,
		maxMsgBytes:  opts.MaxMessageBytes,
		log:          log.With(zap.String("session", id)),
	}
}

// SessionOptions carries per-connection tuning from config.
type SessionOptions struct {
	InQueueSize     int
	OutQueueSize    int
	EventsPerSecond int
	WriteTimeout    time.Duration
	PongTimeout     time.Duration
	MaxMessageBytes int64
	OnDead          func(id string)
}

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Send buffers a frame for sending. Nothing is written to the socket until
// FlushOutput runs at the end of the tick.
// Called only from the game loop goroutine — no lock needed on outBuf.
func (s *Session) Send(data []byte) {
	if s.closed.Load() {
		return
	}
	s.outBuf = append(s.outBuf, data)
}

// SendEvent marshals and buffers one event. Encoding failures are logged and
// dropped; the schema is closed so they indicate a programming error.
func (s *Session) SendEvent(t protocol.EventType, v any) {
	data, err := protocol.Marshal(t, v)
	if err != nil {
		s.log.Error("encode event", zap.String("type", string(t)), zap.Error(err))
		return
	}
	s.Send(data)
}

// FlushOutput drains the output buffer to OutQueue for the writeLoop
// goroutine. Non-blocking: if OutQueue is full, the session is disconnected
// (backpressure).
func (s *Session) FlushOutput() {
	for _, data := range s.outBuf {
		select {
		case s.OutQueue <- data:
		default:
			s.log.Warn("output queue full, dropping slow connection")
			s.Close()
			s.outBuf = s.outBuf[:0]
			return
		}
	}
	s.outBuf = s.outBuf[:0]
}

// Close shuts the session down and reports it dead exactly once. Safe to
// call from any goroutine and from both the transport-error and explicit
// quit paths.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		s.conn.Close()
		if s.onDead != nil {
			s.onDead(s.ID)
		}
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// readLoop reads frames from the websocket, decodes the envelope, and pushes
// events onto InQueue for the game loop to consume.
func (s *Session) readLoop() {
	defer s.Close()

	if s.maxMsgBytes > 0 {
		s.conn.SetReadLimit(s.maxMsgBytes)
	}
	s.conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}

		// Per-second event rate limiter
		if s.evtPerSec > 0 {
			now := time.Now().Unix()
			if now != s.evtResetAt {
				s.evtCount = 0
				s.evtResetAt = now
			}
			s.evtCount++
			if s.evtCount > s.evtPerSec {
				s.log.Warn("event rate exceeded, dropping connection", zap.Int("eps", s.evtCount))
				return
			}
		}

		env, err := protocol.Unmarshal(data)
		if err != nil {
			s.log.Debug("bad frame", zap.Error(err))
			continue
		}

		// Block until InQueue has space or the session closes. Dropping move
		// events would desync the emission throttle on the client, and the
		// readLoop goroutine is per-session, so blocking only stalls this
		// client.
		select {
		case s.InQueue <- env:
		case <-s.closeCh:
			return
		}
	}
}

// writeLoop reads frames from OutQueue and writes them to the websocket,
// interleaving keepalive pings.
func (s *Session) writeLoop() {
	defer s.Close()

	pingPeriod := s.pongTimeout * 9 / 10
	if pingPeriod <= 0 {
		pingPeriod = 30 * time.Second
	}
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data := <-s.OutQueue:
			if !s.writeOneFrame(data) {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.closeCh:
			s.conn.SetWriteDeadline(time.Now().Add(time.Second))
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (s *Session) writeOneFrame(data []byte) bool {
	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		if !s.closed.Load() {
			s.log.Debug("write error", zap.Error(err))
		}
		return false
	}
	return true
}
