// Package call owns the media call lifecycle on the client side. The server
// only says who is nearby; whether a call is dialed, kept, drained, or torn
// down is decided here.
package call

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atriumverse/atrium/internal/protocol"
)

// State of one peer call.
type State int

const (
	StateClosed State = iota
	StatePending
	StateActive
	StateDraining
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	default:
		return "closed"
	}
}

// MediaSession is an established media connection to one peer.
type MediaSession interface {
	Close() error
}

// MediaDialer negotiates media with a peer. Implementations wrap the real
// media stack; tests use fakes.
type MediaDialer interface {
	Dial(peerID string) (MediaSession, error)
}

type callEntry struct {
	state State
	media MediaSession
	timer *time.Timer
}

// Manager tracks one call per peer and applies proximity updates to them.
// A peer leaving the proximity list does not tear the call down immediately:
// the call drains for a grace period first, and a rebind within it keeps the
// media session untouched. Timer callbacks run on timer goroutines, hence
// the lock.
type Manager struct {
	mu     sync.Mutex
	dialer MediaDialer
	grace  time.Duration
	calls  map[string]*callEntry
	log    *zap.Logger
}

func NewManager(dialer MediaDialer, grace time.Duration, log *zap.Logger) *Manager {
	return &Manager{
		dialer: dialer,
		grace:  grace,
		calls:  make(map[string]*callEntry),
		log:    log,
	}
}

// HandleProximityUpdate reconciles the call table against the latest peer
// list. Present peers are dialed or kept; absent peers start draining.
func (m *Manager) HandleProximityUpdate(peers []protocol.NearbyPlayer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	present := make(map[string]struct{}, len(peers))
	for _, p := range peers {
		present[p.ID] = struct{}{}
		m.bindLocked(p.ID)
	}

	for peerID, entry := range m.calls {
		if _, ok := present[peerID]; ok {
			continue
		}
		if entry.state == StateActive {
			m.drainLocked(peerID, entry)
		}
	}
}

// bindLocked ensures an active call to peerID exists.
func (m *Manager) bindLocked(peerID string) {
	entry, ok := m.calls[peerID]
	if ok {
		switch entry.state {
		case StateActive:
			return // repeat update, no-op
		case StateDraining:
			// Rebind within the grace period: cancel teardown, keep media.
			entry.timer.Stop()
			entry.timer = nil
			entry.state = StateActive
			m.log.Debug("call rebound within grace", zap.String("peer", peerID))
			return
		}
	}

	entry = &callEntry{state: StatePending}
	m.calls[peerID] = entry

	media, err := m.dialer.Dial(peerID)
	if err != nil {
		// No retry storm: the entry disappears and the next proximity
		// update, at resolver cadence, dials again.
		delete(m.calls, peerID)
		m.log.Warn("media negotiation failed", zap.String("peer", peerID), zap.Error(err))
		return
	}
	entry.media = media
	entry.state = StateActive
	m.log.Debug("call established", zap.String("peer", peerID))
}

// drainLocked moves an active call into the grace window.
func (m *Manager) drainLocked(peerID string, entry *callEntry) {
	entry.state = StateDraining
	entry.timer = time.AfterFunc(m.grace, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		current, ok := m.calls[peerID]
		if !ok || current.state != StateDraining {
			return // rebound or closed while the timer fired
		}
		m.closeLocked(peerID, current)
		m.log.Debug("call drained", zap.String("peer", peerID))
	})
}

// HandleLeave tears down the call to a departed peer immediately. Leave is
// an explicit signal, so no grace applies.
func (m *Manager) HandleLeave(peerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.calls[peerID]
	if !ok {
		return
	}
	m.closeLocked(peerID, entry)
	m.log.Debug("call closed on leave", zap.String("peer", peerID))
}

// Close tears down every call and cancels every grace timer. Used on
// disconnect so no timers or media sessions outlive the client.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for peerID, entry := range m.calls {
		m.closeLocked(peerID, entry)
	}
}

func (m *Manager) closeLocked(peerID string, entry *callEntry) {
	if entry.timer != nil {
		entry.timer.Stop()
		entry.timer = nil
	}
	if entry.media != nil {
		if err := entry.media.Close(); err != nil {
			m.log.Warn("media close failed", zap.String("peer", peerID), zap.Error(err))
		}
	}
	delete(m.calls, peerID)
}

// StateOf reports the call state for a peer. Unknown peers are Closed.
func (m *Manager) StateOf(peerID string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.calls[peerID]
	if !ok {
		return StateClosed
	}
	return entry.state
}

// Count returns the number of live (active or draining) calls.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
