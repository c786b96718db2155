package call

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/atriumverse/atrium/internal/protocol"
)

// fakeDialer counts dials and closes, optionally failing the next dial.
type fakeDialer struct {
	mu       sync.Mutex
	dials    int
	closes   int
	failNext bool
}

type fakeSession struct {
	d *fakeDialer
}

func (s *fakeSession) Close() error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.closes++
	return nil
}

func (d *fakeDialer) Dial(peerID string) (MediaSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failNext {
		d.failNext = false
		return nil, errors.New("negotiation failed")
	}
	d.dials++
	return &fakeSession{d: d}, nil
}

func (d *fakeDialer) counts() (dials, closes int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials, d.closes
}

func peers(ids ...string) []protocol.NearbyPlayer {
	out := make([]protocol.NearbyPlayer, len(ids))
	for i, id := range ids {
		out[i] = protocol.NearbyPlayer{ID: id}
	}
	return out
}

func TestDialOnFirstSight(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(d, time.Second, zap.NewNop())

	m.HandleProximityUpdate(peers("p1"))
	if st := m.StateOf("p1"); st != StateActive {
		t.Fatalf("state = %v, want active", st)
	}
	if dials, _ := d.counts(); dials != 1 {
		t.Fatalf("dials = %d, want 1", dials)
	}
}

func TestRepeatUpdateIsNoop(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(d, time.Second, zap.NewNop())

	m.HandleProximityUpdate(peers("p1"))
	m.HandleProximityUpdate(peers("p1"))
	m.HandleProximityUpdate(peers("p1"))

	if dials, closes := d.counts(); dials != 1 || closes != 0 {
		t.Fatalf("dials = %d closes = %d, want 1 and 0", dials, closes)
	}
}

func TestDrainThenClose(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(d, 20*time.Millisecond, zap.NewNop())

	m.HandleProximityUpdate(peers("p1"))
	m.HandleProximityUpdate(peers())

	if st := m.StateOf("p1"); st != StateDraining {
		t.Fatalf("state after removal = %v, want draining", st)
	}
	if _, closes := d.counts(); closes != 0 {
		t.Fatal("media closed before grace expired")
	}

	time.Sleep(60 * time.Millisecond)

	if st := m.StateOf("p1"); st != StateClosed {
		t.Fatalf("state after grace = %v, want closed", st)
	}
	if _, closes := d.counts(); closes != 1 {
		t.Fatalf("closes = %d, want 1", closes)
	}
}

func TestRebindWithinGraceKeepsMedia(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(d, 80*time.Millisecond, zap.NewNop())

	m.HandleProximityUpdate(peers("p1"))
	m.HandleProximityUpdate(peers())
	if st := m.StateOf("p1"); st != StateDraining {
		t.Fatalf("state = %v, want draining", st)
	}

	time.Sleep(10 * time.Millisecond)
	m.HandleProximityUpdate(peers("p1"))

	if st := m.StateOf("p1"); st != StateActive {
		t.Fatalf("state after rebind = %v, want active", st)
	}

	// Well past the original grace deadline: the cancelled timer must not
	// have torn anything down.
	time.Sleep(120 * time.Millisecond)
	if st := m.StateOf("p1"); st != StateActive {
		t.Fatalf("state after old deadline = %v, want active", st)
	}
	if dials, closes := d.counts(); dials != 1 || closes != 0 {
		t.Fatalf("dials = %d closes = %d, want 1 and 0 (no re-dial, no teardown)", dials, closes)
	}
}

func TestLeaveClosesImmediately(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(d, time.Hour, zap.NewNop())

	m.HandleProximityUpdate(peers("p1"))
	m.HandleLeave("p1")

	if st := m.StateOf("p1"); st != StateClosed {
		t.Fatalf("state after leave = %v, want closed", st)
	}
	if _, closes := d.counts(); closes != 1 {
		t.Fatalf("closes = %d, want 1", closes)
	}

	// Leave for an unknown peer is a no-op.
	m.HandleLeave("p1")
	m.HandleLeave("ghost")
	if _, closes := d.counts(); closes != 1 {
		t.Fatal("repeated leave must not close twice")
	}
}

func TestDialFailureClosesAndRetriesNextUpdate(t *testing.T) {
	d := &fakeDialer{failNext: true}
	m := NewManager(d, time.Second, zap.NewNop())

	m.HandleProximityUpdate(peers("p1"))
	if st := m.StateOf("p1"); st != StateClosed {
		t.Fatalf("state after failed dial = %v, want closed", st)
	}

	// The next update retries; no storm in between.
	m.HandleProximityUpdate(peers("p1"))
	if st := m.StateOf("p1"); st != StateActive {
		t.Fatalf("state after retry = %v, want active", st)
	}
	if dials, _ := d.counts(); dials != 1 {
		t.Fatalf("successful dials = %d, want 1", dials)
	}
}

func TestCloseCancelsEverything(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(d, 50*time.Millisecond, zap.NewNop())

	m.HandleProximityUpdate(peers("p1", "p2", "p3"))
	m.HandleProximityUpdate(peers("p1")) // p2, p3 draining
	m.Close()

	if m.Count() != 0 {
		t.Fatalf("count after close = %d, want 0", m.Count())
	}
	if _, closes := d.counts(); closes != 3 {
		t.Fatalf("closes = %d, want 3", closes)
	}

	// Let any stray timers fire; nothing should double-close.
	time.Sleep(80 * time.Millisecond)
	if _, closes := d.counts(); closes != 3 {
		t.Fatalf("closes after timers = %d, want 3", closes)
	}
}
