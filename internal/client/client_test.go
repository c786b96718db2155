package client

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/atriumverse/atrium/internal/call"
	"github.com/atriumverse/atrium/internal/protocol"
	"github.com/atriumverse/atrium/internal/world"
)

type sentEvent struct {
	Type protocol.EventType
	Data any
}

func newTestClient(t *testing.T, opts Options, obs Observer) (*Client, *[]sentEvent) {
	t.Helper()
	var sent []sentEvent
	send := func(et protocol.EventType, v any) error {
		sent = append(sent, sentEvent{Type: et, Data: v})
		return nil
	}
	c := New(opts, obs, call.LoopbackDialer{}, time.Second, send, zap.NewNop())
	return c, &sent
}

func apply(t *testing.T, c *Client, et protocol.EventType, v any, now time.Time) {
	t.Helper()
	frame, err := protocol.Marshal(et, v)
	if err != nil {
		t.Fatalf("marshal %s: %v", et, err)
	}
	env, err := protocol.Unmarshal(frame)
	if err != nil {
		t.Fatalf("unmarshal %s: %v", et, err)
	}
	c.Apply(env, now)
}

func joinSelf(t *testing.T, c *Client, now time.Time) {
	t.Helper()
	apply(t, c, protocol.EvWelcome, protocol.Welcome{
		ID: "me", Username: "ada", Role: "employee", X: 0, Y: 0,
	}, now)
}

func TestLerpReachesTargetOverWindow(t *testing.T) {
	c, _ := newTestClient(t, Options{LerpDuration: 120 * time.Millisecond}, Observer{})
	t0 := time.Unix(0, 0)
	joinSelf(t, c, t0)

	apply(t, c, protocol.EvPlayerJoined, protocol.PlayerJoined{ID: "r1", Username: "grace", X: 0, Y: 0}, t0)
	apply(t, c, protocol.EvPlayerMoved, protocol.PlayerMoved{ID: "r1", Pos: protocol.Pos{X: 120}, Anim: "walk"}, t0)

	c.Step(t0.Add(60 * time.Millisecond))
	r, ok := c.Remote("r1")
	if !ok {
		t.Fatal("remote missing")
	}
	if r.X < 55 || r.X > 65 {
		t.Fatalf("midpoint X = %v, want ~60", r.X)
	}

	c.Step(t0.Add(200 * time.Millisecond))
	r, _ = c.Remote("r1")
	if r.X != 120 || r.Y != 0 {
		t.Fatalf("final pos = (%v, %v), want (120, 0)", r.X, r.Y)
	}
	if r.Anim != "walk" {
		t.Fatalf("anim = %q, want walk", r.Anim)
	}
}

func TestOutOfOrderMoveMaterializesEntity(t *testing.T) {
	c, _ := newTestClient(t, Options{}, Observer{})
	t0 := time.Unix(0, 0)
	joinSelf(t, c, t0)

	apply(t, c, protocol.EvPlayerMoved, protocol.PlayerMoved{ID: "ghost", Pos: protocol.Pos{X: 300, Y: 400}, Anim: "walk"}, t0)

	r, ok := c.Remote("ghost")
	if !ok {
		t.Fatal("move before join must materialize the entity")
	}
	if r.X != 300 || r.Y != 400 {
		t.Fatalf("pos = (%v, %v), want (300, 400)", r.X, r.Y)
	}

	// The snapshot later fills in identity without resetting anything odd.
	apply(t, c, protocol.EvPlayers, protocol.Players{
		"ghost": {Username: "joan", Role: "hr", X: 300, Y: 400},
	}, t0)
	r, _ = c.Remote("ghost")
	if r.Username != "joan" {
		t.Fatalf("username = %q, want joan", r.Username)
	}
}

func TestMovementEmissionSuppressedWhenUnchanged(t *testing.T) {
	c, sent := newTestClient(t, Options{EmitInterval: 100 * time.Millisecond}, Observer{})
	t0 := time.Unix(0, 0)
	joinSelf(t, c, t0)

	countMoves := func() int {
		n := 0
		for _, e := range *sent {
			if e.Type == protocol.EvMove {
				n++
			}
		}
		return n
	}

	// First step emits the initial state once.
	c.Step(t0)
	if countMoves() != 1 {
		t.Fatalf("moves after first step = %d, want 1", countMoves())
	}

	// Standing still: ticks come and go, nothing is emitted.
	for i := 1; i <= 10; i++ {
		c.Step(t0.Add(time.Duration(i) * 100 * time.Millisecond))
	}
	if countMoves() != 1 {
		t.Fatalf("moves while idle = %d, want 1", countMoves())
	}

	// Start walking: emissions resume at the throttle cadence.
	c.SetVelocity(100, 0)
	c.Step(t0.Add(1100 * time.Millisecond))
	c.Step(t0.Add(1200 * time.Millisecond))
	if countMoves() != 3 {
		t.Fatalf("moves while walking = %d, want 3", countMoves())
	}

	// Faster ticks than the emit interval still collapse to the cadence.
	c.Step(t0.Add(1210 * time.Millisecond))
	c.Step(t0.Add(1220 * time.Millisecond))
	if countMoves() != 3 {
		t.Fatalf("moves at 100 Hz ticks = %d, want 3", countMoves())
	}
}

func TestPredictionAppliesImmediately(t *testing.T) {
	c, _ := newTestClient(t, Options{}, Observer{})
	t0 := time.Unix(0, 0)
	joinSelf(t, c, t0)

	c.Step(t0)
	c.SetVelocity(100, 0) // px/sec
	c.Step(t0.Add(500 * time.Millisecond))

	if got := c.Self().X; got < 49 || got > 51 {
		t.Fatalf("predicted X = %v, want ~50", got)
	}

	// A server echo of our own movement must not correct us.
	apply(t, c, protocol.EvPlayerMoved, protocol.PlayerMoved{ID: "me"}, t0.Add(600*time.Millisecond))
	if got := c.Self().X; got < 49 {
		t.Fatalf("server echo corrected local prediction: X = %v", got)
	}
}

func TestZonePushBackOnDeniedEntry(t *testing.T) {
	var denied []string
	opts := Options{
		Zones:        []world.Zone{{ID: "server_room", Name: "Server Room", X: 100, Y: -50, W: 100, H: 100}},
		PushBackStep: 5,
	}
	obs := Observer{OnAccessDenied: func(zoneID, _ string) { denied = append(denied, zoneID) }}
	c, _ := newTestClient(t, opts, obs)
	t0 := time.Unix(0, 0)
	joinSelf(t, c, t0)
	apply(t, c, protocol.EvGameRules, protocol.GameRules{RoomAccess: map[string][]string{
		"server_room": {"admin"},
	}}, t0)

	c.Step(t0)
	c.SetVelocity(100, 0)

	// Walk right into the restricted zone; the push-back keeps us out.
	entered := false
	for i := 1; i <= 40; i++ {
		c.Step(t0.Add(time.Duration(i) * 50 * time.Millisecond))
		if c.Self().X > 110 {
			entered = true
		}
	}
	if entered {
		t.Fatalf("employee walked deep into restricted zone: X = %v", c.Self().X)
	}
	if len(denied) == 0 {
		t.Fatal("no access-denied notice fired")
	}
	// Notices are throttled, not one per tick.
	if len(denied) > 3 {
		t.Fatalf("denied notices = %d, throttle not applied", len(denied))
	}
}

func TestPlayerLeftClosesCallAndRemovesEntity(t *testing.T) {
	c, _ := newTestClient(t, Options{}, Observer{})
	t0 := time.Unix(0, 0)
	joinSelf(t, c, t0)

	apply(t, c, protocol.EvPlayerJoined, protocol.PlayerJoined{ID: "r1", Username: "grace"}, t0)
	apply(t, c, protocol.EvProximityCalls, protocol.ProximityCalls{
		NearbyPlayers: []protocol.NearbyPlayer{{ID: "r1", Distance: 10}},
	}, t0)
	if st := c.Calls().StateOf("r1"); st != call.StateActive {
		t.Fatalf("call state = %v, want active", st)
	}

	apply(t, c, protocol.EvPlayerLeft, "r1", t0)
	if _, ok := c.Remote("r1"); ok {
		t.Fatal("remote entity survived playerLeft")
	}
	if st := c.Calls().StateOf("r1"); st != call.StateClosed {
		t.Fatalf("call state after leave = %v, want closed (no grace)", st)
	}
}

func TestEmptyProximityListDrainsCalls(t *testing.T) {
	c, _ := newTestClient(t, Options{}, Observer{})
	t0 := time.Unix(0, 0)
	joinSelf(t, c, t0)

	apply(t, c, protocol.EvProximityCalls, protocol.ProximityCalls{
		NearbyPlayers: []protocol.NearbyPlayer{{ID: "r1"}},
	}, t0)
	apply(t, c, protocol.EvProximityCalls, protocol.ProximityCalls{}, t0)

	if st := c.Calls().StateOf("r1"); st != call.StateDraining {
		t.Fatalf("call state = %v, want draining", st)
	}
}

func TestProjectionCadence(t *testing.T) {
	var labelCalls int
	c, _ := newTestClient(t, Options{ProjectInterval: 100 * time.Millisecond}, Observer{
		OnLabels: func([]Label) { labelCalls++ },
	})
	t0 := time.Unix(0, 0)
	joinSelf(t, c, t0)

	// 25 ticks over one second at 40ms: the 100ms throttle caps projections.
	for i := 0; i <= 25; i++ {
		c.Step(t0.Add(time.Duration(i) * 40 * time.Millisecond))
	}
	if labelCalls < 9 || labelCalls > 12 {
		t.Fatalf("label projections = %d, want ~10", labelCalls)
	}
}
