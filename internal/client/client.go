// Package client is the headless presence client: it speaks the realtime
// protocol, reconciles remote entities, predicts the local avatar, and owns
// the call lifecycle. The core is transport-free; Dial wires it to a
// websocket.
package client

import (
	"time"

	"go.uber.org/zap"

	"github.com/atriumverse/atrium/internal/call"
	"github.com/atriumverse/atrium/internal/protocol"
	"github.com/atriumverse/atrium/internal/world"
)

// Entity is a rendered presence: the local avatar or a remote player.
type Entity struct {
	ID       string
	Username string
	Role     string
	X, Y     float64
	Anim     string
	VideoOn  bool
}

type remoteEntity struct {
	Entity
	fromX, fromY     float64
	targetX, targetY float64
	lerpStart        time.Time
	lerping          bool
}

// Label is one name tag projected above an entity.
type Label struct {
	ID   string
	Text string
	X, Y float64
}

// MinimapDot is one entity position on the minimap.
type MinimapDot struct {
	ID   string
	X, Y float64
	Self bool
}

// Observer receives UI-facing projections and notices. Nil callbacks are
// skipped; there is nothing to poll.
type Observer struct {
	OnLabels       func([]Label)
	OnMinimap      func([]MinimapDot)
	OnAccessDenied func(zoneID, name string)
	OnReaction     func(id, emoji string)
	OnChat         func(id, username, text string)
	OnVideoStatus  func(id string, enabled bool)
}

// Options tunes the reconciliation loop.
type Options struct {
	LerpDuration    time.Duration // remote entity interpolation window
	EmitInterval    time.Duration // movement emission cadence
	ProjectInterval time.Duration // label/minimap projection cadence
	DeniedThrottle  time.Duration // min gap between access-denied notices
	PushBackStep    float64       // px per correction step
	Zones           []world.Zone  // local zone geometry (rules arrive via gameRules)
}

func (o *Options) setDefaults() {
	if o.LerpDuration <= 0 {
		o.LerpDuration = 120 * time.Millisecond
	}
	if o.EmitInterval <= 0 {
		o.EmitInterval = 100 * time.Millisecond
	}
	if o.ProjectInterval <= 0 {
		o.ProjectInterval = 100 * time.Millisecond
	}
	if o.DeniedThrottle <= 0 {
		o.DeniedThrottle = time.Second
	}
	if o.PushBackStep <= 0 {
		o.PushBackStep = 5
	}
}

// SendFunc delivers one outbound event to the server.
type SendFunc func(t protocol.EventType, v any) error

// Client reconciles server events into a local world view. All methods must
// be called from one goroutine; Run does that when a transport is attached.
type Client struct {
	opts  Options
	obs   Observer
	send  SendFunc
	calls *call.Manager
	log   *zap.Logger

	selfID string
	self   Entity
	vx, vy float64 // px/sec, local prediction
	joined bool

	access  *world.AccessTable
	remotes map[string]*remoteEntity

	lastStep    time.Time
	lastEmit    time.Time
	lastProject time.Time
	lastDenied  time.Time

	sentX, sentY float64
	sentAnim     string
	everSent     bool
}

func New(opts Options, obs Observer, dialer call.MediaDialer, grace time.Duration, send SendFunc, log *zap.Logger) *Client {
	opts.setDefaults()
	return &Client{
		opts:    opts,
		obs:     obs,
		send:    send,
		calls:   call.NewManager(dialer, grace, log),
		log:     log,
		remotes: make(map[string]*remoteEntity),
		access:  world.NewAccessTable(nil),
	}
}

// Calls exposes the call manager, mainly for inspection.
func (c *Client) Calls() *call.Manager {
	return c.calls
}

// Self returns the predicted local avatar.
func (c *Client) Self() Entity {
	return c.self
}

// Remote returns the current render state of a remote entity.
func (c *Client) Remote(id string) (Entity, bool) {
	r, ok := c.remotes[id]
	if !ok {
		return Entity{}, false
	}
	return r.Entity, true
}

func (c *Client) RemoteCount() int {
	return len(c.remotes)
}

// SetVelocity sets the local movement vector in px/sec. Prediction applies
// it immediately on the next Step; the server is never asked first.
func (c *Client) SetVelocity(vx, vy float64) {
	c.vx = vx
	c.vy = vy
	if vx != 0 || vy != 0 {
		c.self.Anim = "walk"
	} else {
		c.self.Anim = "idle"
	}
}

// SetAnim overrides the local animation state.
func (c *Client) SetAnim(anim string) {
	c.self.Anim = anim
}

// Apply feeds one inbound event into the world view.
func (c *Client) Apply(env protocol.Envelope, now time.Time) {
	switch env.Type {
	case protocol.EvWelcome:
		var w protocol.Welcome
		if err := env.Decode(&w); err != nil {
			c.log.Debug("bad welcome", zap.Error(err))
			return
		}
		c.selfID = w.ID
		c.self = Entity{ID: w.ID, Username: w.Username, Role: w.Role, X: w.X, Y: w.Y, Anim: "idle"}
		c.joined = true

	case protocol.EvGameRules:
		var g protocol.GameRules
		if err := env.Decode(&g); err != nil {
			c.log.Debug("bad gameRules", zap.Error(err))
			return
		}
		rules := make(map[string][]world.Role, len(g.RoomAccess))
		for zone, roles := range g.RoomAccess {
			rs := make([]world.Role, len(roles))
			for i, r := range roles {
				rs[i] = world.Role(r)
			}
			rules[zone] = rs
		}
		c.access = world.NewAccessTable(rules)

	case protocol.EvPlayers:
		var snap protocol.Players
		if err := env.Decode(&snap); err != nil {
			c.log.Debug("bad players snapshot", zap.Error(err))
			return
		}
		for id, p := range snap {
			if id == c.selfID {
				continue
			}
			c.materialize(id, p.Username, p.Role, p.X, p.Y, p.Anim).VideoOn = p.VideoOn
		}

	case protocol.EvPlayerJoined:
		var j protocol.PlayerJoined
		if err := env.Decode(&j); err != nil {
			c.log.Debug("bad playerJoined", zap.Error(err))
			return
		}
		if j.ID != c.selfID {
			c.materialize(j.ID, j.Username, j.Role, j.X, j.Y, j.Anim)
		}

	case protocol.EvPlayerMoved:
		var mv protocol.PlayerMoved
		if err := env.Decode(&mv); err != nil {
			c.log.Debug("bad playerMoved", zap.Error(err))
			return
		}
		if mv.ID == c.selfID {
			return // local prediction is authoritative
		}
		r, ok := c.remotes[mv.ID]
		if !ok {
			// Move for an entity we never saw join: materialize it at the
			// target and let the next snapshot fill in identity.
			c.materialize(mv.ID, "", "", mv.Pos.X, mv.Pos.Y, mv.Anim)
			return
		}
		r.fromX, r.fromY = r.X, r.Y
		r.targetX, r.targetY = mv.Pos.X, mv.Pos.Y
		r.lerpStart = now
		r.lerping = true
		r.Anim = mv.Anim

	case protocol.EvPlayerLeft:
		var id string
		if err := env.Decode(&id); err != nil {
			c.log.Debug("bad playerLeft", zap.Error(err))
			return
		}
		delete(c.remotes, id)
		c.calls.HandleLeave(id)

	case protocol.EvProximityCalls:
		var pc protocol.ProximityCalls
		if err := env.Decode(&pc); err != nil {
			c.log.Debug("bad proximity update", zap.Error(err))
			return
		}
		c.calls.HandleProximityUpdate(pc.NearbyPlayers)

	case protocol.EvPlayerReaction:
		var r protocol.PlayerReaction
		if err := env.Decode(&r); err != nil {
			return
		}
		if c.obs.OnReaction != nil {
			c.obs.OnReaction(r.ID, r.Emoji)
		}

	case protocol.EvVideoStatus:
		var v protocol.VideoStatus
		if err := env.Decode(&v); err != nil {
			return
		}
		if r, ok := c.remotes[v.ID]; ok {
			r.VideoOn = v.Enabled
		}
		if c.obs.OnVideoStatus != nil {
			c.obs.OnVideoStatus(v.ID, v.Enabled)
		}

	case protocol.EvChat:
		var ch protocol.Chat
		if err := env.Decode(&ch); err != nil {
			return
		}
		if c.obs.OnChat != nil {
			c.obs.OnChat(ch.ID, ch.Username, ch.Text)
		}

	case protocol.EvAccessDenied:
		var d protocol.AccessDenied
		if err := env.Decode(&d); err != nil {
			return
		}
		c.notifyDenied(d.ZoneID, d.Name, now)

	default:
		c.log.Debug("unknown event", zap.String("type", string(env.Type)))
	}
}

func (c *Client) materialize(id, username, role string, x, y float64, anim string) *remoteEntity {
	r, ok := c.remotes[id]
	if !ok {
		r = &remoteEntity{}
		c.remotes[id] = r
	}
	r.ID = id
	if username != "" {
		r.Username = username
	}
	if role != "" {
		r.Role = role
	}
	r.X, r.Y = x, y
	r.targetX, r.targetY = x, y
	r.lerping = false
	r.Anim = anim
	return r
}

// Step advances the loop to now: interpolation, prediction, zone
// enforcement, throttled emission and projection.
func (c *Client) Step(now time.Time) {
	dt := time.Duration(0)
	if !c.lastStep.IsZero() {
		dt = now.Sub(c.lastStep)
	}
	c.lastStep = now

	c.advanceLerps(now)
	c.predict(dt, now)
	c.maybeEmit(now)
	c.maybeProject(now)
}

// advanceLerps moves remote entities toward their targets over the lerp
// window.
func (c *Client) advanceLerps(now time.Time) {
	for _, r := range c.remotes {
		if !r.lerping {
			continue
		}
		t := float64(now.Sub(r.lerpStart)) / float64(c.opts.LerpDuration)
		if t >= 1 {
			r.X, r.Y = r.targetX, r.targetY
			r.lerping = false
			continue
		}
		if t < 0 {
			t = 0
		}
		r.X = r.fromX + (r.targetX-r.fromX)*t
		r.Y = r.fromY + (r.targetY-r.fromY)*t
	}
}

// predict applies the local velocity immediately and enforces zone rules
// with a push-back, never waiting for the server.
func (c *Client) predict(dt time.Duration, now time.Time) {
	if !c.joined || dt <= 0 {
		return
	}
	if c.vx == 0 && c.vy == 0 {
		return
	}
	nx := c.self.X + c.vx*dt.Seconds()
	ny := c.self.Y + c.vy*dt.Seconds()

	if d := world.CheckAccess(nx, ny, world.Role(c.self.Role), c.opts.Zones, c.access); !d.Allowed && d.Zone != nil {
		nx, ny = world.PushBack(nx, ny, *d.Zone, c.opts.PushBackStep)
		c.notifyDenied(d.Zone.ID, d.Zone.Name, now)
	}

	c.self.X = nx
	c.self.Y = ny
}

// maybeEmit sends a move event at the emission cadence, and only when
// position or animation actually changed since the last send.
func (c *Client) maybeEmit(now time.Time) {
	if !c.joined || c.send == nil {
		return
	}
	if !c.lastEmit.IsZero() && now.Sub(c.lastEmit) < c.opts.EmitInterval {
		return
	}
	if c.everSent && c.self.X == c.sentX && c.self.Y == c.sentY && c.self.Anim == c.sentAnim {
		return
	}
	if err := c.send(protocol.EvMove, protocol.Move{X: c.self.X, Y: c.self.Y, Anim: c.self.Anim}); err != nil {
		c.log.Debug("send move failed", zap.Error(err))
		return
	}
	c.lastEmit = now
	c.sentX, c.sentY, c.sentAnim = c.self.X, c.self.Y, c.self.Anim
	c.everSent = true
}

// maybeProject publishes labels and minimap dots at the projection cadence.
func (c *Client) maybeProject(now time.Time) {
	if !c.lastProject.IsZero() && now.Sub(c.lastProject) < c.opts.ProjectInterval {
		return
	}
	c.lastProject = now

	if c.obs.OnLabels != nil {
		labels := make([]Label, 0, len(c.remotes)+1)
		if c.joined {
			labels = append(labels, Label{ID: c.selfID, Text: c.self.Username, X: c.self.X, Y: c.self.Y})
		}
		for _, r := range c.remotes {
			labels = append(labels, Label{ID: r.ID, Text: r.Username, X: r.X, Y: r.Y})
		}
		c.obs.OnLabels(labels)
	}
	if c.obs.OnMinimap != nil {
		dots := make([]MinimapDot, 0, len(c.remotes)+1)
		if c.joined {
			dots = append(dots, MinimapDot{ID: c.selfID, X: c.self.X, Y: c.self.Y, Self: true})
		}
		for _, r := range c.remotes {
			dots = append(dots, MinimapDot{ID: r.ID, X: r.X, Y: r.Y})
		}
		c.obs.OnMinimap(dots)
	}
}

func (c *Client) notifyDenied(zoneID, name string, now time.Time) {
	if !c.lastDenied.IsZero() && now.Sub(c.lastDenied) < c.opts.DeniedThrottle {
		return
	}
	c.lastDenied = now
	if c.obs.OnAccessDenied != nil {
		c.obs.OnAccessDenied(zoneID, name)
	}
}

// SendReaction broadcasts an emoji reaction.
func (c *Client) SendReaction(emoji string) error {
	return c.send(protocol.EvPlayerReaction, protocol.PlayerReaction{Emoji: emoji})
}

// SendChat sends a world chat line.
func (c *Client) SendChat(text string) error {
	return c.send(protocol.EvChat, protocol.Chat{Text: text})
}

// SetVideo reports camera state as a bare boolean payload.
func (c *Client) SetVideo(enabled bool) error {
	return c.send(protocol.EvVideoStatus, enabled)
}

// Interact asks the server to run an object's script.
func (c *Client) Interact(objectID string) error {
	return c.send(protocol.EvInteract, protocol.Interact{ObjectID: objectID})
}

// Quit leaves the world explicitly and tears down every call.
func (c *Client) Quit() error {
	err := c.send(protocol.EvQuit, struct{}{})
	c.calls.Close()
	return err
}
