package world

import (
	"time"

	"go.uber.org/zap"
)

// Role is a workspace role carried in auth claims and checked against zone
// access rules.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleHR       Role = "hr"
	RoleAdmin    Role = "admin"
	RoleCEO      Role = "ceo"
)

// Player is the authoritative presence record for one connected session.
type Player struct {
	ID       string // session id
	UserID   string
	Username string
	Role     Role
	X, Y     float64
	Anim     string
	VideoOn  bool
	JoinedAt time.Time
}

// Registry holds every connected player, indexed by session id and by the
// proximity cell grid.
// Single-goroutine access only (game loop).
type Registry struct {
	players map[string]*Player
	grid    *Grid
	log     *zap.Logger
}

func NewRegistry(cellSize float64, log *zap.Logger) *Registry {
	return &Registry{
		players: make(map[string]*Player),
		grid:    NewGrid(cellSize),
		log:     log,
	}
}

// Join registers p under its session id. A duplicate id is overwritten after
// a warning; the stale entry's grid index is released first.
func (r *Registry) Join(p Player) *Player {
	if old, ok := r.players[p.ID]; ok {
		r.log.Warn("duplicate join, overwriting session",
			zap.String("session_id", p.ID),
			zap.String("old_username", old.Username),
			zap.String("new_username", p.Username))
		r.grid.Remove(old.ID, old.X, old.Y)
	}
	cp := p
	if cp.JoinedAt.IsZero() {
		cp.JoinedAt = time.Now()
	}
	r.players[cp.ID] = &cp
	r.grid.Add(cp.ID, cp.X, cp.Y)
	return &cp
}

// UpdatePosition moves the player and reindexes the grid. Unknown ids are a
// no-op; the caller already logs at debug level via Get.
func (r *Registry) UpdatePosition(id string, x, y float64, anim string) bool {
	p, ok := r.players[id]
	if !ok {
		return false
	}
	r.grid.Move(id, p.X, p.Y, x, y)
	p.X = x
	p.Y = y
	p.Anim = anim
	return true
}

// SetVideo records camera state on the player's record. Unknown ids are a
// no-op.
func (r *Registry) SetVideo(id string, on bool) bool {
	p, ok := r.players[id]
	if !ok {
		return false
	}
	p.VideoOn = on
	return true
}

// Leave removes the player and returns its final record. Removing an absent
// id returns nil without error, so transport-close and explicit quit can both
// call it.
func (r *Registry) Leave(id string) *Player {
	p, ok := r.players[id]
	if !ok {
		return nil
	}
	r.grid.Remove(id, p.X, p.Y)
	delete(r.players, id)
	return p
}

// Get returns the live record for id, or nil.
func (r *Registry) Get(id string) *Player {
	return r.players[id]
}

func (r *Registry) Count() int {
	return len(r.players)
}

// Snapshot returns value copies of every player plus an independent copy of
// the cell grid. Mutating either side never touches registry state.
func (r *Registry) Snapshot() Snapshot {
	players := make(map[string]Player, len(r.players))
	for id, p := range r.players {
		players[id] = *p
	}
	return Snapshot{Players: players, Grid: r.grid.Clone()}
}

// Snapshot is a point-in-time view of the registry handed to the proximity
// resolver.
type Snapshot struct {
	Players map[string]Player
	Grid    *Grid
}
