package world

import (
	"math"
	"sort"
	"strings"
)

// Zone is an axis-aligned restricted region of the office map.
type Zone struct {
	ID   string
	Name string
	X, Y float64
	W, H float64
}

// Contains reports whether (px, py) lies strictly inside the zone. A zone
// with non-positive extent is malformed and cannot be evaluated.
func (z Zone) Contains(px, py float64) bool {
	return px > z.X && px < z.X+z.W && py > z.Y && py < z.Y+z.H
}

func (z Zone) Area() float64 {
	return z.W * z.H
}

func (z Zone) malformed() bool {
	return z.W <= 0 || z.H <= 0 ||
		math.IsNaN(z.X) || math.IsNaN(z.Y) || math.IsNaN(z.W) || math.IsNaN(z.H)
}

// CenterX and CenterY locate the push-back origin.
func (z Zone) CenterX() float64 { return z.X + z.W/2 }
func (z Zone) CenterY() float64 { return z.Y + z.H/2 }

// AccessTable maps zone ids to allowed roles. A zone id with a numeric
// suffix falls back to its base rule, so meeting_room_1 and meeting_room_2
// share the meeting_room entry.
type AccessTable struct {
	rules map[string][]Role
}

func NewAccessTable(rules map[string][]Role) *AccessTable {
	if rules == nil {
		rules = make(map[string][]Role)
	}
	return &AccessTable{rules: rules}
}

// AllowedRoles returns the rule for zoneID, trying the exact id first and
// then the id with a trailing _<digits> suffix stripped. Missing rules
// return nil.
func (t *AccessTable) AllowedRoles(zoneID string) []Role {
	if roles, ok := t.rules[zoneID]; ok {
		return roles
	}
	if base := stripNumericSuffix(zoneID); base != zoneID {
		if roles, ok := t.rules[base]; ok {
			return roles
		}
	}
	return nil
}

// Allows reports whether role may occupy zoneID. No rule means no access.
func (t *AccessTable) Allows(zoneID string, role Role) bool {
	for _, r := range t.AllowedRoles(zoneID) {
		if r == role {
			return true
		}
	}
	return false
}

func stripNumericSuffix(s string) string {
	i := strings.LastIndexByte(s, '_')
	if i <= 0 || i == len(s)-1 {
		return s
	}
	for _, c := range s[i+1:] {
		if c < '0' || c > '9' {
			return s
		}
	}
	return s[:i]
}

// Decision is the outcome of an access check. Zone is the zone that decided
// the outcome: the denying zone, or the innermost containing zone when
// allowed. Nil when the position is in open space.
type Decision struct {
	Allowed bool
	Zone    *Zone
}

// CheckAccess resolves whether role may stand at (px, py). Containing zones
// are ranked by area ascending then id, so nested zones resolve to the
// innermost deterministically. A malformed zone cannot be ruled out as
// containing the point and therefore denies.
func CheckAccess(px, py float64, role Role, zones []Zone, access *AccessTable) Decision {
	var hits []Zone
	for _, z := range zones {
		if z.malformed() {
			bad := z
			return Decision{Allowed: false, Zone: &bad}
		}
		if z.Contains(px, py) {
			hits = append(hits, z)
		}
	}
	if len(hits) == 0 {
		return Decision{Allowed: true}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Area() != hits[j].Area() {
			return hits[i].Area() < hits[j].Area()
		}
		return hits[i].ID < hits[j].ID
	})

	for i := range hits {
		if !access.Allows(hits[i].ID, role) {
			return Decision{Allowed: false, Zone: &hits[i]}
		}
	}
	return Decision{Allowed: true, Zone: &hits[0]}
}

// PushBack returns the position nudged step px away from the zone center,
// along the center-to-player angle. A player exactly at the center is pushed
// along +X.
func PushBack(px, py float64, z Zone, step float64) (float64, float64) {
	angle := math.Atan2(py-z.CenterY(), px-z.CenterX())
	return px + math.Cos(angle)*step, py + math.Sin(angle)*step
}
