package world

import (
	"math"
	"testing"
)

func testAccess() *AccessTable {
	return NewAccessTable(map[string][]Role{
		"open_area":    {RoleEmployee, RoleHR, RoleAdmin, RoleCEO},
		"meeting_room": {RoleEmployee, RoleHR, RoleAdmin, RoleCEO},
		"hr_office":    {RoleHR, RoleAdmin, RoleCEO},
		"server_room":  {RoleAdmin},
		"ceo_office":   {RoleCEO, RoleAdmin},
	})
}

func TestCheckAccess(t *testing.T) {
	zones := []Zone{
		{ID: "server_room", Name: "Server Room", X: 0, Y: 0, W: 100, H: 100},
		{ID: "hr_office", Name: "HR Office", X: 200, Y: 0, W: 100, H: 100},
	}
	access := testAccess()

	tests := []struct {
		name    string
		px, py  float64
		role    Role
		allowed bool
		zoneID  string
	}{
		{"open space", 500, 500, RoleEmployee, true, ""},
		{"admin in server room", 50, 50, RoleAdmin, true, "server_room"},
		{"employee in server room", 50, 50, RoleEmployee, false, "server_room"},
		{"ceo in server room", 50, 50, RoleCEO, false, "server_room"},
		{"hr in hr office", 250, 50, RoleHR, true, "hr_office"},
		{"employee in hr office", 250, 50, RoleEmployee, false, "hr_office"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CheckAccess(tt.px, tt.py, tt.role, zones, access)
			if d.Allowed != tt.allowed {
				t.Fatalf("allowed = %v, want %v", d.Allowed, tt.allowed)
			}
			if tt.zoneID == "" {
				if d.Zone != nil {
					t.Fatalf("zone = %+v, want nil", d.Zone)
				}
			} else if d.Zone == nil || d.Zone.ID != tt.zoneID {
				t.Fatalf("zone = %+v, want %s", d.Zone, tt.zoneID)
			}
		})
	}
}

func TestCheckAccessNestedSmallestWins(t *testing.T) {
	// A restricted booth inside an open area: the inner zone decides.
	zones := []Zone{
		{ID: "open_area", X: 0, Y: 0, W: 1000, H: 1000},
		{ID: "server_room", X: 400, Y: 400, W: 100, H: 100},
	}
	d := CheckAccess(450, 450, RoleEmployee, zones, testAccess())
	if d.Allowed {
		t.Fatal("inner restricted zone must deny")
	}
	if d.Zone == nil || d.Zone.ID != "server_room" {
		t.Fatalf("denying zone = %+v, want server_room", d.Zone)
	}
}

func TestCheckAccessEqualAreaTieBreaksOnID(t *testing.T) {
	zones := []Zone{
		{ID: "zone_b", X: 0, Y: 0, W: 100, H: 100},
		{ID: "zone_a", X: 50, Y: 0, W: 100, H: 100},
	}
	// Neither id has a rule, so both deny; the lower id must be reported.
	d := CheckAccess(75, 50, RoleAdmin, zones, testAccess())
	if d.Allowed {
		t.Fatal("unlisted zones must deny")
	}
	if d.Zone.ID != "zone_a" {
		t.Fatalf("tie-break picked %s, want zone_a", d.Zone.ID)
	}
}

func TestCheckAccessMissingRuleFailsClosed(t *testing.T) {
	zones := []Zone{{ID: "vault", X: 0, Y: 0, W: 100, H: 100}}
	d := CheckAccess(50, 50, RoleCEO, zones, testAccess())
	if d.Allowed {
		t.Fatal("zone without an access rule must deny everyone")
	}
}

func TestCheckAccessMalformedZoneFailsClosed(t *testing.T) {
	zones := []Zone{{ID: "broken", X: 0, Y: 0, W: -5, H: 100}}
	d := CheckAccess(5000, 5000, RoleAdmin, zones, testAccess())
	if d.Allowed {
		t.Fatal("malformed geometry must deny")
	}
	if d.Zone == nil || d.Zone.ID != "broken" {
		t.Fatalf("denying zone = %+v, want broken", d.Zone)
	}
}

func TestAccessTablePrefixFallback(t *testing.T) {
	access := testAccess()
	if !access.Allows("meeting_room_1", RoleEmployee) {
		t.Fatal("meeting_room_1 should fall back to the meeting_room rule")
	}
	if !access.Allows("meeting_room_12", RoleHR) {
		t.Fatal("multi-digit suffix should fall back too")
	}
	if access.Allows("meeting_hall", RoleEmployee) {
		t.Fatal("unrelated id must not match any rule")
	}
	if access.Allows("server_room_1", RoleEmployee) {
		t.Fatal("fallback rule still excludes non-admin roles")
	}
}

func TestPushBack(t *testing.T) {
	z := Zone{ID: "server_room", X: 0, Y: 0, W: 100, H: 100}

	// Player right of center: pushed further right.
	x, y := PushBack(80, 50, z, 5)
	if x != 85 || y != 50 {
		t.Fatalf("push = (%v, %v), want (85, 50)", x, y)
	}

	// Diagonal: displacement length equals the step.
	x, y = PushBack(80, 80, z, 5)
	dx, dy := x-80, y-80
	if d := math.Hypot(dx, dy); math.Abs(d-5) > 1e-9 {
		t.Fatalf("push length = %v, want 5", d)
	}
	if dx <= 0 || dy <= 0 {
		t.Fatalf("push direction not outward: (%v, %v)", dx, dy)
	}

	// Exactly at center: deterministic +X push.
	x, y = PushBack(50, 50, z, 5)
	if x != 55 || y != 50 {
		t.Fatalf("center push = (%v, %v), want (55, 50)", x, y)
	}
}
