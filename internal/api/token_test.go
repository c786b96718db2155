package api

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/atriumverse/atrium/internal/persist"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	iss, err := NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	u := &persist.UserRow{ID: uuid.New(), Username: "ada", Role: "admin"}
	token, err := iss.Issue(u)
	if err != nil {
		t.Fatal(err)
	}

	ident, err := iss.Verify(token)
	if err != nil {
		t.Fatal(err)
	}
	if ident.UserID != u.ID.String() || ident.Username != "ada" || ident.Role != "admin" {
		t.Fatalf("identity = %+v", ident)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	iss, _ := NewTokenIssuer("secret-a", time.Hour)
	other, _ := NewTokenIssuer("secret-b", time.Hour)

	token, err := iss.Issue(&persist.UserRow{ID: uuid.New(), Username: "ada", Role: "employee"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Verify(token); err == nil {
		t.Fatal("token signed with a different secret must not verify")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	iss, _ := NewTokenIssuer("test-secret", -time.Hour)
	iss.ttl = -time.Hour

	token, err := iss.Issue(&persist.UserRow{ID: uuid.New(), Username: "ada", Role: "employee"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := iss.Verify(token); err == nil {
		t.Fatal("expired token must not verify")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	iss, _ := NewTokenIssuer("test-secret", time.Hour)
	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := iss.Verify(tok); err == nil {
			t.Fatalf("token %q must not verify", tok)
		}
	}
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer("", time.Hour); err == nil {
		t.Fatal("empty secret must be rejected")
	}
}

func TestChatTokenCarriesRoom(t *testing.T) {
	token, err := IssueChatToken("chat-secret", "u1", "ada", "standup")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("token %q is not a compact jwt", token)
	}
	if _, err := IssueChatToken("", "u1", "ada", "standup"); err == nil {
		t.Fatal("empty chat secret must be rejected")
	}
}
