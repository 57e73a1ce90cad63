package workspace

import (
	"strings"
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	for _, input := range []string{"owner", "Admin", " member "} {
		if _, err := ParseRole(input); err != nil {
			t.Fatalf("ParseRole(%q): %v", input, err)
		}
	}
	if _, err := ParseRole("superuser"); err == nil {
		t.Fatal("expected unknown role to fail")
	}
}

func TestRoleIsManager(t *testing.T) {
	if !RoleOwner.IsManager() || !RoleAdmin.IsManager() {
		t.Fatal("owner and admin should manage")
	}
	if RoleMember.IsManager() {
		t.Fatal("member should not manage")
	}
}

func TestNewWorkspaceMakesCreatorOwner(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	ws, owner, err := NewWorkspace("  Platform  ", 9, func() time.Time { return fixed })
	if err != nil {
		t.Fatalf("new workspace: %v", err)
	}
	if ws.Name != "Platform" || ws.CreatedBy != 9 {
		t.Fatalf("unexpected workspace: %+v", ws)
	}
	if ws.CreatedAt.Location() != time.UTC {
		t.Fatal("expected UTC timestamps")
	}
	if owner.UserID != 9 || owner.Role != RoleOwner {
		t.Fatalf("unexpected owner membership: %+v", owner)
	}
}

func TestNormalizeNameBounds(t *testing.T) {
	if _, err := NormalizeName("   "); err == nil {
		t.Fatal("expected blank name to fail")
	}
	if _, err := NormalizeName(strings.Repeat("w", 121)); err == nil {
		t.Fatal("expected long name to fail")
	}
}
