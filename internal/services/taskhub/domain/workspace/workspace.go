// Package workspace defines tenants, memberships and member roles.
package workspace

import (
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/louisbranch/taskhub/internal/platform/errors"
)

const MaxNameLength = 120

// Role is a member's privilege level inside one workspace.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// ParseRole validates a role string.
func ParseRole(value string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleOwner:
		return RoleOwner, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleMember:
		return RoleMember, nil
	default:
		return "", apperrors.WithMetadata(apperrors.CodeInvalidInput,
			"role must be one of owner, admin, member",
			map[string]string{"Role": value})
	}
}

// IsManager reports whether the role may administer the workspace.
func (r Role) IsManager() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Workspace is a tenant boundary.
type Workspace struct {
	ID        int64
	Name      string
	CreatedBy int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary is a workspace as seen by one member.
type Summary struct {
	Workspace
	Role Role
}

// Membership binds a user to a workspace with a role.
type Membership struct {
	WorkspaceID int64
	UserID      int64
	Role        Role
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Member is a membership joined with the member's username.
type Member struct {
	Membership
	Username string
}

// NormalizeName trims a workspace name and checks its length.
func NormalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return "", apperrors.WithMetadata(apperrors.CodeInvalidInput,
			"workspace name must be between 1 and 120 characters",
			map[string]string{"Field": "name"})
	}
	return name, nil
}

// NewWorkspace builds a workspace and the creator's owner membership.
func NewWorkspace(name string, creatorID int64, now func() time.Time) (Workspace, Membership, error) {
	normalized, err := NormalizeName(name)
	if err != nil {
		return Workspace{}, Membership{}, err
	}
	if now == nil {
		now = time.Now
	}
	createdAt := now().UTC()
	ws := Workspace{
		Name:      normalized,
		CreatedBy: creatorID,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	owner := Membership{
		UserID:    creatorID,
		Role:      RoleOwner,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	return ws, owner, nil
}
