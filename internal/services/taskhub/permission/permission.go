// Package permission resolves a user's role in a workspace and enforces the
// role rules every mutation shares.
package permission

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/louisbranch/taskhub/internal/platform/errors"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/task"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/workspace"
	"github.com/louisbranch/taskhub/internal/services/taskhub/storage"
)

// MembershipReader looks up memberships.
type MembershipReader interface {
	GetMembership(ctx context.Context, workspaceID, userID int64) (workspace.Membership, error)
}

// OwnerCounter counts a workspace's owners.
type OwnerCounter interface {
	CountOwners(ctx context.Context, workspaceID int64) (int, error)
}

// ResolveMembership returns the caller's membership. Non-members get NotFound
// so workspace existence is not disclosed.
func ResolveMembership(ctx context.Context, reader MembershipReader, workspaceID, userID int64) (workspace.Membership, error) {
	membership, err := reader.GetMembership(ctx, workspaceID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return workspace.Membership{}, apperrors.New(apperrors.CodeWorkspaceNotFound, "workspace not found")
		}
		return workspace.Membership{}, fmt.Errorf("resolve membership: %w", err)
	}
	return membership, nil
}

// RequireRole resolves the caller's membership and checks its role is one of
// allowed.
func RequireRole(ctx context.Context, reader MembershipReader, workspaceID, userID int64, allowed ...workspace.Role) (workspace.Membership, error) {
	membership, err := ResolveMembership(ctx, reader, workspaceID, userID)
	if err != nil {
		return workspace.Membership{}, err
	}
	for _, role := range allowed {
		if membership.Role == role {
			return membership, nil
		}
	}
	return workspace.Membership{}, apperrors.WithMetadata(apperrors.CodeForbidden,
		"insufficient workspace role",
		map[string]string{"Role": string(membership.Role)})
}

// RequireManager is RequireRole for owners and admins.
func RequireManager(ctx context.Context, reader MembershipReader, workspaceID, userID int64) (workspace.Membership, error) {
	return RequireRole(ctx, reader, workspaceID, userID, workspace.RoleOwner, workspace.RoleAdmin)
}

// EnsureMember checks that a target user (assignee, watcher) belongs to the
// workspace.
func EnsureMember(ctx context.Context, reader MembershipReader, workspaceID, userID int64) error {
	if _, err := reader.GetMembership(ctx, workspaceID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.WithMetadata(apperrors.CodeUserNotInWorkspace, "user not in workspace",
				map[string]string{"UserID": fmt.Sprint(userID)})
		}
		return fmt.Errorf("check membership: %w", err)
	}
	return nil
}

// CanManageTask reports whether a member may mutate t: managers always can,
// other members only when they created or are assigned to it.
func CanManageTask(membership workspace.Membership, t task.Task) bool {
	return membership.Role.IsManager() || t.InvolvesUser(membership.UserID)
}

// RequireTaskManager returns Forbidden unless CanManageTask holds.
func RequireTaskManager(membership workspace.Membership, t task.Task) error {
	if CanManageTask(membership, t) {
		return nil
	}
	return apperrors.New(apperrors.CodeForbidden, "not allowed to modify this task")
}

// CheckRoleChange enforces that admins can neither mint owners nor touch an
// existing owner. current is empty when adding a member and next is empty when
// removing one.
func CheckRoleChange(actor workspace.Role, current, next workspace.Role) error {
	if actor == workspace.RoleOwner {
		return nil
	}
	if !actor.IsManager() {
		return apperrors.New(apperrors.CodeForbidden, "insufficient workspace role")
	}
	if next == workspace.RoleOwner {
		return apperrors.New(apperrors.CodeWorkspaceRoleEscalates, "only owner can grant owner role")
	}
	if current == workspace.RoleOwner {
		if next == "" {
			return apperrors.New(apperrors.CodeWorkspaceRoleEscalates, "only owner can remove an owner")
		}
		return apperrors.New(apperrors.CodeWorkspaceRoleEscalates, "only owner can change an owner's role")
	}
	return nil
}

// GuardLastOwner rejects demoting or removing the only owner. It must run in
// the same transaction as the write it guards. next is empty for removal.
func GuardLastOwner(ctx context.Context, counter OwnerCounter, workspaceID int64, current, next workspace.Role) error {
	if current != workspace.RoleOwner || next == workspace.RoleOwner {
		return nil
	}
	owners, err := counter.CountOwners(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("count owners: %w", err)
	}
	if owners > 1 {
		return nil
	}
	if next == "" {
		return apperrors.New(apperrors.CodeWorkspaceLastOwner, "cannot remove the last owner")
	}
	return apperrors.New(apperrors.CodeWorkspaceLastOwner, "cannot demote the last owner")
}
