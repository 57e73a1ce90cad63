package service

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/louisbranch/taskhub/internal/platform/errors"
	"github.com/louisbranch/taskhub/internal/services/taskhub/audit"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/workspace"
	"github.com/louisbranch/taskhub/internal/services/taskhub/permission"
	"github.com/louisbranch/taskhub/internal/services/taskhub/storage"
)

// CreateWorkspace creates a workspace owned by actorID.
func (s *Service) CreateWorkspace(ctx context.Context, actorID int64, name string) (WorkspaceView, error) {
	ws, owner, err := workspace.NewWorkspace(name, actorID, s.now)
	if err != nil {
		return WorkspaceView{}, err
	}
	err = s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		created, err := tx.CreateWorkspace(ctx, ws)
		if err != nil {
			return err
		}
		owner.WorkspaceID = created.ID
		if err := tx.PutMembership(ctx, owner); err != nil {
			return fmt.Errorf("add owner: %w", err)
		}
		ws = created
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:     actorID,
			WorkspaceID: created.ID,
			EntityType:  audit.EntityWorkspace,
			EntityID:    created.ID,
			Action:      audit.ActionCreate,
			Changes:     map[string]any{"name": created.Name},
		})
	})
	if err != nil {
		return WorkspaceView{}, err
	}
	return newWorkspaceView(ws, owner.Role), nil
}

// ListWorkspaces returns the caller's workspaces, newest first.
func (s *Service) ListWorkspaces(ctx context.Context, actorID int64) ([]WorkspaceView, error) {
	summaries, err := s.store.ListWorkspacesForUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return mapViews(summaries, func(sum workspace.Summary) WorkspaceView {
		return newWorkspaceView(sum.Workspace, sum.Role)
	}), nil
}

// GetWorkspace returns a workspace the caller belongs to.
func (s *Service) GetWorkspace(ctx context.Context, workspaceID, actorID int64) (WorkspaceView, error) {
	membership, err := permission.ResolveMembership(ctx, s.store, workspaceID, actorID)
	if err != nil {
		return WorkspaceView{}, err
	}
	ws, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return WorkspaceView{}, notFoundOr(err, apperrors.CodeWorkspaceNotFound, "workspace not found")
	}
	return newWorkspaceView(ws, membership.Role), nil
}

// DeleteWorkspace removes a workspace and everything it owns. Only owners may
// do this. The audit trail cascades away with the workspace, so the deletion
// is logged instead.
func (s *Service) DeleteWorkspace(ctx context.Context, workspaceID, actorID int64) error {
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := permission.RequireRole(ctx, tx, workspaceID, actorID, workspace.RoleOwner); err != nil {
			return err
		}
		if err := tx.DeleteWorkspace(ctx, workspaceID); err != nil {
			return notFoundOr(err, apperrors.CodeWorkspaceNotFound, "workspace not found")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "workspace deleted", "workspace_id", workspaceID, "actor_user_id", actorID)
	return nil
}

// ListMembers returns every member with their username, oldest first.
func (s *Service) ListMembers(ctx context.Context, workspaceID, actorID int64) ([]MemberView, error) {
	if _, err := permission.ResolveMembership(ctx, s.store, workspaceID, actorID); err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	return mapViews(members, func(m workspace.Member) MemberView {
		return newMemberView(m.Membership, m.Username)
	}), nil
}

// AddMemberInput adds UserID with Role; an empty role means member.
type AddMemberInput struct {
	UserID int64          `json:"user_id"`
	Role   workspace.Role `json:"role"`
}

// AddMember adds a user to the workspace. Admins cannot grant owner.
func (s *Service) AddMember(ctx context.Context, workspaceID, actorID int64, in AddMemberInput) (MemberView, error) {
	role := workspace.RoleMember
	if in.Role != "" {
		parsed, err := workspace.ParseRole(string(in.Role))
		if err != nil {
			return MemberView{}, err
		}
		role = parsed
	}
	if in.UserID <= 0 {
		return MemberView{}, apperrors.InvalidInput("user_id must be positive")
	}

	var added workspace.Membership
	var username string
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		actor, err := permission.RequireManager(ctx, tx, workspaceID, actorID)
		if err != nil {
			return err
		}
		if err := permission.CheckRoleChange(actor.Role, "", role); err != nil {
			return err
		}
		target, err := tx.GetUser(ctx, in.UserID)
		if err != nil {
			return notFoundOr(err, apperrors.CodeNotFound, "user not found")
		}
		now := s.now().UTC()
		membership := workspace.Membership{
			WorkspaceID: workspaceID,
			UserID:      target.ID,
			Role:        role,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.PutMembership(ctx, membership); err != nil {
			return conflictOr(err, apperrors.CodeWorkspaceMemberExists, "user already in workspace")
		}
		added, username = membership, target.Username
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:     actorID,
			WorkspaceID: workspaceID,
			EntityType:  audit.EntityMembership,
			EntityID:    target.ID,
			Action:      audit.ActionCreate,
			Changes:     map[string]any{"role": role},
		})
	})
	if err != nil {
		return MemberView{}, err
	}
	return newMemberView(added, username), nil
}

// UpdateMemberRole changes a member's role subject to the escalation and
// last-owner guards.
func (s *Service) UpdateMemberRole(ctx context.Context, workspaceID, actorID, targetID int64, rawRole string) (MemberView, error) {
	next, err := workspace.ParseRole(rawRole)
	if err != nil {
		return MemberView{}, err
	}
	var updated workspace.Membership
	err = s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		actor, err := permission.RequireManager(ctx, tx, workspaceID, actorID)
		if err != nil {
			return err
		}
		target, err := loadMember(ctx, tx, workspaceID, targetID)
		if err != nil {
			return err
		}
		if err := permission.CheckRoleChange(actor.Role, target.Role, next); err != nil {
			return err
		}
		if err := permission.GuardLastOwner(ctx, tx, workspaceID, target.Role, next); err != nil {
			return err
		}
		now := s.now().UTC()
		if err := tx.UpdateMembershipRole(ctx, workspaceID, targetID, next, now); err != nil {
			return notFoundOr(err, apperrors.CodeWorkspaceMemberMissing, "member not found")
		}
		previous := target.Role
		target.Role, target.UpdatedAt = next, now
		updated = target
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:     actorID,
			WorkspaceID: workspaceID,
			EntityType:  audit.EntityMembership,
			EntityID:    targetID,
			Action:      audit.ActionUpdateRole,
			Changes:     map[string]any{"from": previous, "to": next},
		})
	})
	if err != nil {
		return MemberView{}, err
	}
	return newMemberView(updated, ""), nil
}

// RemoveMember removes a member subject to the escalation and last-owner
// guards.
func (s *Service) RemoveMember(ctx context.Context, workspaceID, actorID, targetID int64) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		actor, err := permission.RequireManager(ctx, tx, workspaceID, actorID)
		if err != nil {
			return err
		}
		target, err := loadMember(ctx, tx, workspaceID, targetID)
		if err != nil {
			return err
		}
		if err := permission.CheckRoleChange(actor.Role, target.Role, ""); err != nil {
			return err
		}
		if err := permission.GuardLastOwner(ctx, tx, workspaceID, target.Role, ""); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, tx, audit.Entry{
			ActorID:     actorID,
			WorkspaceID: workspaceID,
			EntityType:  audit.EntityMembership,
			EntityID:    targetID,
			Action:      audit.ActionDelete,
			Changes:     map[string]any{"role": target.Role},
		}); err != nil {
			return err
		}
		if err := tx.DeleteMembership(ctx, workspaceID, targetID); err != nil {
			return notFoundOr(err, apperrors.CodeWorkspaceMemberMissing, "member not found")
		}
		return nil
	})
}

func loadMember(ctx context.Context, members storage.MembershipStore, workspaceID, userID int64) (workspace.Membership, error) {
	m, err := members.GetMembership(ctx, workspaceID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return workspace.Membership{}, apperrors.New(apperrors.CodeWorkspaceMemberMissing, "member not found")
		}
		return workspace.Membership{}, fmt.Errorf("load member: %w", err)
	}
	return m, nil
}
