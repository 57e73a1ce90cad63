package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/workspace"
	"github.com/louisbranch/taskhub/internal/services/taskhub/storage"
)

// CreateWorkspace inserts a workspace and returns it with its id.
func (s *Store) CreateWorkspace(ctx context.Context, ws workspace.Workspace) (workspace.Workspace, error) {
	if err := s.ready(ctx); err != nil {
		return workspace.Workspace{}, err
	}
	result, err := s.q.ExecContext(ctx,
		`INSERT INTO workspaces (name, created_by, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		ws.Name, ws.CreatedBy, toMillis(ws.CreatedAt), toMillis(ws.UpdatedAt),
	)
	if err != nil {
		return workspace.Workspace{}, fmt.Errorf("insert workspace: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return workspace.Workspace{}, fmt.Errorf("workspace id: %w", err)
	}
	ws.ID = id
	return ws, nil
}

// GetWorkspace fetches a workspace by id.
func (s *Store) GetWorkspace(ctx context.Context, id int64) (workspace.Workspace, error) {
	if err := s.ready(ctx); err != nil {
		return workspace.Workspace{}, err
	}
	var (
		ws                   workspace.Workspace
		createdAt, updatedAt int64
	)
	err := s.q.QueryRowContext(ctx,
		`SELECT id, name, created_by, created_at, updated_at FROM workspaces WHERE id = ?`, id,
	).Scan(&ws.ID, &ws.Name, &ws.CreatedBy, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return workspace.Workspace{}, storage.ErrNotFound
		}
		return workspace.Workspace{}, fmt.Errorf("get workspace: %w", err)
	}
	ws.CreatedAt = fromMillis(createdAt)
	ws.UpdatedAt = fromMillis(updatedAt)
	return ws, nil
}

// ListWorkspacesForUser returns the workspaces userID belongs to, newest first,
// with the user's role in each.
func (s *Store) ListWorkspacesForUser(ctx context.Context, userID int64) ([]workspace.Summary, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx, `
SELECT w.id, w.name, w.created_by, w.created_at, w.updated_at, m.role
FROM workspaces w
JOIN workspace_memberships m ON m.workspace_id = w.id
WHERE m.user_id = ?
ORDER BY w.created_at DESC, w.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	var out []workspace.Summary
	for rows.Next() {
		var (
			summary              workspace.Summary
			createdAt, updatedAt int64
			role                 string
		)
		if err := rows.Scan(&summary.ID, &summary.Name, &summary.CreatedBy, &createdAt, &updatedAt, &role); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		summary.CreatedAt = fromMillis(createdAt)
		summary.UpdatedAt = fromMillis(updatedAt)
		summary.Role = workspace.Role(role)
		out = append(out, summary)
	}
	return out, rows.Err()
}

// DeleteWorkspace removes a workspace and, through foreign keys, everything
// it owns.
func (s *Store) DeleteWorkspace(ctx context.Context, id int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.q.ExecContext(ctx, `DELETE FROM workspaces WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete workspace: %w", err)
	}
	return requireAffected(result)
}

// GetMembership fetches the membership of userID in workspaceID.
func (s *Store) GetMembership(ctx context.Context, workspaceID, userID int64) (workspace.Membership, error) {
	if err := s.ready(ctx); err != nil {
		return workspace.Membership{}, err
	}
	var (
		m                    workspace.Membership
		role                 string
		createdAt, updatedAt int64
	)
	err := s.q.QueryRowContext(ctx, `
SELECT workspace_id, user_id, role, created_at, updated_at
FROM workspace_memberships
WHERE workspace_id = ? AND user_id = ?`, workspaceID, userID,
	).Scan(&m.WorkspaceID, &m.UserID, &role, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return workspace.Membership{}, storage.ErrNotFound
		}
		return workspace.Membership{}, fmt.Errorf("get membership: %w", err)
	}
	m.Role = workspace.Role(role)
	m.CreatedAt = fromMillis(createdAt)
	m.UpdatedAt = fromMillis(updatedAt)
	return m, nil
}

// ListMembers returns a workspace's members with usernames, oldest first.
func (s *Store) ListMembers(ctx context.Context, workspaceID int64) ([]workspace.Member, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx, `
SELECT m.workspace_id, m.user_id, m.role, m.created_at, m.updated_at, u.username
FROM workspace_memberships m
JOIN users u ON u.id = m.user_id
WHERE m.workspace_id = ?
ORDER BY m.created_at ASC, m.user_id ASC`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []workspace.Member
	for rows.Next() {
		var (
			member               workspace.Member
			role                 string
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&member.WorkspaceID, &member.UserID, &role, &createdAt, &updatedAt, &member.Username); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		member.Role = workspace.Role(role)
		member.CreatedAt = fromMillis(createdAt)
		member.UpdatedAt = fromMillis(updatedAt)
		out = append(out, member)
	}
	return out, rows.Err()
}

// PutMembership inserts a membership. An existing one returns
// storage.ErrConflict.
func (s *Store) PutMembership(ctx context.Context, m workspace.Membership) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.q.ExecContext(ctx, `
INSERT INTO workspace_memberships (workspace_id, user_id, role, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)`,
		m.WorkspaceID, m.UserID, string(m.Role), toMillis(m.CreatedAt), toMillis(m.UpdatedAt),
	)
	if err != nil {
		return translateInsertError("insert membership", err)
	}
	return nil
}

// UpdateMembershipRole changes a member's role.
func (s *Store) UpdateMembershipRole(ctx context.Context, workspaceID, userID int64, role workspace.Role, updatedAt time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.q.ExecContext(ctx, `
UPDATE workspace_memberships SET role = ?, updated_at = ?
WHERE workspace_id = ? AND user_id = ?`,
		string(role), toMillis(updatedAt), workspaceID, userID,
	)
	if err != nil {
		return fmt.Errorf("update membership: %w", err)
	}
	return requireAffected(result)
}

// DeleteMembership removes a member from a workspace.
func (s *Store) DeleteMembership(ctx context.Context, workspaceID, userID int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.q.ExecContext(ctx,
		`DELETE FROM workspace_memberships WHERE workspace_id = ? AND user_id = ?`, workspaceID, userID)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	return requireAffected(result)
}

// CountOwners returns how many owners a workspace has. Callers that act on the
// count must do so in the same transaction.
func (s *Store) CountOwners(ctx context.Context, workspaceID int64) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var count int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM workspace_memberships WHERE workspace_id = ? AND role = 'owner'`, workspaceID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count owners: %w", err)
	}
	return count, nil
}
