package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/project"
	"github.com/louisbranch/taskhub/internal/services/taskhub/storage"
)

const projectColumns = `id, workspace_id, name, description, created_by, created_at, updated_at`

// CreateProject inserts a project. A duplicate name in the workspace returns
// storage.ErrConflict.
func (s *Store) CreateProject(ctx context.Context, p project.Project) (project.Project, error) {
	if err := s.ready(ctx); err != nil {
		return project.Project{}, err
	}
	result, err := s.q.ExecContext(ctx, `
INSERT INTO projects (workspace_id, name, description, created_by, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		p.WorkspaceID, p.Name, toNullString(p.Description), p.CreatedBy, toMillis(p.CreatedAt), toMillis(p.UpdatedAt),
	)
	if err != nil {
		return project.Project{}, translateInsertError("insert project", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return project.Project{}, fmt.Errorf("project id: %w", err)
	}
	p.ID = id
	return p, nil
}

// GetProject fetches a project scoped to its workspace.
func (s *Store) GetProject(ctx context.Context, workspaceID, id int64) (project.Project, error) {
	if err := s.ready(ctx); err != nil {
		return project.Project{}, err
	}
	row := s.q.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE workspace_id = ? AND id = ?`, workspaceID, id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return project.Project{}, storage.ErrNotFound
		}
		return project.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// ListProjects returns a workspace's projects, newest first.
func (s *Store) ListProjects(ctx context.Context, workspaceID int64) ([]project.Project, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE workspace_id = ? ORDER BY created_at DESC, id DESC`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateProject writes a project's mutable fields.
func (s *Store) UpdateProject(ctx context.Context, p project.Project) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.q.ExecContext(ctx, `
UPDATE projects SET name = ?, description = ?, updated_at = ?
WHERE workspace_id = ? AND id = ?`,
		p.Name, toNullString(p.Description), toMillis(p.UpdatedAt), p.WorkspaceID, p.ID,
	)
	if err != nil {
		return translateInsertError("update project", err)
	}
	return requireAffected(result)
}

// DeleteProject removes a project and its tasks.
func (s *Store) DeleteProject(ctx context.Context, workspaceID, id int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.q.ExecContext(ctx, `DELETE FROM projects WHERE workspace_id = ? AND id = ?`, workspaceID, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return requireAffected(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (project.Project, error) {
	var (
		p                    project.Project
		description          sql.NullString
		createdAt, updatedAt int64
	)
	if err := row.Scan(&p.ID, &p.WorkspaceID, &p.Name, &description, &p.CreatedBy, &createdAt, &updatedAt); err != nil {
		return project.Project{}, err
	}
	p.Description = fromNullString(description)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return p, nil
}
