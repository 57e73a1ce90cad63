package service

import (
	"context"

	apperrors "github.com/louisbranch/taskhub/internal/platform/errors"
	"github.com/louisbranch/taskhub/internal/services/taskhub/audit"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/project"
	"github.com/louisbranch/taskhub/internal/services/taskhub/permission"
	"github.com/louisbranch/taskhub/internal/services/taskhub/storage"
)

const projectNameTaken = "project name already exists in workspace"

// CreateProjectInput describes a new project.
type CreateProjectInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// CreateProject adds a project. Owners and admins only.
func (s *Service) CreateProject(ctx context.Context, workspaceID, actorID int64, in CreateProjectInput) (ProjectView, error) {
	p, err := project.NewProject(workspaceID, actorID, project.CreateInput{Name: in.Name, Description: in.Description}, s.now)
	if err != nil {
		return ProjectView{}, err
	}
	err = s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := permission.RequireManager(ctx, tx, workspaceID, actorID); err != nil {
			return err
		}
		created, err := tx.CreateProject(ctx, p)
		if err != nil {
			return conflictOr(err, apperrors.CodeProjectNameTaken, projectNameTaken)
		}
		p = created
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:     actorID,
			WorkspaceID: workspaceID,
			EntityType:  audit.EntityProject,
			EntityID:    created.ID,
			Action:      audit.ActionCreate,
			Changes:     map[string]any{"name": created.Name},
		})
	})
	if err != nil {
		return ProjectView{}, err
	}
	return newProjectView(p), nil
}

// ListProjects returns the workspace's projects.
func (s *Service) ListProjects(ctx context.Context, workspaceID, actorID int64) ([]ProjectView, error) {
	if _, err := permission.ResolveMembership(ctx, s.store, workspaceID, actorID); err != nil {
		return nil, err
	}
	projects, err := s.store.ListProjects(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	return mapViews(projects, newProjectView), nil
}

// GetProject returns one project.
func (s *Service) GetProject(ctx context.Context, workspaceID, projectID, actorID int64) (ProjectView, error) {
	if _, err := permission.ResolveMembership(ctx, s.store, workspaceID, actorID); err != nil {
		return ProjectView{}, err
	}
	p, err := loadProject(ctx, s.store, workspaceID, projectID)
	if err != nil {
		return ProjectView{}, err
	}
	return newProjectView(p), nil
}

// UpdateProject applies a partial update. Owners and admins only.
func (s *Service) UpdateProject(ctx context.Context, workspaceID, projectID, actorID int64, patch project.Patch) (ProjectView, error) {
	var result project.Project
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := permission.RequireManager(ctx, tx, workspaceID, actorID); err != nil {
			return err
		}
		current, err := loadProject(ctx, tx, workspaceID, projectID)
		if err != nil {
			return err
		}
		next, changes, err := current.Apply(patch, s.now)
		if err != nil {
			return err
		}
		result = next
		if len(changes) == 0 {
			return nil
		}
		if err := tx.UpdateProject(ctx, next); err != nil {
			err = notFoundOr(err, apperrors.CodeProjectNotFound, "project not found")
			return conflictOr(err, apperrors.CodeProjectNameTaken, projectNameTaken)
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:     actorID,
			WorkspaceID: workspaceID,
			EntityType:  audit.EntityProject,
			EntityID:    projectID,
			Action:      audit.ActionUpdate,
			Changes:     changes,
		})
	})
	if err != nil {
		return ProjectView{}, err
	}
	return newProjectView(result), nil
}

// DeleteProject removes a project and its tasks. Owners and admins only.
func (s *Service) DeleteProject(ctx context.Context, workspaceID, projectID, actorID int64) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := permission.RequireManager(ctx, tx, workspaceID, actorID); err != nil {
			return err
		}
		p, err := loadProject(ctx, tx, workspaceID, projectID)
		if err != nil {
			return err
		}
		if err := s.audit.Record(ctx, tx, audit.Entry{
			ActorID:     actorID,
			WorkspaceID: workspaceID,
			EntityType:  audit.EntityProject,
			EntityID:    projectID,
			Action:      audit.ActionDelete,
			Changes:     map[string]any{"name": p.Name},
		}); err != nil {
			return err
		}
		if err := tx.DeleteProject(ctx, workspaceID, projectID); err != nil {
			return notFoundOr(err, apperrors.CodeProjectNotFound, "project not found")
		}
		return nil
	})
}

func loadProject(ctx context.Context, projects storage.ProjectStore, workspaceID, projectID int64) (project.Project, error) {
	p, err := projects.GetProject(ctx, workspaceID, projectID)
	if err != nil {
		return project.Project{}, notFoundOr(err, apperrors.CodeProjectNotFound, "project not found")
	}
	return p, nil
}
