package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/louisbranch/taskhub/internal/platform/errors"
	"github.com/louisbranch/taskhub/internal/services/taskhub/audit"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/task"
	"github.com/louisbranch/taskhub/internal/services/taskhub/idempotency"
	"github.com/louisbranch/taskhub/internal/services/taskhub/permission"
	"github.com/louisbranch/taskhub/internal/services/taskhub/storage"
)

// ResourceTask labels idempotency records that point at tasks.
const ResourceTask = "task"

// CreateTaskInput describes a task creation request. Route scopes the
// idempotency key and is usually the request path.
type CreateTaskInput struct {
	WorkspaceID    int64
	ProjectID      int64
	ActorID        int64
	Task           task.CreateInput
	IdempotencyKey string
	Route          string
}

// CreateResult carries the response to send. Body is the exact JSON stored
// for replays; Replayed is true when it came from the ledger.
type CreateResult struct {
	StatusCode int
	Body       []byte
	Task       TaskView
	Replayed   bool
}

// CreateTask inserts a task. With an idempotency key, a retry carrying the
// same payload returns the first response verbatim and a different payload is
// a Conflict.
func (s *Service) CreateTask(ctx context.Context, in CreateTaskInput) (CreateResult, error) {
	key, err := idempotency.NormalizeKey(in.IdempotencyKey)
	if err != nil {
		return CreateResult{}, err
	}
	draft, err := task.NewTask(in.WorkspaceID, in.ProjectID, in.ActorID, in.Task, s.now)
	if err != nil {
		return CreateResult{}, err
	}
	var requestHash string
	if key != "" {
		if requestHash, err = idempotency.RequestHash(newCreatePayload(draft)); err != nil {
			return CreateResult{}, err
		}
	}

	var result CreateResult
	err = s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := permission.ResolveMembership(ctx, tx, in.WorkspaceID, in.ActorID); err != nil {
			return err
		}
		if _, err := loadProject(ctx, tx, in.WorkspaceID, in.ProjectID); err != nil {
			return err
		}
		if draft.AssigneeID != nil {
			if err := permission.EnsureMember(ctx, tx, in.WorkspaceID, *draft.AssigneeID); err != nil {
				return err
			}
		}

		if key != "" {
			replay, err := s.ledger.Lookup(ctx, tx, in.ActorID, in.Route, key, requestHash)
			if err != nil {
				return err
			}
			if replay.Found {
				result = CreateResult{StatusCode: replay.StatusCode, Body: replay.Body, Replayed: true}
				if err := json.Unmarshal(replay.Body, &result.Task); err != nil {
					return fmt.Errorf("decode replayed task: %w", err)
				}
				return nil
			}
		}

		created, err := tx.CreateTask(ctx, draft)
		if err != nil {
			return err
		}
		view := NewTaskView(created)
		body, err := json.Marshal(view)
		if err != nil {
			return fmt.Errorf("encode task: %w", err)
		}
		if err := s.audit.Record(ctx, tx, audit.Entry{
			ActorID:     in.ActorID,
			WorkspaceID: in.WorkspaceID,
			EntityType:  audit.EntityTask,
			EntityID:    created.ID,
			Action:      audit.ActionCreate,
			Changes: map[string]any{
				"project_id":  in.ProjectID,
				"title":       created.Title,
				"assignee_id": created.AssigneeID,
				"due_at":      created.DueAt,
			},
		}); err != nil {
			return err
		}
		if key != "" {
			if err := s.ledger.Save(ctx, tx, idempotency.Entry{
				UserID:       in.ActorID,
				Route:        in.Route,
				Key:          key,
				RequestHash:  requestHash,
				StatusCode:   http.StatusCreated,
				Body:         body,
				ResourceType: ResourceTask,
				ResourceID:   created.ID,
			}); err != nil {
				return err
			}
		}
		result = CreateResult{StatusCode: http.StatusCreated, Body: body, Task: view}
		return nil
	})
	if err != nil {
		return CreateResult{}, err
	}
	return result, nil
}

// createPayload is the hashed form of a create request. It is built from the
// validated draft so retries that differ only in whitespace or in the UTC
// offset of due_at hash identically.
type createPayload struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	AssigneeID  *int64     `json:"assignee_id"`
	DueAt       *time.Time `json:"due_at"`
}

func newCreatePayload(draft task.Task) createPayload {
	return createPayload{
		Title:       draft.Title,
		Description: draft.Description,
		AssigneeID:  draft.AssigneeID,
		DueAt:       draft.DueAt,
	}
}

// GetTask returns one task to a workspace member.
func (s *Service) GetTask(ctx context.Context, workspaceID, taskID, actorID int64) (TaskView, error) {
	if _, err := permission.ResolveMembership(ctx, s.store, workspaceID, actorID); err != nil {
		return TaskView{}, err
	}
	t, err := loadTask(ctx, s.store, workspaceID, taskID)
	if err != nil {
		return TaskView{}, err
	}
	return NewTaskView(t), nil
}

// ListTasks returns one filtered, sorted page of the workspace's tasks.
func (s *Service) ListTasks(ctx context.Context, workspaceID, actorID int64, q task.ListQuery) (Page[TaskView], error) {
	if _, err := permission.ResolveMembership(ctx, s.store, workspaceID, actorID); err != nil {
		return Page[TaskView]{}, err
	}
	normalized, err := q.Normalize()
	if err != nil {
		return Page[TaskView]{}, err
	}
	tasks, total, err := s.store.ListTasks(ctx, workspaceID, normalized)
	if err != nil {
		return Page[TaskView]{}, err
	}
	return Page[TaskView]{
		Items: mapViews(tasks, NewTaskView),
		Total: total,
		Skip:  normalized.Skip,
		Limit: normalized.Limit,
	}, nil
}

// UpdateTaskInput is a versioned partial update.
type UpdateTaskInput struct {
	Version int64 `json:"version"`
	task.Patch
}

// UpdateTask applies a partial update when Version matches the stored
// version. An empty patch returns the task unchanged without writing.
func (s *Service) UpdateTask(ctx context.Context, workspaceID, taskID, actorID int64, in UpdateTaskInput) (TaskView, error) {
	if in.Version < 1 {
		return TaskView{}, apperrors.WithMetadata(apperrors.CodeInvalidInput,
			"version must be >= 1", map[string]string{"Field": "version"})
	}
	var result task.Task
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		current, err := s.loadManagedTask(ctx, tx, workspaceID, taskID, actorID)
		if err != nil {
			return err
		}
		if in.Version != current.Version {
			return versionConflict(current.Version, in.Version)
		}
		if assignee, ok := in.Patch.NewAssignee(); ok {
			if err := permission.EnsureMember(ctx, tx, workspaceID, assignee); err != nil {
				return err
			}
		}
		next, changes, err := current.Apply(in.Patch, s.now)
		if err != nil {
			return err
		}
		result = next
		if len(changes) == 0 {
			return nil
		}
		if err := tx.UpdateTask(ctx, next, current.Version); err != nil {
			return translateTaskWrite(err)
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:     actorID,
			WorkspaceID: workspaceID,
			EntityType:  audit.EntityTask,
			EntityID:    taskID,
			Action:      audit.ActionUpdate,
			Changes: map[string]any{
				"changes":      changes,
				"version_from": current.Version,
				"version_to":   next.Version,
			},
		})
	})
	if err != nil {
		return TaskView{}, err
	}
	return NewTaskView(result), nil
}

// TransitionTask moves a task along the status table.
func (s *Service) TransitionTask(ctx context.Context, workspaceID, taskID, actorID int64, toStatus string) (TaskView, error) {
	to, err := task.ParseStatus(toStatus)
	if err != nil {
		return TaskView{}, err
	}
	var result task.Task
	err = s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		current, err := s.loadManagedTask(ctx, tx, workspaceID, taskID, actorID)
		if err != nil {
			return err
		}
		if err := task.ValidateTransition(current.Status, to); err != nil {
			return err
		}
		next := current.WithStatus(to, s.now)
		if err := tx.UpdateTask(ctx, next, current.Version); err != nil {
			return translateTaskWrite(err)
		}
		result = next
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:     actorID,
			WorkspaceID: workspaceID,
			EntityType:  audit.EntityTask,
			EntityID:    taskID,
			Action:      audit.ActionStatusTransition,
			Changes: map[string]any{
				"from":         current.Status,
				"to":           to,
				"version_from": current.Version,
				"version_to":   next.Version,
			},
		})
	})
	if err != nil {
		return TaskView{}, err
	}
	return NewTaskView(result), nil
}

// DeleteTask removes a task and its comments, tags and watchers.
func (s *Service) DeleteTask(ctx context.Context, workspaceID, taskID, actorID int64) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		current, err := s.loadManagedTask(ctx, tx, workspaceID, taskID, actorID)
		if err != nil {
			return err
		}
		if err := s.audit.Record(ctx, tx, audit.Entry{
			ActorID:     actorID,
			WorkspaceID: workspaceID,
			EntityType:  audit.EntityTask,
			EntityID:    taskID,
			Action:      audit.ActionDelete,
			Changes:     map[string]any{"title": current.Title},
		}); err != nil {
			return err
		}
		if err := tx.DeleteTask(ctx, workspaceID, taskID); err != nil {
			return notFoundOr(err, apperrors.CodeTaskNotFound, "task not found")
		}
		return nil
	})
}

// loadManagedTask resolves the caller's membership, loads the task and checks
// the caller may mutate it.
func (s *Service) loadManagedTask(ctx context.Context, tx storage.Tx, workspaceID, taskID, actorID int64) (task.Task, error) {
	membership, err := permission.ResolveMembership(ctx, tx, workspaceID, actorID)
	if err != nil {
		return task.Task{}, err
	}
	current, err := loadTask(ctx, tx, workspaceID, taskID)
	if err != nil {
		return task.Task{}, err
	}
	if err := permission.RequireTaskManager(membership, current); err != nil {
		return task.Task{}, err
	}
	return current, nil
}

func versionConflict(current, supplied int64) error {
	return apperrors.WithMetadata(apperrors.CodeTaskVersionConflict, "task version conflict",
		map[string]string{
			"CurrentVersion":  fmt.Sprint(current),
			"SuppliedVersion": fmt.Sprint(supplied),
		})
}

func translateTaskWrite(err error) error {
	switch {
	case errors.Is(err, storage.ErrVersionConflict):
		return apperrors.Wrap(apperrors.CodeTaskVersionConflict, "task version conflict", err)
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.New(apperrors.CodeTaskNotFound, "task not found")
	default:
		return err
	}
}
