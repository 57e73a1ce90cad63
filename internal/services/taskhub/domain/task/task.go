// Package task defines tasks, their lifecycle and list queries.
package task

import (
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/louisbranch/taskhub/internal/platform/errors"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/optional"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 5000
)

// Task is a unit of work inside a project. Version increments on every
// successful mutation and starts at 1.
type Task struct {
	ID          int64
	WorkspaceID int64
	ProjectID   int64
	Title       string
	Description *string
	Status      Status
	CreatedBy   int64
	AssigneeID  *int64
	DueAt       *time.Time
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateInput describes a new task.
type CreateInput struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	AssigneeID  *int64     `json:"assignee_id"`
	DueAt       *time.Time `json:"due_at"`
}

// Patch describes a partial task update. Absent fields are left untouched and
// null clears nullable fields.
type Patch struct {
	Title       optional.Field[string]     `json:"title"`
	Description optional.Field[*string]    `json:"description"`
	AssigneeID  optional.Field[*int64]     `json:"assignee_id"`
	DueAt       optional.Field[*time.Time] `json:"due_at"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return !p.Title.Set && !p.Description.Set && !p.AssigneeID.Set && !p.DueAt.Set
}

// NewAssignee returns the assignee the patch sets, when it sets a non-null one.
func (p Patch) NewAssignee() (int64, bool) {
	if !p.AssigneeID.Set || p.AssigneeID.Value == nil {
		return 0, false
	}
	return *p.AssigneeID.Value, true
}

// NewTask validates input and builds a todo task at version 1.
func NewTask(workspaceID, projectID, creatorID int64, input CreateInput, now func() time.Time) (Task, error) {
	title, err := normalizeTitle(input.Title)
	if err != nil {
		return Task{}, err
	}
	if err := validateDescription(input.Description); err != nil {
		return Task{}, err
	}
	if now == nil {
		now = time.Now
	}
	createdAt := now().UTC()
	return Task{
		WorkspaceID: workspaceID,
		ProjectID:   projectID,
		Title:       title,
		Description: cloneString(input.Description),
		Status:      StatusTodo,
		CreatedBy:   creatorID,
		AssigneeID:  cloneInt(input.AssigneeID),
		DueAt:       utcTime(input.DueAt),
		Version:     1,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}

// Apply validates the patch and returns the patched task with its version
// bumped, plus the changed fields keyed by their wire names. The caller
// persists the result conditionally on t.Version.
func (t Task) Apply(patch Patch, now func() time.Time) (Task, map[string]any, error) {
	next := t
	changes := map[string]any{}

	if patch.Title.Set {
		if patch.Title.Null {
			return Task{}, nil, apperrors.WithMetadata(apperrors.CodeInvalidInput,
				"title must not be null", map[string]string{"Field": "title"})
		}
		title, err := normalizeTitle(patch.Title.Value)
		if err != nil {
			return Task{}, nil, err
		}
		next.Title = title
		changes["title"] = title
	}
	if patch.Description.Set {
		if err := validateDescription(patch.Description.Value); err != nil {
			return Task{}, nil, err
		}
		next.Description = cloneString(patch.Description.Value)
		changes["description"] = next.Description
	}
	if patch.AssigneeID.Set {
		next.AssigneeID = cloneInt(patch.AssigneeID.Value)
		changes["assignee_id"] = next.AssigneeID
	}
	if patch.DueAt.Set {
		next.DueAt = utcTime(patch.DueAt.Value)
		changes["due_at"] = next.DueAt
	}

	if len(changes) == 0 {
		return t, changes, nil
	}
	if now == nil {
		now = time.Now
	}
	next.Version = t.Version + 1
	next.UpdatedAt = now().UTC()
	return next, changes, nil
}

// WithStatus returns the task moved to status with its version bumped. The
// transition table must be checked by the caller.
func (t Task) WithStatus(status Status, now func() time.Time) Task {
	if now == nil {
		now = time.Now
	}
	t.Status = status
	t.Version++
	t.UpdatedAt = now().UTC()
	return t
}

// InvolvesUser reports whether userID created or is assigned to the task.
func (t Task) InvolvesUser(userID int64) bool {
	if t.CreatedBy == userID {
		return true
	}
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

func normalizeTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" || utf8.RuneCountInString(title) > MaxTitleLength {
		return "", apperrors.WithMetadata(apperrors.CodeInvalidInput,
			"title must be between 1 and 200 characters",
			map[string]string{"Field": "title"})
	}
	return title, nil
}

func validateDescription(description *string) error {
	if description != nil && utf8.RuneCountInString(*description) > MaxDescriptionLength {
		return apperrors.WithMetadata(apperrors.CodeInvalidInput,
			"description must be at most 5000 characters",
			map[string]string{"Field": "description"})
	}
	return nil
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func cloneInt(value *int64) *int64 {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func utcTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	v := value.UTC().Truncate(time.Millisecond)
	return &v
}
