// Package project defines task containers scoped to a workspace.
package project

import (
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/louisbranch/taskhub/internal/platform/errors"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/optional"
)

const (
	MaxNameLength        = 120
	MaxDescriptionLength = 2000
)

// Project groups tasks inside a workspace. Names are unique per workspace.
type Project struct {
	ID          int64
	WorkspaceID int64
	Name        string
	Description *string
	CreatedBy   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateInput describes a new project.
type CreateInput struct {
	Name        string
	Description *string
}

// Patch describes a partial project update.
type Patch struct {
	Name        optional.Field[string]  `json:"name"`
	Description optional.Field[*string] `json:"description"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return !p.Name.Set && !p.Description.Set
}

// NewProject validates input and builds a project.
func NewProject(workspaceID, creatorID int64, input CreateInput, now func() time.Time) (Project, error) {
	name, err := normalizeName(input.Name)
	if err != nil {
		return Project{}, err
	}
	description, err := normalizeDescription(input.Description)
	if err != nil {
		return Project{}, err
	}
	if now == nil {
		now = time.Now
	}
	createdAt := now().UTC()
	return Project{
		WorkspaceID: workspaceID,
		Name:        name,
		Description: description,
		CreatedBy:   creatorID,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}

// Apply validates the patch against p and returns the updated project plus
// the normalized changed fields.
func (p Project) Apply(patch Patch, now func() time.Time) (Project, map[string]any, error) {
	changes := map[string]any{}
	if patch.Name.Set {
		if patch.Name.Null {
			return Project{}, nil, apperrors.InvalidInput("project name must not be null")
		}
		name, err := normalizeName(patch.Name.Value)
		if err != nil {
			return Project{}, nil, err
		}
		p.Name = name
		changes["name"] = name
	}
	if patch.Description.Set {
		description, err := normalizeDescription(patch.Description.Value)
		if err != nil {
			return Project{}, nil, err
		}
		p.Description = description
		changes["description"] = description
	}
	if len(changes) > 0 {
		if now == nil {
			now = time.Now
		}
		p.UpdatedAt = now().UTC()
	}
	return p, changes, nil
}

func normalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return "", apperrors.WithMetadata(apperrors.CodeInvalidInput,
			"project name must be between 1 and 120 characters",
			map[string]string{"Field": "name"})
	}
	return name, nil
}

func normalizeDescription(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	if utf8.RuneCountInString(*raw) > MaxDescriptionLength {
		return nil, apperrors.WithMetadata(apperrors.CodeInvalidInput,
			"project description must be at most 2000 characters",
			map[string]string{"Field": "description"})
	}
	value := *raw
	return &value, nil
}
