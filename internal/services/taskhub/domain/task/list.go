package task

import (
	"strings"
	"time"

	apperrors "github.com/louisbranch/taskhub/internal/platform/errors"
	"github.com/louisbranch/taskhub/internal/platform/pagination"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/collab"
)

// Sort keys accepted by task listings.
const (
	SortCreatedAt = "created_at"
	SortUpdatedAt = "updated_at"
	SortDueAt     = "due_at"
	SortStatus    = "status"
	SortID        = "id"
)

var sortConfig = pagination.SortConfig{
	Default: SortCreatedAt,
	Allowed: []string{SortCreatedAt, SortUpdatedAt, SortDueAt, SortStatus, SortID},
}

// ListQuery filters and orders a workspace's tasks.
type ListQuery struct {
	ProjectID  *int64
	Status     *Status
	AssigneeID *int64
	Tag        string
	DueFrom    *time.Time
	DueTo      *time.Time
	SortBy     string
	Order      pagination.Order
	Skip       int
	Limit      int
}

// Normalize applies defaults and validates bounds. Limits outside 1..100 are
// clamped rather than rejected. The tag filter is normalized the same way
// stored tags are.
func (q ListQuery) Normalize() (ListQuery, error) {
	sortBy, err := pagination.NormalizeSort(q.SortBy, sortConfig)
	if err != nil {
		return ListQuery{}, apperrors.InvalidInput(err.Error())
	}
	q.SortBy = sortBy

	if q.Order == "" {
		q.Order = pagination.Desc
	}
	if q.Order != pagination.Asc && q.Order != pagination.Desc {
		return ListQuery{}, apperrors.InvalidInput("sort_order must be asc or desc")
	}

	skip, err := pagination.ClampSkip(q.Skip)
	if err != nil {
		return ListQuery{}, apperrors.InvalidInput(err.Error())
	}
	q.Skip = skip
	q.Limit = pagination.ClampLimit(q.Limit, pagination.DefaultLimits)

	if strings.TrimSpace(q.Tag) == "" {
		q.Tag = ""
	} else if q.Tag, err = collab.NormalizeTag(q.Tag); err != nil {
		return ListQuery{}, err
	}

	if q.DueFrom != nil {
		from := q.DueFrom.UTC()
		q.DueFrom = &from
	}
	if q.DueTo != nil {
		to := q.DueTo.UTC()
		q.DueTo = &to
	}
	if q.DueFrom != nil && q.DueTo != nil && q.DueFrom.After(*q.DueTo) {
		return ListQuery{}, apperrors.InvalidInput("due_at_from cannot be greater than due_at_to")
	}
	return q, nil
}
