package task

import (
	"fmt"
	"slices"
	"strings"

	apperrors "github.com/louisbranch/taskhub/internal/platform/errors"
)

// Status is a task lifecycle state.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusDone       Status = "done"
)

var transitions = map[Status][]Status{
	StatusTodo:       {StatusInProgress},
	StatusInProgress: {StatusBlocked, StatusDone},
	StatusBlocked:    {StatusInProgress},
	StatusDone:       {StatusInProgress},
}

// ParseStatus validates a status string.
func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := transitions[status]; !ok {
		return "", apperrors.WithMetadata(apperrors.CodeInvalidInput,
			"status must be one of todo, in_progress, blocked, done",
			map[string]string{"Status": value})
	}
	return status, nil
}

// AllowedTransitions returns the statuses reachable from s in one step.
func AllowedTransitions(s Status) []Status {
	return slices.Clone(transitions[s])
}

// ValidateTransition rejects any move not listed in the transition table,
// including staying in place.
func ValidateTransition(from, to Status) error {
	if slices.Contains(transitions[from], to) {
		return nil
	}
	allowed := make([]string, 0, len(transitions[from]))
	for _, next := range AllowedTransitions(from) {
		allowed = append(allowed, string(next))
	}
	return apperrors.WithMetadata(
		apperrors.CodeTaskInvalidStatusTransition,
		fmt.Sprintf("invalid status transition: %s -> %s", from, to),
		map[string]string{
			"FromStatus":      string(from),
			"ToStatus":        string(to),
			"AllowedStatuses": strings.Join(allowed, ","),
		},
	)
}
