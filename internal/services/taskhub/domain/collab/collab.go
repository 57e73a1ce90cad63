// Package collab defines the discussion and tracking records attached to a
// task: comments, tags and watchers.
package collab

import (
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/louisbranch/taskhub/internal/platform/errors"
	"golang.org/x/text/unicode/norm"
)

const (
	MaxCommentLength = 5000
	MaxTagLength     = 50
)

// Comment is a member's note on a task.
type Comment struct {
	ID          int64
	WorkspaceID int64
	TaskID      int64
	AuthorID    int64
	Content     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Tag is a free-form label, unique per task.
type Tag struct {
	ID          int64
	WorkspaceID int64
	TaskID      int64
	Tag         string
	CreatedAt   time.Time
}

// Watcher subscribes a member to a task, unique per (task, user).
type Watcher struct {
	ID          int64
	WorkspaceID int64
	TaskID      int64
	UserID      int64
	CreatedAt   time.Time
}

// NewComment validates content and builds a comment.
func NewComment(workspaceID, taskID, authorID int64, content string, now func() time.Time) (Comment, error) {
	normalized, err := NormalizeContent(content)
	if err != nil {
		return Comment{}, err
	}
	createdAt := clock(now)
	return Comment{
		WorkspaceID: workspaceID,
		TaskID:      taskID,
		AuthorID:    authorID,
		Content:     normalized,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}

// NewTag normalizes the label and builds a tag.
func NewTag(workspaceID, taskID int64, label string, now func() time.Time) (Tag, error) {
	normalized, err := NormalizeTag(label)
	if err != nil {
		return Tag{}, err
	}
	return Tag{WorkspaceID: workspaceID, TaskID: taskID, Tag: normalized, CreatedAt: clock(now)}, nil
}

// NewWatcher builds a watcher record.
func NewWatcher(workspaceID, taskID, userID int64, now func() time.Time) Watcher {
	return Watcher{WorkspaceID: workspaceID, TaskID: taskID, UserID: userID, CreatedAt: clock(now)}
}

// NormalizeContent checks comment content length. Content is kept verbatim
// apart from the blank check.
func NormalizeContent(raw string) (string, error) {
	n := utf8.RuneCountInString(raw)
	if strings.TrimSpace(raw) == "" || n > MaxCommentLength {
		return "", apperrors.WithMetadata(apperrors.CodeInvalidInput,
			"content must be between 1 and 5000 characters",
			map[string]string{"Field": "content"})
	}
	return raw, nil
}

// NormalizeTag trims and NFC-normalizes a tag so visually equal labels
// collide on the uniqueness constraint.
func NormalizeTag(raw string) (string, error) {
	tag := norm.NFC.String(strings.TrimSpace(raw))
	n := utf8.RuneCountInString(tag)
	if n == 0 || n > MaxTagLength {
		return "", apperrors.WithMetadata(apperrors.CodeInvalidInput,
			"tag must be between 1 and 50 characters",
			map[string]string{"Field": "tag"})
	}
	return tag, nil
}

func clock(now func() time.Time) time.Time {
	if now == nil {
		now = time.Now
	}
	return now().UTC()
}
