package service

import (
	"time"

	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/collab"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/project"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/task"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/user"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/workspace"
)

// UserView is an account without its credentials.
type UserView struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserView(u user.User) UserView {
	return UserView{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt}
}

// WorkspaceView is a workspace plus the caller's role in it.
type WorkspaceView struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	CreatedBy int64          `json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Role      workspace.Role `json:"role"`
}

func newWorkspaceView(ws workspace.Workspace, role workspace.Role) WorkspaceView {
	return WorkspaceView{
		ID:        ws.ID,
		Name:      ws.Name,
		CreatedBy: ws.CreatedBy,
		CreatedAt: ws.CreatedAt,
		UpdatedAt: ws.UpdatedAt,
		Role:      role,
	}
}

// MemberView is one workspace membership.
type MemberView struct {
	UserID    int64          `json:"user_id"`
	Username  string         `json:"username,omitempty"`
	Role      workspace.Role `json:"role"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func newMemberView(m workspace.Membership, username string) MemberView {
	return MemberView{
		UserID:    m.UserID,
		Username:  username,
		Role:      m.Role,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ProjectView is the wire form of a project.
type ProjectView struct {
	ID          int64     `json:"id"`
	WorkspaceID int64     `json:"workspace_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newProjectView(p project.Project) ProjectView {
	return ProjectView{
		ID:          p.ID,
		WorkspaceID: p.WorkspaceID,
		Name:        p.Name,
		Description: p.Description,
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// TaskView is the wire form of a task. It is also the body stored for
// idempotent replays.
type TaskView struct {
	ID          int64       `json:"id"`
	WorkspaceID int64       `json:"workspace_id"`
	ProjectID   int64       `json:"project_id"`
	Title       string      `json:"title"`
	Description *string     `json:"description"`
	Status      task.Status `json:"status"`
	CreatorID   int64       `json:"creator_id"`
	AssigneeID  *int64      `json:"assignee_id"`
	DueAt       *time.Time  `json:"due_at"`
	Version     int64       `json:"version"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewTaskView converts a task.
func NewTaskView(t task.Task) TaskView {
	return TaskView{
		ID:          t.ID,
		WorkspaceID: t.WorkspaceID,
		ProjectID:   t.ProjectID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		CreatorID:   t.CreatedBy,
		AssigneeID:  t.AssigneeID,
		DueAt:       t.DueAt,
		Version:     t.Version,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// CommentView is the wire form of a comment.
type CommentView struct {
	ID          int64     `json:"id"`
	WorkspaceID int64     `json:"workspace_id"`
	TaskID      int64     `json:"task_id"`
	AuthorID    int64     `json:"author_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newCommentView(c collab.Comment) CommentView {
	return CommentView{
		ID:          c.ID,
		WorkspaceID: c.WorkspaceID,
		TaskID:      c.TaskID,
		AuthorID:    c.AuthorID,
		Content:     c.Content,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// TagView is the wire form of a tag.
type TagView struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	Tag       string    `json:"tag"`
	CreatedAt time.Time `json:"created_at"`
}

func newTagView(t collab.Tag) TagView {
	return TagView{ID: t.ID, TaskID: t.TaskID, Tag: t.Tag, CreatedAt: t.CreatedAt}
}

// WatcherView is the wire form of a watcher.
type WatcherView struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func newWatcherView(w collab.Watcher) WatcherView {
	return WatcherView{ID: w.ID, TaskID: w.TaskID, UserID: w.UserID, CreatedAt: w.CreatedAt}
}

func mapViews[T, V any](items []T, convert func(T) V) []V {
	out := make([]V, 0, len(items))
	for _, item := range items {
		out = append(out, convert(item))
	}
	return out
}
