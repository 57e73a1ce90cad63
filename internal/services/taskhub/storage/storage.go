// Package storage defines the persistence contract for taskhub. Every
// mutation runs inside Store.InTx so the domain write, its audit entry and
// any idempotency record commit or roll back together.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/collab"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/project"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/task"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/user"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/workspace"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrConflict indicates a uniqueness constraint rejected the write.
var ErrConflict = errors.New("record already exists")

// ErrVersionConflict indicates a conditional update matched no row because
// the stored version moved on.
var ErrVersionConflict = errors.New("version conflict")

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id int64) (user.User, error)
	GetUserByUsername(ctx context.Context, username string) (user.User, error)
}

// WorkspaceStore persists workspaces.
type WorkspaceStore interface {
	CreateWorkspace(ctx context.Context, ws workspace.Workspace) (workspace.Workspace, error)
	GetWorkspace(ctx context.Context, id int64) (workspace.Workspace, error)
	ListWorkspacesForUser(ctx context.Context, userID int64) ([]workspace.Summary, error)
	DeleteWorkspace(ctx context.Context, id int64) error
}

// MembershipStore persists workspace memberships.
type MembershipStore interface {
	GetMembership(ctx context.Context, workspaceID, userID int64) (workspace.Membership, error)
	ListMembers(ctx context.Context, workspaceID int64) ([]workspace.Member, error)
	// PutMembership inserts a membership and returns ErrConflict when the
	// user is already a member.
	PutMembership(ctx context.Context, m workspace.Membership) error
	UpdateMembershipRole(ctx context.Context, workspaceID, userID int64, role workspace.Role, updatedAt time.Time) error
	DeleteMembership(ctx context.Context, workspaceID, userID int64) error
	CountOwners(ctx context.Context, workspaceID int64) (int, error)
}

// ProjectStore persists projects. Name collisions return ErrConflict.
type ProjectStore interface {
	CreateProject(ctx context.Context, p project.Project) (project.Project, error)
	GetProject(ctx context.Context, workspaceID, id int64) (project.Project, error)
	ListProjects(ctx context.Context, workspaceID int64) ([]project.Project, error)
	UpdateProject(ctx context.Context, p project.Project) error
	DeleteProject(ctx context.Context, workspaceID, id int64) error
}

// TaskStore persists tasks.
type TaskStore interface {
	CreateTask(ctx context.Context, t task.Task) (task.Task, error)
	GetTask(ctx context.Context, workspaceID, id int64) (task.Task, error)
	// ListTasks returns one page of tasks plus the unpaged total. The query
	// must already be normalized.
	ListTasks(ctx context.Context, workspaceID int64, q task.ListQuery) ([]task.Task, int, error)
	// UpdateTask writes t only when the stored version equals
	// expectedVersion, returning ErrVersionConflict otherwise.
	UpdateTask(ctx context.Context, t task.Task, expectedVersion int64) error
	DeleteTask(ctx context.Context, workspaceID, id int64) error
}

// CommentStore persists task comments.
type CommentStore interface {
	CreateComment(ctx context.Context, c collab.Comment) (collab.Comment, error)
	GetComment(ctx context.Context, workspaceID, taskID, id int64) (collab.Comment, error)
	ListComments(ctx context.Context, workspaceID, taskID int64) ([]collab.Comment, error)
	UpdateComment(ctx context.Context, c collab.Comment) error
	DeleteComment(ctx context.Context, workspaceID, taskID, id int64) error
}

// TagStore persists task tags. Duplicates return ErrConflict.
type TagStore interface {
	AddTag(ctx context.Context, t collab.Tag) (collab.Tag, error)
	ListTags(ctx context.Context, workspaceID, taskID int64) ([]collab.Tag, error)
	DeleteTag(ctx context.Context, workspaceID, taskID int64, tag string) error
}

// WatcherStore persists task watchers. Duplicates return ErrConflict.
type WatcherStore interface {
	AddWatcher(ctx context.Context, w collab.Watcher) (collab.Watcher, error)
	ListWatchers(ctx context.Context, workspaceID, taskID int64) ([]collab.Watcher, error)
	DeleteWatcher(ctx context.Context, workspaceID, taskID, userID int64) error
}

// AuditRecord is one append-only audit row. Changes holds sanitized JSON or
// nil for an empty change set.
type AuditRecord struct {
	ID          int64
	ActorID     int64
	WorkspaceID int64
	EntityType  string
	EntityID    int64
	Action      string
	Changes     []byte
	CreatedAt   time.Time
}

// AuditQuery pages audit rows newest first. Clause is an optional SQL
// predicate over audit_logs columns with positional Params.
type AuditQuery struct {
	Skip   int
	Limit  int
	Clause string
	Params []any
}

// AuditStore persists audit rows.
type AuditStore interface {
	AppendAudit(ctx context.Context, r AuditRecord) error
	ListAudit(ctx context.Context, workspaceID int64, q AuditQuery) ([]AuditRecord, int, error)
}

// IdempotencyRecord is a stored response for (UserID, Route, Key).
type IdempotencyRecord struct {
	UserID         int64
	Route          string
	Key            string
	RequestHash    string
	ResponseStatus int
	ResponseBody   []byte
	ResourceType   string
	ResourceID     int64
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// IdempotencyStore persists idempotency records.
type IdempotencyStore interface {
	GetIdempotency(ctx context.Context, userID int64, route, key string) (IdempotencyRecord, error)
	// PutIdempotency inserts or replaces the record for its (user, route, key).
	PutIdempotency(ctx context.Context, r IdempotencyRecord) error
	PurgeIdempotency(ctx context.Context, before time.Time) (int64, error)
}

// Tx is the full set of stores bound to one transaction.
type Tx interface {
	UserStore
	WorkspaceStore
	MembershipStore
	ProjectStore
	TaskStore
	CommentStore
	TagStore
	WatcherStore
	AuditStore
	IdempotencyStore
}

// Store is the root persistence handle. Reads may use it directly; writes go
// through InTx.
type Store interface {
	Tx
	// InTx runs fn in a single transaction, committing when fn returns nil
	// and rolling back otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}
