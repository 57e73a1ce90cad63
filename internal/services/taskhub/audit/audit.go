// Package audit records sanitized, append-only change entries for workspace
// mutations and serves the workspace audit listing.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/taskhub/internal/platform/errors"
	"github.com/louisbranch/taskhub/internal/platform/pagination"
	"github.com/louisbranch/taskhub/internal/services/taskhub/storage"
)

// Entity types.
const (
	EntityWorkspace  = "workspace"
	EntityMembership = "workspace_membership"
	EntityProject    = "project"
	EntityTask       = "task"
	EntityComment    = "task_comment"
	EntityTag        = "task_tag"
	EntityWatcher    = "task_watcher"
)

// Actions.
const (
	ActionCreate           = "create"
	ActionUpdate           = "update"
	ActionDelete           = "delete"
	ActionStatusTransition = "status_transition"
	ActionUpdateRole       = "update_role"
)

// Redacted replaces the value of every sensitive key.
const Redacted = "***"

var sensitiveKeys = map[string]struct{}{
	"password":        {},
	"hashed_password": {},
	"token":           {},
	"access_token":    {},
	"refresh_token":   {},
	"secret":          {},
	"secret_key":      {},
	"authorization":   {},
}

// Entry describes one mutation. Changes may be any JSON-encodable value.
type Entry struct {
	ActorID     int64
	WorkspaceID int64
	EntityType  string
	EntityID    int64
	Action      string
	Changes     any
}

// Log is the listing view of an audit row.
type Log struct {
	ID          int64           `json:"id"`
	ActorUserID int64           `json:"actor_user_id"`
	WorkspaceID int64           `json:"workspace_id"`
	EntityType  string          `json:"entity_type"`
	EntityID    int64           `json:"entity_id"`
	Action      string          `json:"action"`
	Changes     json.RawMessage `json:"changes"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Query selects one page of a workspace's audit log.
type Query struct {
	Skip   int
	Limit  int
	Filter string
}

// Recorder writes audit rows.
type Recorder struct {
	now func() time.Time
}

// NewRecorder builds a recorder. A nil clock uses time.Now.
func NewRecorder(now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{now: now}
}

// Record sanitizes entry.Changes and appends it through appender, which is
// expected to be bound to the mutation's transaction.
func (r *Recorder) Record(ctx context.Context, appender storage.AuditStore, entry Entry) error {
	changes, err := encodeChanges(entry.Changes)
	if err != nil {
		return err
	}
	err = appender.AppendAudit(ctx, storage.AuditRecord{
		ActorID:     entry.ActorID,
		WorkspaceID: entry.WorkspaceID,
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		Action:      entry.Action,
		Changes:     changes,
		CreatedAt:   r.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("record audit %s.%s: %w", entry.EntityType, entry.Action, err)
	}
	return nil
}

// List returns a page of the workspace's audit log, newest first, and the
// unpaged total.
func List(ctx context.Context, reader storage.AuditStore, workspaceID int64, q Query) ([]Log, int, error) {
	skip, err := pagination.ClampSkip(q.Skip)
	if err != nil {
		return nil, 0, apperrors.InvalidInput(err.Error())
	}
	condition, err := ParseFilter(q.Filter)
	if err != nil {
		return nil, 0, err
	}
	records, total, err := reader.ListAudit(ctx, workspaceID, storage.AuditQuery{
		Skip:   skip,
		Limit:  pagination.ClampLimit(q.Limit, pagination.DefaultLimits),
		Clause: condition.Clause,
		Params: condition.Params,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list audit: %w", err)
	}
	items := make([]Log, 0, len(records))
	for _, rec := range records {
		item := Log{
			ID:          rec.ID,
			ActorUserID: rec.ActorID,
			WorkspaceID: rec.WorkspaceID,
			EntityType:  rec.EntityType,
			EntityID:    rec.EntityID,
			Action:      rec.Action,
			Changes:     json.RawMessage("null"),
			CreatedAt:   rec.CreatedAt,
		}
		if len(rec.Changes) > 0 {
			item.Changes = json.RawMessage(rec.Changes)
		}
		items = append(items, item)
	}
	return items, total, nil
}

func encodeChanges(changes any) ([]byte, error) {
	if changes == nil {
		return nil, nil
	}
	raw, err := json.Marshal(changes)
	if err != nil {
		return nil, fmt.Errorf("encode audit changes: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("decode audit changes: %w", err)
	}
	generic = Sanitize(generic)
	if isEmpty(generic) {
		return nil, nil
	}
	out, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("encode sanitized changes: %w", err)
	}
	return out, nil
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	}
	return false
}

// Sanitize returns a copy of value with every sensitive key's value replaced
// by Redacted, walking nested maps and slices.
func Sanitize(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			if IsSensitiveKey(key) {
				out[key] = Redacted
				continue
			}
			out[key] = Sanitize(inner)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = Sanitize(inner)
		}
		return out
	default:
		return value
	}
}

// IsSensitiveKey reports whether key names a secret.
func IsSensitiveKey(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}
