package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/louisbranch/taskhub/internal/services/taskhub/storage"
)

// AppendAudit inserts one audit row.
func (s *Store) AppendAudit(ctx context.Context, r storage.AuditRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	var changes sql.NullString
	if len(r.Changes) > 0 {
		changes = sql.NullString{String: string(r.Changes), Valid: true}
	}
	_, err := s.q.ExecContext(ctx, `
INSERT INTO audit_logs (actor_user_id, workspace_id, entity_type, entity_id, action, changes, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ActorID, r.WorkspaceID, r.EntityType, r.EntityID, r.Action, changes, toMillis(r.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// ListAudit returns one page of a workspace's audit rows, newest first, and
// the unpaged total.
func (s *Store) ListAudit(ctx context.Context, workspaceID int64, q storage.AuditQuery) ([]storage.AuditRecord, int, error) {
	if err := s.ready(ctx); err != nil {
		return nil, 0, err
	}
	where := "workspace_id = ?"
	args := []any{workspaceID}
	if q.Clause != "" {
		where += " AND (" + q.Clause + ")"
		args = append(args, q.Params...)
	}

	var total int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit: %w", err)
	}

	pageArgs := append(append([]any{}, args...), q.Limit, q.Skip)
	rows, err := s.q.QueryContext(ctx, `
SELECT id, actor_user_id, workspace_id, entity_type, entity_id, action, changes, created_at
FROM audit_logs WHERE `+where+`
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	items := make([]storage.AuditRecord, 0, q.Limit)
	for rows.Next() {
		var (
			r         storage.AuditRecord
			changes   sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&r.ID, &r.ActorID, &r.WorkspaceID, &r.EntityType, &r.EntityID, &r.Action, &changes, &createdAt); err != nil {
			return nil, 0, fmt.Errorf("scan audit: %w", err)
		}
		if changes.Valid {
			r.Changes = []byte(changes.String)
		}
		r.CreatedAt = fromMillis(createdAt)
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate audit: %w", err)
	}
	return items, total, nil
}
