package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/task"
	"github.com/louisbranch/taskhub/internal/services/taskhub/storage"
)

const taskColumns = `t.id, t.workspace_id, t.project_id, t.title, t.description, t.status, t.created_by,
t.assignee_id, t.due_at, t.version, t.created_at, t.updated_at`

// sortColumns maps validated sort keys onto columns. Only keys present here
// are ever interpolated into SQL.
var sortColumns = map[string]string{
	task.SortCreatedAt: "t.created_at",
	task.SortUpdatedAt: "t.updated_at",
	task.SortDueAt:     "t.due_at",
	task.SortStatus:    "t.status",
	task.SortID:        "t.id",
}

// CreateTask inserts a task and returns it with its id.
func (s *Store) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	if err := s.ready(ctx); err != nil {
		return task.Task{}, err
	}
	result, err := s.q.ExecContext(ctx, `
INSERT INTO tasks (workspace_id, project_id, title, description, status, created_by, assignee_id, due_at, version, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.WorkspaceID, t.ProjectID, t.Title, toNullString(t.Description), string(t.Status), t.CreatedBy,
		toNullInt(t.AssigneeID), toNullMillis(t.DueAt), t.Version, toMillis(t.CreatedAt), toMillis(t.UpdatedAt),
	)
	if err != nil {
		return task.Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return task.Task{}, fmt.Errorf("task id: %w", err)
	}
	t.ID = id
	return t, nil
}

// GetTask fetches a task scoped to its workspace.
func (s *Store) GetTask(ctx context.Context, workspaceID, id int64) (task.Task, error) {
	if err := s.ready(ctx); err != nil {
		return task.Task{}, err
	}
	row := s.q.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks t WHERE t.workspace_id = ? AND t.id = ?`, workspaceID, id)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return task.Task{}, storage.ErrNotFound
		}
		return task.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListTasks returns one page of a workspace's tasks and the unpaged total.
func (s *Store) ListTasks(ctx context.Context, workspaceID int64, q task.ListQuery) ([]task.Task, int, error) {
	if err := s.ready(ctx); err != nil {
		return nil, 0, err
	}
	column, ok := sortColumns[q.SortBy]
	if !ok {
		return nil, 0, fmt.Errorf("unsupported sort key %q", q.SortBy)
	}
	direction := q.Order.SQL()

	where := []string{"t.workspace_id = ?"}
	args := []any{workspaceID}
	if q.ProjectID != nil {
		where = append(where, "t.project_id = ?")
		args = append(args, *q.ProjectID)
	}
	if q.Status != nil {
		where = append(where, "t.status = ?")
		args = append(args, string(*q.Status))
	}
	if q.AssigneeID != nil {
		where = append(where, "t.assignee_id = ?")
		args = append(args, *q.AssigneeID)
	}
	if q.Tag != "" {
		where = append(where, "EXISTS (SELECT 1 FROM task_tags tt WHERE tt.task_id = t.id AND tt.tag = ?)")
		args = append(args, q.Tag)
	}
	if q.DueFrom != nil {
		where = append(where, "t.due_at >= ?")
		args = append(args, toMillis(*q.DueFrom))
	}
	if q.DueTo != nil {
		where = append(where, "t.due_at <= ?")
		args = append(args, toMillis(*q.DueTo))
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks t WHERE `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	orderSQL := column + " " + direction
	if column != "t.id" {
		orderSQL += ", t.id " + direction
	}
	pageArgs := append(append([]any{}, args...), q.Limit, q.Skip)
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks t WHERE `+whereSQL+` ORDER BY `+orderSQL+` LIMIT ? OFFSET ?`,
		pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	items := make([]task.Task, 0, q.Limit)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan task: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate tasks: %w", err)
	}
	return items, total, nil
}

// UpdateTask writes every mutable field of t, conditional on the stored
// version still being expectedVersion.
func (s *Store) UpdateTask(ctx context.Context, t task.Task, expectedVersion int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.q.ExecContext(ctx, `
UPDATE tasks
SET title = ?, description = ?, status = ?, assignee_id = ?, due_at = ?, version = ?, updated_at = ?
WHERE workspace_id = ? AND id = ? AND version = ?`,
		t.Title, toNullString(t.Description), string(t.Status), toNullInt(t.AssigneeID), toNullMillis(t.DueAt),
		t.Version, toMillis(t.UpdatedAt), t.WorkspaceID, t.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrVersionConflict
	}
	return nil
}

// DeleteTask removes a task and its comments, tags and watchers.
func (s *Store) DeleteTask(ctx context.Context, workspaceID, id int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.q.ExecContext(ctx, `DELETE FROM tasks WHERE workspace_id = ? AND id = ?`, workspaceID, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return requireAffected(result)
}

func scanTask(row rowScanner) (task.Task, error) {
	var (
		t                    task.Task
		description          sql.NullString
		status               string
		assignee, dueAt      sql.NullInt64
		createdAt, updatedAt int64
	)
	if err := row.Scan(&t.ID, &t.WorkspaceID, &t.ProjectID, &t.Title, &description, &status, &t.CreatedBy,
		&assignee, &dueAt, &t.Version, &createdAt, &updatedAt); err != nil {
		return task.Task{}, err
	}
	t.Description = fromNullString(description)
	t.Status = task.Status(status)
	t.AssigneeID = fromNullInt(assignee)
	t.DueAt = fromNullMillis(dueAt)
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	return t, nil
}
