package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/collab"
	"github.com/louisbranch/taskhub/internal/services/taskhub/storage"
)

// CreateComment inserts a comment.
func (s *Store) CreateComment(ctx context.Context, c collab.Comment) (collab.Comment, error) {
	if err := s.ready(ctx); err != nil {
		return collab.Comment{}, err
	}
	result, err := s.q.ExecContext(ctx, `
INSERT INTO task_comments (workspace_id, task_id, author_id, content, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		c.WorkspaceID, c.TaskID, c.AuthorID, c.Content, toMillis(c.CreatedAt), toMillis(c.UpdatedAt),
	)
	if err != nil {
		return collab.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return collab.Comment{}, fmt.Errorf("comment id: %w", err)
	}
	c.ID = id
	return c, nil
}

// GetComment fetches a comment scoped to its workspace and task.
func (s *Store) GetComment(ctx context.Context, workspaceID, taskID, id int64) (collab.Comment, error) {
	if err := s.ready(ctx); err != nil {
		return collab.Comment{}, err
	}
	row := s.q.QueryRowContext(ctx, `
SELECT id, workspace_id, task_id, author_id, content, created_at, updated_at
FROM task_comments WHERE workspace_id = ? AND task_id = ? AND id = ?`, workspaceID, taskID, id)
	c, err := scanComment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return collab.Comment{}, storage.ErrNotFound
		}
		return collab.Comment{}, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

// ListComments returns a task's comments, oldest first.
func (s *Store) ListComments(ctx context.Context, workspaceID, taskID int64) ([]collab.Comment, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx, `
SELECT id, workspace_id, task_id, author_id, content, created_at, updated_at
FROM task_comments WHERE workspace_id = ? AND task_id = ?
ORDER BY created_at ASC, id ASC`, workspaceID, taskID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var out []collab.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateComment writes a comment's content.
func (s *Store) UpdateComment(ctx context.Context, c collab.Comment) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.q.ExecContext(ctx, `
UPDATE task_comments SET content = ?, updated_at = ?
WHERE workspace_id = ? AND task_id = ? AND id = ?`,
		c.Content, toMillis(c.UpdatedAt), c.WorkspaceID, c.TaskID, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	return requireAffected(result)
}

// DeleteComment removes a comment.
func (s *Store) DeleteComment(ctx context.Context, workspaceID, taskID, id int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.q.ExecContext(ctx,
		`DELETE FROM task_comments WHERE workspace_id = ? AND task_id = ? AND id = ?`, workspaceID, taskID, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return requireAffected(result)
}

// AddTag inserts a tag. A duplicate on the same task returns
// storage.ErrConflict.
func (s *Store) AddTag(ctx context.Context, t collab.Tag) (collab.Tag, error) {
	if err := s.ready(ctx); err != nil {
		return collab.Tag{}, err
	}
	result, err := s.q.ExecContext(ctx,
		`INSERT INTO task_tags (workspace_id, task_id, tag, created_at) VALUES (?, ?, ?, ?)`,
		t.WorkspaceID, t.TaskID, t.Tag, toMillis(t.CreatedAt),
	)
	if err != nil {
		return collab.Tag{}, translateInsertError("insert tag", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return collab.Tag{}, fmt.Errorf("tag id: %w", err)
	}
	t.ID = id
	return t, nil
}

// ListTags returns a task's tags alphabetically.
func (s *Store) ListTags(ctx context.Context, workspaceID, taskID int64) ([]collab.Tag, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx, `
SELECT id, workspace_id, task_id, tag, created_at
FROM task_tags WHERE workspace_id = ? AND task_id = ?
ORDER BY tag ASC`, workspaceID, taskID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var out []collab.Tag
	for rows.Next() {
		var (
			t         collab.Tag
			createdAt int64
		)
		if err := rows.Scan(&t.ID, &t.WorkspaceID, &t.TaskID, &t.Tag, &createdAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		t.CreatedAt = fromMillis(createdAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTag removes a tag by value.
func (s *Store) DeleteTag(ctx context.Context, workspaceID, taskID int64, tag string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.q.ExecContext(ctx,
		`DELETE FROM task_tags WHERE workspace_id = ? AND task_id = ? AND tag = ?`, workspaceID, taskID, tag)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	return requireAffected(result)
}

// AddWatcher inserts a watcher. A duplicate returns storage.ErrConflict.
func (s *Store) AddWatcher(ctx context.Context, w collab.Watcher) (collab.Watcher, error) {
	if err := s.ready(ctx); err != nil {
		return collab.Watcher{}, err
	}
	result, err := s.q.ExecContext(ctx,
		`INSERT INTO task_watchers (workspace_id, task_id, user_id, created_at) VALUES (?, ?, ?, ?)`,
		w.WorkspaceID, w.TaskID, w.UserID, toMillis(w.CreatedAt),
	)
	if err != nil {
		return collab.Watcher{}, translateInsertError("insert watcher", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return collab.Watcher{}, fmt.Errorf("watcher id: %w", err)
	}
	w.ID = id
	return w, nil
}

// ListWatchers returns a task's watchers in the order they subscribed.
func (s *Store) ListWatchers(ctx context.Context, workspaceID, taskID int64) ([]collab.Watcher, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx, `
SELECT id, workspace_id, task_id, user_id, created_at
FROM task_watchers WHERE workspace_id = ? AND task_id = ?
ORDER BY created_at ASC, id ASC`, workspaceID, taskID)
	if err != nil {
		return nil, fmt.Errorf("list watchers: %w", err)
	}
	defer rows.Close()

	var out []collab.Watcher
	for rows.Next() {
		var (
			w         collab.Watcher
			createdAt int64
		)
		if err := rows.Scan(&w.ID, &w.WorkspaceID, &w.TaskID, &w.UserID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan watcher: %w", err)
		}
		w.CreatedAt = fromMillis(createdAt)
		out = append(out, w)
	}
	return out, rows.Err()
}

// DeleteWatcher unsubscribes a user from a task.
func (s *Store) DeleteWatcher(ctx context.Context, workspaceID, taskID, userID int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.q.ExecContext(ctx,
		`DELETE FROM task_watchers WHERE workspace_id = ? AND task_id = ? AND user_id = ?`, workspaceID, taskID, userID)
	if err != nil {
		return fmt.Errorf("delete watcher: %w", err)
	}
	return requireAffected(result)
}

func scanComment(row rowScanner) (collab.Comment, error) {
	var (
		c                    collab.Comment
		createdAt, updatedAt int64
	)
	if err := row.Scan(&c.ID, &c.WorkspaceID, &c.TaskID, &c.AuthorID, &c.Content, &createdAt, &updatedAt); err != nil {
		return collab.Comment{}, err
	}
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return c, nil
}
