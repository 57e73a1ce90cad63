package service

import (
	"context"

	apperrors "github.com/louisbranch/taskhub/internal/platform/errors"
	"github.com/louisbranch/taskhub/internal/services/taskhub/audit"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/collab"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/workspace"
	"github.com/louisbranch/taskhub/internal/services/taskhub/permission"
	"github.com/louisbranch/taskhub/internal/services/taskhub/storage"
)

// TaskRef addresses a task inside a workspace on behalf of an actor.
type TaskRef struct {
	WorkspaceID int64
	TaskID      int64
	ActorID     int64
}

// memberOfTask resolves the actor's membership and checks the task exists in
// the workspace.
func memberOfTask(ctx context.Context, tx storage.Tx, ref TaskRef) (workspace.Membership, error) {
	membership, err := permission.ResolveMembership(ctx, tx, ref.WorkspaceID, ref.ActorID)
	if err != nil {
		return workspace.Membership{}, err
	}
	if _, err := loadTask(ctx, tx, ref.WorkspaceID, ref.TaskID); err != nil {
		return workspace.Membership{}, err
	}
	return membership, nil
}

// readTask runs a read-only lookup under the same membership and task checks
// as mutations.
func (s *Service) readTask(ctx context.Context, ref TaskRef, fn func(ctx context.Context, tx storage.Tx) error) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := memberOfTask(ctx, tx, ref); err != nil {
			return err
		}
		return fn(ctx, tx)
	})
}

// CreateComment adds a comment as the actor.
func (s *Service) CreateComment(ctx context.Context, ref TaskRef, content string) (CommentView, error) {
	draft, err := collab.NewComment(ref.WorkspaceID, ref.TaskID, ref.ActorID, content, s.now)
	if err != nil {
		return CommentView{}, err
	}
	err = s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := memberOfTask(ctx, tx, ref); err != nil {
			return err
		}
		created, err := tx.CreateComment(ctx, draft)
		if err != nil {
			return err
		}
		draft = created
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:     ref.ActorID,
			WorkspaceID: ref.WorkspaceID,
			EntityType:  audit.EntityComment,
			EntityID:    created.ID,
			Action:      audit.ActionCreate,
			Changes:     map[string]any{"task_id": ref.TaskID},
		})
	})
	if err != nil {
		return CommentView{}, err
	}
	return newCommentView(draft), nil
}

// ListComments returns a task's comments, oldest first.
func (s *Service) ListComments(ctx context.Context, ref TaskRef) ([]CommentView, error) {
	var comments []collab.Comment
	err := s.readTask(ctx, ref, func(ctx context.Context, tx storage.Tx) error {
		var err error
		comments, err = tx.ListComments(ctx, ref.WorkspaceID, ref.TaskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return mapViews(comments, newCommentView), nil
}

// UpdateComment rewrites a comment. Only its author may do so.
func (s *Service) UpdateComment(ctx context.Context, ref TaskRef, commentID int64, content string) (CommentView, error) {
	normalized, err := collab.NormalizeContent(content)
	if err != nil {
		return CommentView{}, err
	}
	var result collab.Comment
	err = s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := memberOfTask(ctx, tx, ref); err != nil {
			return err
		}
		comment, err := loadComment(ctx, tx, ref, commentID)
		if err != nil {
			return err
		}
		if comment.AuthorID != ref.ActorID {
			return apperrors.New(apperrors.CodeForbidden, "only the comment author can edit this comment")
		}
		previous := comment.Content
		comment.Content = normalized
		comment.UpdatedAt = s.now().UTC()
		if err := tx.UpdateComment(ctx, comment); err != nil {
			return notFoundOr(err, apperrors.CodeCommentNotFound, "comment not found")
		}
		result = comment
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:     ref.ActorID,
			WorkspaceID: ref.WorkspaceID,
			EntityType:  audit.EntityComment,
			EntityID:    commentID,
			Action:      audit.ActionUpdate,
			Changes:     map[string]any{"from": previous, "to": normalized},
		})
	})
	if err != nil {
		return CommentView{}, err
	}
	return newCommentView(result), nil
}

// DeleteComment removes a comment. Its author and workspace managers may.
func (s *Service) DeleteComment(ctx context.Context, ref TaskRef, commentID int64) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		membership, err := memberOfTask(ctx, tx, ref)
		if err != nil {
			return err
		}
		comment, err := loadComment(ctx, tx, ref, commentID)
		if err != nil {
			return err
		}
		if comment.AuthorID != ref.ActorID && !membership.Role.IsManager() {
			return apperrors.New(apperrors.CodeForbidden, "not allowed to delete this comment")
		}
		if err := s.audit.Record(ctx, tx, audit.Entry{
			ActorID:     ref.ActorID,
			WorkspaceID: ref.WorkspaceID,
			EntityType:  audit.EntityComment,
			EntityID:    commentID,
			Action:      audit.ActionDelete,
			Changes:     map[string]any{"author_id": comment.AuthorID},
		}); err != nil {
			return err
		}
		if err := tx.DeleteComment(ctx, ref.WorkspaceID, ref.TaskID, commentID); err != nil {
			return notFoundOr(err, apperrors.CodeCommentNotFound, "comment not found")
		}
		return nil
	})
}

func loadComment(ctx context.Context, comments storage.CommentStore, ref TaskRef, commentID int64) (collab.Comment, error) {
	c, err := comments.GetComment(ctx, ref.WorkspaceID, ref.TaskID, commentID)
	if err != nil {
		return collab.Comment{}, notFoundOr(err, apperrors.CodeCommentNotFound, "comment not found")
	}
	return c, nil
}

// AddTag labels a task. Labels are unique per task.
func (s *Service) AddTag(ctx context.Context, ref TaskRef, label string) (TagView, error) {
	draft, err := collab.NewTag(ref.WorkspaceID, ref.TaskID, label, s.now)
	if err != nil {
		return TagView{}, err
	}
	err = s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := memberOfTask(ctx, tx, ref); err != nil {
			return err
		}
		created, err := tx.AddTag(ctx, draft)
		if err != nil {
			return conflictOr(err, apperrors.CodeTagExists, "tag already exists for this task")
		}
		draft = created
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:     ref.ActorID,
			WorkspaceID: ref.WorkspaceID,
			EntityType:  audit.EntityTag,
			EntityID:    created.ID,
			Action:      audit.ActionCreate,
			Changes:     map[string]any{"tag": created.Tag, "task_id": ref.TaskID},
		})
	})
	if err != nil {
		return TagView{}, err
	}
	return newTagView(draft), nil
}

// ListTags returns a task's tags.
func (s *Service) ListTags(ctx context.Context, ref TaskRef) ([]TagView, error) {
	var tags []collab.Tag
	err := s.readTask(ctx, ref, func(ctx context.Context, tx storage.Tx) error {
		var err error
		tags, err = tx.ListTags(ctx, ref.WorkspaceID, ref.TaskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return mapViews(tags, newTagView), nil
}

// DeleteTag removes a label from a task.
func (s *Service) DeleteTag(ctx context.Context, ref TaskRef, label string) error {
	normalized, err := collab.NormalizeTag(label)
	if err != nil {
		return err
	}
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := memberOfTask(ctx, tx, ref); err != nil {
			return err
		}
		tags, err := tx.ListTags(ctx, ref.WorkspaceID, ref.TaskID)
		if err != nil {
			return err
		}
		var found *collab.Tag
		for i := range tags {
			if tags[i].Tag == normalized {
				found = &tags[i]
				break
			}
		}
		if found == nil {
			return apperrors.New(apperrors.CodeTagNotFound, "tag not found")
		}
		if err := s.audit.Record(ctx, tx, audit.Entry{
			ActorID:     ref.ActorID,
			WorkspaceID: ref.WorkspaceID,
			EntityType:  audit.EntityTag,
			EntityID:    found.ID,
			Action:      audit.ActionDelete,
			Changes:     map[string]any{"tag": found.Tag, "task_id": ref.TaskID},
		}); err != nil {
			return err
		}
		if err := tx.DeleteTag(ctx, ref.WorkspaceID, ref.TaskID, normalized); err != nil {
			return notFoundOr(err, apperrors.CodeTagNotFound, "tag not found")
		}
		return nil
	})
}

// AddWatcher subscribes a workspace member to a task.
func (s *Service) AddWatcher(ctx context.Context, ref TaskRef, userID int64) (WatcherView, error) {
	if userID <= 0 {
		return WatcherView{}, apperrors.InvalidInput("user_id must be positive")
	}
	draft := collab.NewWatcher(ref.WorkspaceID, ref.TaskID, userID, s.now)
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := memberOfTask(ctx, tx, ref); err != nil {
			return err
		}
		if err := permission.EnsureMember(ctx, tx, ref.WorkspaceID, userID); err != nil {
			return err
		}
		created, err := tx.AddWatcher(ctx, draft)
		if err != nil {
			return conflictOr(err, apperrors.CodeWatcherExists, "watcher already exists for this task")
		}
		draft = created
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:     ref.ActorID,
			WorkspaceID: ref.WorkspaceID,
			EntityType:  audit.EntityWatcher,
			EntityID:    created.ID,
			Action:      audit.ActionCreate,
			Changes:     map[string]any{"task_id": ref.TaskID, "user_id": userID},
		})
	})
	if err != nil {
		return WatcherView{}, err
	}
	return newWatcherView(draft), nil
}

// ListWatchers returns a task's watchers.
func (s *Service) ListWatchers(ctx context.Context, ref TaskRef) ([]WatcherView, error) {
	var watchers []collab.Watcher
	err := s.readTask(ctx, ref, func(ctx context.Context, tx storage.Tx) error {
		var err error
		watchers, err = tx.ListWatchers(ctx, ref.WorkspaceID, ref.TaskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return mapViews(watchers, newWatcherView), nil
}

// DeleteWatcher unsubscribes userID from a task.
func (s *Service) DeleteWatcher(ctx context.Context, ref TaskRef, userID int64) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := memberOfTask(ctx, tx, ref); err != nil {
			return err
		}
		watchers, err := tx.ListWatchers(ctx, ref.WorkspaceID, ref.TaskID)
		if err != nil {
			return err
		}
		var found *collab.Watcher
		for i := range watchers {
			if watchers[i].UserID == userID {
				found = &watchers[i]
				break
			}
		}
		if found == nil {
			return apperrors.New(apperrors.CodeWatcherNotFound, "watcher not found")
		}
		if err := s.audit.Record(ctx, tx, audit.Entry{
			ActorID:     ref.ActorID,
			WorkspaceID: ref.WorkspaceID,
			EntityType:  audit.EntityWatcher,
			EntityID:    found.ID,
			Action:      audit.ActionDelete,
			Changes:     map[string]any{"task_id": ref.TaskID, "user_id": userID},
		}); err != nil {
			return err
		}
		if err := tx.DeleteWatcher(ctx, ref.WorkspaceID, ref.TaskID, userID); err != nil {
			return notFoundOr(err, apperrors.CodeWatcherNotFound, "watcher not found")
		}
		return nil
	})
}
