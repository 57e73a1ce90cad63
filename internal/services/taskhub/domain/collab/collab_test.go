package collab

import (
	"strings"
	"testing"
	"time"
)

func fixedNow() time.Time { return time.Date(2026, 2, 2, 2, 2, 2, 0, time.UTC) }

func TestNewComment(t *testing.T) {
	c, err := NewComment(1, 2, 3, "looks good", fixedNow)
	if err != nil {
		t.Fatalf("new comment: %v", err)
	}
	if c.AuthorID != 3 || c.Content != "looks good" || !c.CreatedAt.Equal(fixedNow()) {
		t.Fatalf("unexpected comment: %+v", c)
	}
	if _, err := NewComment(1, 2, 3, "   ", fixedNow); err == nil {
		t.Fatal("expected blank content error")
	}
	if _, err := NewComment(1, 2, 3, strings.Repeat("c", MaxCommentLength+1), fixedNow); err == nil {
		t.Fatal("expected long content error")
	}
}

func TestNormalizeTagFoldsUnicode(t *testing.T) {
	composed, err := NormalizeTag("caf\u00e9")
	if err != nil {
		t.Fatalf("normalize composed: %v", err)
	}
	decomposed, err := NormalizeTag("  cafe\u0301 ")
	if err != nil {
		t.Fatalf("normalize decomposed: %v", err)
	}
	if composed != decomposed {
		t.Fatalf("expected equal tags, got %q and %q", composed, decomposed)
	}
}

func TestNormalizeTagBounds(t *testing.T) {
	if _, err := NormalizeTag(" "); err == nil {
		t.Fatal("expected empty tag error")
	}
	if _, err := NormalizeTag(strings.Repeat("t", MaxTagLength+1)); err == nil {
		t.Fatal("expected long tag error")
	}
}

func TestNewWatcher(t *testing.T) {
	w := NewWatcher(1, 2, 3, fixedNow)
	if w.UserID != 3 || w.TaskID != 2 || !w.CreatedAt.Equal(fixedNow()) {
		t.Fatalf("unexpected watcher: %+v", w)
	}
}
