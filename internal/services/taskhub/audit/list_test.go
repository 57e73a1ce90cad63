package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/user"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/workspace"
	"github.com/louisbranch/taskhub/internal/services/taskhub/storage/sqlite"
)

func TestListFiltersAndOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "audit.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	owner, err := store.CreateUser(ctx, user.User{Username: "owner", PasswordHash: "x", CreatedAt: fixedClock()})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	ws, _, err := workspace.NewWorkspace("audit", owner.ID, fixedClock)
	if err != nil {
		t.Fatalf("new workspace: %v", err)
	}
	ws, err = store.CreateWorkspace(ctx, ws)
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}

	now := fixedClock()
	recorder := NewRecorder(func() time.Time { return now })
	for i, action := range []string{ActionCreate, ActionUpdate, ActionDelete} {
		now = fixedClock().Add(time.Duration(i) * time.Minute)
		err := recorder.Record(ctx, store, Entry{
			ActorID:     owner.ID,
			WorkspaceID: ws.ID,
			EntityType:  EntityTask,
			EntityID:    int64(10 + i),
			Action:      action,
			Changes:     map[string]any{"step": i, "password": "pw"},
		})
		if err != nil {
			t.Fatalf("record %s: %v", action, err)
		}
	}

	items, total, err := List(ctx, store, ws.ID, Query{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(items) != 3 {
		t.Fatalf("expected 3 items, got %d/%d", len(items), total)
	}
	if items[0].Action != ActionDelete || items[2].Action != ActionCreate {
		t.Fatalf("expected newest first, got %s..%s", items[0].Action, items[2].Action)
	}
	if string(items[0].Changes) != `{"password":"***","step":2}` {
		t.Fatalf("unexpected stored changes %s", items[0].Changes)
	}

	items, total, err = List(ctx, store, ws.ID, Query{Filter: `action != "delete" AND created_at >= timestamp("2026-03-01T12:01:00Z")`})
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].Action != ActionUpdate {
		t.Fatalf("unexpected filtered result %+v (total %d)", items, total)
	}

	items, total, err = List(ctx, store, ws.ID, Query{Limit: 1, Skip: 1})
	if err != nil {
		t.Fatalf("paged list: %v", err)
	}
	if total != 3 || len(items) != 1 || items[0].Action != ActionUpdate {
		t.Fatalf("unexpected page %+v (total %d)", items, total)
	}

	if _, _, err := List(ctx, store, ws.ID, Query{Skip: -1}); err == nil {
		t.Fatal("expected negative skip to fail")
	}
}
