package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/project"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/task"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/user"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/workspace"
)

var testEpoch = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taskhub.sqlite")
	store, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func seedUser(t *testing.T, store *Store, name string) user.User {
	t.Helper()
	u, err := store.CreateUser(context.Background(), user.User{
		Username:     name,
		PasswordHash: "hash",
		CreatedAt:    testEpoch,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	return u
}

func seedWorkspace(t *testing.T, store *Store, owner user.User) workspace.Workspace {
	t.Helper()
	ctx := context.Background()
	ws, membership, err := workspace.NewWorkspace(fmt.Sprintf("ws-%d", owner.ID), owner.ID, func() time.Time { return testEpoch })
	if err != nil {
		t.Fatalf("new workspace: %v", err)
	}
	ws, err = store.CreateWorkspace(ctx, ws)
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	membership.WorkspaceID = ws.ID
	if err := store.PutMembership(ctx, membership); err != nil {
		t.Fatalf("put owner membership: %v", err)
	}
	return ws
}

func seedMember(t *testing.T, store *Store, ws workspace.Workspace, u user.User, role workspace.Role) {
	t.Helper()
	err := store.PutMembership(context.Background(), workspace.Membership{
		WorkspaceID: ws.ID,
		UserID:      u.ID,
		Role:        role,
		CreatedAt:   testEpoch,
		UpdatedAt:   testEpoch,
	})
	if err != nil {
		t.Fatalf("seed member: %v", err)
	}
}

func seedProject(t *testing.T, store *Store, ws workspace.Workspace, name string) project.Project {
	t.Helper()
	p, err := project.NewProject(ws.ID, ws.CreatedBy, project.CreateInput{Name: name}, func() time.Time { return testEpoch })
	if err != nil {
		t.Fatalf("new project: %v", err)
	}
	p, err = store.CreateProject(context.Background(), p)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func seedTask(t *testing.T, store *Store, p project.Project, title string, createdAt time.Time) task.Task {
	t.Helper()
	tk, err := task.NewTask(p.WorkspaceID, p.ID, p.CreatedBy, task.CreateInput{Title: title}, func() time.Time { return createdAt })
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	tk, err = store.CreateTask(context.Background(), tk)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return tk
}
