package service

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "github.com/louisbranch/taskhub/internal/platform/errors"
	"github.com/louisbranch/taskhub/internal/platform/pagination"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/optional"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/task"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/workspace"
)

func createTask(t *testing.T, f *fixture, ws WorkspaceView, p ProjectView, actor UserView, title string) TaskView {
	t.Helper()
	res, err := f.svc.CreateTask(context.Background(), CreateTaskInput{
		WorkspaceID: ws.ID,
		ProjectID:   p.ID,
		ActorID:     actor.ID,
		Task:        task.CreateInput{Title: title},
	})
	if err != nil {
		t.Fatalf("create task %q: %v", title, err)
	}
	return res.Task
}

func TestCreateTaskStartsTodoAtVersionOne(t *testing.T) {
	f := newFixture(t)
	owner := f.register(t, "owner")
	ws := f.workspace(t, owner)
	p := f.project(t, ws, owner, "alpha")

	res, err := f.svc.CreateTask(context.Background(), CreateTaskInput{
		WorkspaceID: ws.ID,
		ProjectID:   p.ID,
		ActorID:     owner.ID,
		Task:        task.CreateInput{Title: "  write docs ", AssigneeID: ptr(owner.ID)},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.StatusCode != http.StatusCreated || res.Replayed {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Task.Status != task.StatusTodo || res.Task.Version != 1 || res.Task.Title != "write docs" {
		t.Fatalf("unexpected task %+v", res.Task)
	}
	var decoded TaskView
	if err := json.Unmarshal(res.Body, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.ID != res.Task.ID {
		t.Fatalf("body id %d != task id %d", decoded.ID, res.Task.ID)
	}
	if n := f.auditCount(t, ws, owner, `entity_type = "task" AND action = "create"`); n != 1 {
		t.Fatalf("expected one create audit, got %d", n)
	}
}

func TestCreateTaskValidatesScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner")
	stranger := f.register(t, "stranger")
	ws := f.workspace(t, owner)
	p := f.project(t, ws, owner, "alpha")
	otherWS := f.workspace(t, stranger)
	otherProject := f.project(t, otherWS, stranger, "beta")

	_, err := f.svc.CreateTask(ctx, CreateTaskInput{WorkspaceID: ws.ID, ProjectID: p.ID, ActorID: stranger.ID, Task: task.CreateInput{Title: "x"}})
	requireCode(t, err, apperrors.CodeWorkspaceNotFound)

	_, err = f.svc.CreateTask(ctx, CreateTaskInput{WorkspaceID: ws.ID, ProjectID: otherProject.ID, ActorID: owner.ID, Task: task.CreateInput{Title: "x"}})
	requireCode(t, err, apperrors.CodeProjectNotFound)

	_, err = f.svc.CreateTask(ctx, CreateTaskInput{WorkspaceID: ws.ID, ProjectID: p.ID, ActorID: owner.ID, Task: task.CreateInput{Title: "x", AssigneeID: ptr(stranger.ID)}})
	requireCode(t, err, apperrors.CodeUserNotInWorkspace)

	_, err = f.svc.CreateTask(ctx, CreateTaskInput{WorkspaceID: ws.ID, ProjectID: p.ID, ActorID: owner.ID, Task: task.CreateInput{Title: "   "}})
	requireKind(t, err, apperrors.KindBadRequest)
}

func TestCreateTaskIdempotentReplay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner")
	ws := f.workspace(t, owner)
	p := f.project(t, ws, owner, "alpha")

	in := CreateTaskInput{
		WorkspaceID:    ws.ID,
		ProjectID:      p.ID,
		ActorID:        owner.ID,
		Task:           task.CreateInput{Title: "once"},
		IdempotencyKey: "key-1",
		Route:          "/workspaces/1/projects/1/tasks",
	}
	first, err := f.svc.CreateTask(ctx, in)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := f.svc.CreateTask(ctx, in)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !second.Replayed || second.StatusCode != first.StatusCode || string(second.Body) != string(first.Body) {
		t.Fatalf("expected verbatim replay, got %+v", second)
	}
	if second.Task.ID != first.Task.ID {
		t.Fatalf("expected replay to decode the same task")
	}

	page, err := f.svc.ListTasks(ctx, ws.ID, owner.ID, task.ListQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("expected a single task row, got %d", page.Total)
	}
	if n := f.auditCount(t, ws, owner, `entity_type = "task"`); n != 1 {
		t.Fatalf("expected a single audit row, got %d", n)
	}

	in.Task.Title = "different"
	_, err = f.svc.CreateTask(ctx, in)
	requireCode(t, err, apperrors.CodeIdempotencyKeyConflict)
	requireKind(t, err, apperrors.KindConflict)

	// The same key under another route is independent.
	in.Route = "/workspaces/1/projects/2/tasks"
	if res, err := f.svc.CreateTask(ctx, in); err != nil || res.Replayed {
		t.Fatalf("expected fresh create under a new route, got %+v %v", res, err)
	}
}

func TestCreateTaskKeyExpiresAfterTTL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner")
	ws := f.workspace(t, owner)
	p := f.project(t, ws, owner, "alpha")
	in := CreateTaskInput{WorkspaceID: ws.ID, ProjectID: p.ID, ActorID: owner.ID, Task: task.CreateInput{Title: "a"}, IdempotencyKey: "k", Route: "r"}

	first, err := f.svc.CreateTask(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.clock.Advance(25 * time.Hour)
	in.Task.Title = "b"
	second, err := f.svc.CreateTask(ctx, in)
	if err != nil {
		t.Fatalf("create after expiry: %v", err)
	}
	if second.Replayed || second.Task.ID == first.Task.ID {
		t.Fatalf("expected a new task after TTL, got %+v", second)
	}
	removed, err := f.svc.PurgeExpiredIdempotency(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected the refreshed record to survive, removed %d", removed)
	}
}

func TestCreateTaskReplayIgnoresOffsetAndWhitespace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner")
	ws := f.workspace(t, owner)
	p := f.project(t, ws, owner, "alpha")

	due := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	in := CreateTaskInput{
		WorkspaceID:    ws.ID,
		ProjectID:      p.ID,
		ActorID:        owner.ID,
		Task:           task.CreateInput{Title: "ship", DueAt: &due},
		IdempotencyKey: "k",
		Route:          "r",
	}
	first, err := f.svc.CreateTask(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	shifted := due.In(time.FixedZone("+02", 2*60*60))
	in.Task = task.CreateInput{Title: "  ship ", DueAt: &shifted}
	second, err := f.svc.CreateTask(ctx, in)
	if err != nil {
		t.Fatalf("retry with shifted offset: %v", err)
	}
	if !second.Replayed || second.Task.ID != first.Task.ID {
		t.Fatalf("expected replay of task %d, got %+v", first.Task.ID, second)
	}
}

func TestConcurrentIdempotentCreatesYieldOneTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner")
	ws := f.workspace(t, owner)
	p := f.project(t, ws, owner, "alpha")
	in := CreateTaskInput{WorkspaceID: ws.ID, ProjectID: p.ID, ActorID: owner.ID, Task: task.CreateInput{Title: "race"}, IdempotencyKey: "race", Route: "r"}

	var wg sync.WaitGroup
	results := make([]CreateResult, 4)
	errs := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.CreateTask(ctx, in)
		}(i)
	}
	wg.Wait()

	ids := map[int64]bool{}
	for i, err := range errs {
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		ids[results[i].Task.ID] = true
	}
	if len(ids) != 1 {
		t.Fatalf("expected one task id across retries, got %v", ids)
	}
}

func TestUpdateTaskVersioning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner")
	ws := f.workspace(t, owner)
	p := f.project(t, ws, owner, "alpha")
	created := createTask(t, f, ws, p, owner, "v1")

	updated, err := f.svc.UpdateTask(ctx, ws.ID, created.ID, owner.ID, UpdateTaskInput{
		Version: 1,
		Patch:   task.Patch{Title: optional.Of("v2"), Description: optional.Of(ptr("more"))},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 || updated.Title != "v2" || updated.Description == nil || *updated.Description != "more" {
		t.Fatalf("unexpected update %+v", updated)
	}

	_, err = f.svc.UpdateTask(ctx, ws.ID, created.ID, owner.ID, UpdateTaskInput{Version: 1, Patch: task.Patch{Title: optional.Of("stale")}})
	requireCode(t, err, apperrors.CodeTaskVersionConflict)

	same, err := f.svc.UpdateTask(ctx, ws.ID, created.ID, owner.ID, UpdateTaskInput{Version: 2})
	if err != nil {
		t.Fatalf("empty update: %v", err)
	}
	if same.Version != 2 {
		t.Fatalf("expected empty patch to leave version 2, got %d", same.Version)
	}
	if n := f.auditCount(t, ws, owner, `action = "update"`); n != 1 {
		t.Fatalf("expected one update audit, got %d", n)
	}

	cleared, err := f.svc.UpdateTask(ctx, ws.ID, created.ID, owner.ID, UpdateTaskInput{Version: 2, Patch: task.Patch{Description: optional.Null[*string]()}})
	if err != nil {
		t.Fatalf("clear description: %v", err)
	}
	if cleared.Description != nil || cleared.Version != 3 {
		t.Fatalf("expected cleared description at version 3, got %+v", cleared)
	}

	_, err = f.svc.UpdateTask(ctx, ws.ID, created.ID, owner.ID, UpdateTaskInput{Version: 0})
	requireKind(t, err, apperrors.KindBadRequest)
}

func TestConcurrentUpdatesOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner")
	ws := f.workspace(t, owner)
	p := f.project(t, ws, owner, "alpha")
	created := createTask(t, f, ws, p, owner, "base")

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.UpdateTask(ctx, ws.ID, created.ID, owner.ID, UpdateTaskInput{
				Version: 1,
				Patch:   task.Patch{Title: optional.Of("writer")},
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case apperrors.HasCode(err, apperrors.CodeTaskVersionConflict):
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	got, err := f.svc.GetTask(ctx, ws.ID, created.ID, owner.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Version != 2 {
		t.Fatalf("expected version 2, got %d", got.Version)
	}
}

func TestUpdateTaskPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner")
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	outsider := f.register(t, "outsider")
	ws := f.workspace(t, owner)
	f.addMember(t, ws, owner, alice, workspace.RoleMember)
	f.addMember(t, ws, owner, bob, workspace.RoleMember)
	p := f.project(t, ws, owner, "alpha")
	created := createTask(t, f, ws, p, alice, "alice's")

	patch := UpdateTaskInput{Version: 1, Patch: task.Patch{Title: optional.Of("bob was here")}}
	_, err := f.svc.UpdateTask(ctx, ws.ID, created.ID, bob.ID, patch)
	requireKind(t, err, apperrors.KindForbidden)

	_, err = f.svc.UpdateTask(ctx, ws.ID, created.ID, outsider.ID, patch)
	requireKind(t, err, apperrors.KindNotFound)

	_, err = f.svc.UpdateTask(ctx, ws.ID, created.ID, alice.ID, UpdateTaskInput{Version: 1, Patch: task.Patch{AssigneeID: optional.Of(ptr(outsider.ID))}})
	requireCode(t, err, apperrors.CodeUserNotInWorkspace)

	// Assigning bob lets bob manage the task.
	if _, err := f.svc.UpdateTask(ctx, ws.ID, created.ID, alice.ID, UpdateTaskInput{Version: 1, Patch: task.Patch{AssigneeID: optional.Of(ptr(bob.ID))}}); err != nil {
		t.Fatalf("assign bob: %v", err)
	}
	if _, err := f.svc.UpdateTask(ctx, ws.ID, created.ID, bob.ID, UpdateTaskInput{Version: 2, Patch: patch.Patch}); err != nil {
		t.Fatalf("assignee update: %v", err)
	}
}

func TestTransitionTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner")
	ws := f.workspace(t, owner)
	p := f.project(t, ws, owner, "alpha")
	created := createTask(t, f, ws, p, owner, "flow")

	_, err := f.svc.TransitionTask(ctx, ws.ID, created.ID, owner.ID, "done")
	requireCode(t, err, apperrors.CodeTaskInvalidStatusTransition)
	if appErr, ok := apperrors.As(err); !ok || appErr.Message != "invalid status transition: todo -> done" {
		t.Fatalf("unexpected error message %v", err)
	}

	steps := []task.Status{task.StatusInProgress, task.StatusBlocked, task.StatusInProgress, task.StatusDone, task.StatusInProgress}
	version := int64(1)
	for _, step := range steps {
		got, err := f.svc.TransitionTask(ctx, ws.ID, created.ID, owner.ID, string(step))
		if err != nil {
			t.Fatalf("transition to %s: %v", step, err)
		}
		version++
		if got.Status != step || got.Version != version {
			t.Fatalf("expected %s at v%d, got %s at v%d", step, version, got.Status, got.Version)
		}
	}
	if n := f.auditCount(t, ws, owner, `action = "status_transition"`); n != len(steps) {
		t.Fatalf("expected %d transition audits, got %d", len(steps), n)
	}

	_, err = f.svc.TransitionTask(ctx, ws.ID, created.ID, owner.ID, "archived")
	requireKind(t, err, apperrors.KindBadRequest)
}

func TestDeleteTaskAuditsTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner")
	ws := f.workspace(t, owner)
	p := f.project(t, ws, owner, "alpha")
	created := createTask(t, f, ws, p, owner, "doomed")

	if err := f.svc.DeleteTask(ctx, ws.ID, created.ID, owner.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err := f.svc.GetTask(ctx, ws.ID, created.ID, owner.ID)
	requireCode(t, err, apperrors.CodeTaskNotFound)

	page, err := f.svc.ListAuditLogs(ctx, ws.ID, owner.ID, auditQuery(`action = "delete" AND entity_type = "task"`))
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if page.Total != 1 || string(page.Items[0].Changes) != `{"title":"doomed"}` {
		t.Fatalf("unexpected delete audit %+v", page.Items)
	}
}

func TestListTasksFiltersAndSorts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner")
	ws := f.workspace(t, owner)
	alpha := f.project(t, ws, owner, "alpha")
	beta := f.project(t, ws, owner, "beta")

	a := createTask(t, f, ws, alpha, owner, "a")
	b := createTask(t, f, ws, alpha, owner, "b")
	c := createTask(t, f, ws, beta, owner, "c")
	if _, err := f.svc.AddTag(ctx, TaskRef{ws.ID, b.ID, owner.ID}, "urgent"); err != nil {
		t.Fatalf("tag: %v", err)
	}

	page, err := f.svc.ListTasks(ctx, ws.ID, owner.ID, task.ListQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 || page.Limit != 20 || page.Items[0].ID != c.ID {
		t.Fatalf("expected newest first with default limit, got %+v", page)
	}

	page, err = f.svc.ListTasks(ctx, ws.ID, owner.ID, task.ListQuery{ProjectID: ptr(alpha.ID), SortBy: task.SortID, Order: pagination.Asc})
	if err != nil {
		t.Fatalf("list by project: %v", err)
	}
	if page.Total != 2 || page.Items[0].ID != a.ID || page.Items[1].ID != b.ID {
		t.Fatalf("unexpected project page %+v", page)
	}

	page, err = f.svc.ListTasks(ctx, ws.ID, owner.ID, task.ListQuery{Tag: "urgent"})
	if err != nil {
		t.Fatalf("list by tag: %v", err)
	}
	if page.Total != 1 || page.Items[0].ID != b.ID {
		t.Fatalf("unexpected tag page %+v", page)
	}

	page, err = f.svc.ListTasks(ctx, ws.ID, owner.ID, task.ListQuery{Limit: 500, Skip: 1})
	if err != nil {
		t.Fatalf("list clamp: %v", err)
	}
	if page.Limit != 100 || len(page.Items) != 2 {
		t.Fatalf("expected clamped limit, got %+v", page)
	}

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)
	_, err = f.svc.ListTasks(ctx, ws.ID, owner.ID, task.ListQuery{DueFrom: &from, DueTo: &to})
	requireKind(t, err, apperrors.KindBadRequest)

	_, err = f.svc.ListTasks(ctx, ws.ID, owner.ID, task.ListQuery{SortBy: "title"})
	requireKind(t, err, apperrors.KindBadRequest)
}

func TestListTasksNormalizesTagFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner")
	ws := f.workspace(t, owner)
	p := f.project(t, ws, owner, "alpha")
	tagged := createTask(t, f, ws, p, owner, "tagged")
	createTask(t, f, ws, p, owner, "plain")
	if _, err := f.svc.AddTag(ctx, TaskRef{ws.ID, tagged.ID, owner.ID}, "caf\u00e9"); err != nil {
		t.Fatalf("tag: %v", err)
	}

	page, err := f.svc.ListTasks(ctx, ws.ID, owner.ID, task.ListQuery{Tag: " cafe\u0301 "})
	if err != nil {
		t.Fatalf("list by decomposed tag: %v", err)
	}
	if page.Total != 1 || page.Items[0].ID != tagged.ID {
		t.Fatalf("expected the tagged task, got %+v", page)
	}

	_, err = f.svc.ListTasks(ctx, ws.ID, owner.ID, task.ListQuery{Tag: strings.Repeat("x", 51)})
	requireKind(t, err, apperrors.KindBadRequest)
}
