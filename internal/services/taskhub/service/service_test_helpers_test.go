package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	apperrors "github.com/louisbranch/taskhub/internal/platform/errors"
	"github.com/louisbranch/taskhub/internal/services/taskhub/audit"
	"github.com/louisbranch/taskhub/internal/services/taskhub/authn"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/workspace"
	"github.com/louisbranch/taskhub/internal/services/taskhub/storage/sqlite"
	"golang.org/x/crypto/bcrypt"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc   *Service
	store *sqlite.Store
	clock *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "taskhub.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	clock := &testClock{now: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)}
	auth, err := authn.NewProvider("service-test-secret", time.Hour,
		authn.WithBcryptCost(bcrypt.MinCost),
		authn.WithClock(clock.Now),
	)
	if err != nil {
		t.Fatalf("new auth provider: %v", err)
	}
	svc, err := New(Config{
		Store:  store,
		Auth:   auth,
		Now:    clock.Now,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{svc: svc, store: store, clock: clock}
}

func (f *fixture) register(t *testing.T, username string) UserView {
	t.Helper()
	u, err := f.svc.Register(context.Background(), Credentials{Username: username, Password: "password"})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u
}

func (f *fixture) workspace(t *testing.T, owner UserView) WorkspaceView {
	t.Helper()
	ws, err := f.svc.CreateWorkspace(context.Background(), owner.ID, "ws of "+owner.Username)
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	return ws
}

func (f *fixture) addMember(t *testing.T, ws WorkspaceView, actor, target UserView, role workspace.Role) {
	t.Helper()
	if _, err := f.svc.AddMember(context.Background(), ws.ID, actor.ID, AddMemberInput{UserID: target.ID, Role: role}); err != nil {
		t.Fatalf("add member %s: %v", target.Username, err)
	}
}

func (f *fixture) project(t *testing.T, ws WorkspaceView, actor UserView, name string) ProjectView {
	t.Helper()
	p, err := f.svc.CreateProject(context.Background(), ws.ID, actor.ID, CreateProjectInput{Name: name})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func (f *fixture) auditCount(t *testing.T, ws WorkspaceView, actor UserView, filter string) int {
	t.Helper()
	page, err := f.svc.ListAuditLogs(context.Background(), ws.ID, actor.ID, auditQuery(filter))
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	return page.Total
}

func auditQuery(filter string) audit.Query {
	return audit.Query{Filter: filter, Limit: 100}
}

func requireCode(t *testing.T, err error, code apperrors.Code) {
	t.Helper()
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected code %s, got %v", code, err)
	}
}

func requireKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()
	if got := apperrors.KindOf(err); got != kind {
		t.Fatalf("expected kind %s, got %s (%v)", kind, got, err)
	}
}

func ptr[T any](v T) *T { return &v }
