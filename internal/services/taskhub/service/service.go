// Package service implements taskhub's use cases. Each mutation resolves the
// caller's workspace role, applies the domain change, records its audit entry
// and (for keyed creates) its idempotency response inside one store
// transaction.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/louisbranch/taskhub/internal/platform/errors"
	"github.com/louisbranch/taskhub/internal/services/taskhub/audit"
	"github.com/louisbranch/taskhub/internal/services/taskhub/authn"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/task"
	"github.com/louisbranch/taskhub/internal/services/taskhub/idempotency"
	"github.com/louisbranch/taskhub/internal/services/taskhub/storage"
)

// AuthProvider hashes credentials and issues bearer tokens.
type AuthProvider interface {
	HashPassword(password string) (string, error)
	VerifyPassword(hash, password string) bool
	IssueToken(userID int64) (authn.Token, error)
}

// Config wires a Service.
type Config struct {
	Store  storage.Store
	Auth   AuthProvider
	Ledger *idempotency.Ledger
	Audit  *audit.Recorder
	Now    func() time.Time
	Logger *slog.Logger
}

// Service exposes every taskhub operation.
type Service struct {
	store  storage.Store
	auth   AuthProvider
	ledger *idempotency.Ledger
	audit  *audit.Recorder
	now    func() time.Time
	logger *slog.Logger
}

// New validates cfg and builds a Service. Ledger, Audit, Now and Logger fall
// back to defaults.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Auth == nil {
		return nil, errors.New("auth provider is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	ledger := cfg.Ledger
	if ledger == nil {
		ledger = idempotency.NewLedger(idempotency.DefaultTTL, now)
	}
	recorder := cfg.Audit
	if recorder == nil {
		recorder = audit.NewRecorder(now)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  cfg.Store,
		auth:   cfg.Auth,
		ledger: ledger,
		audit:  recorder,
		now:    now,
		logger: logger,
	}, nil
}

// Page is one slice of a listing.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

// PurgeExpiredIdempotency removes idempotency records past their TTL.
func (s *Service) PurgeExpiredIdempotency(ctx context.Context) (int64, error) {
	var removed int64
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		n, err := s.ledger.PurgeExpired(ctx, tx)
		removed = n
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("purge idempotency: %w", err)
	}
	return removed, nil
}

// loadTask fetches a task scoped to its workspace.
func loadTask(ctx context.Context, tasks storage.TaskStore, workspaceID, taskID int64) (task.Task, error) {
	t, err := tasks.GetTask(ctx, workspaceID, taskID)
	if err != nil {
		return task.Task{}, notFoundOr(err, apperrors.CodeTaskNotFound, "task not found")
	}
	return t, nil
}

// notFoundOr maps storage.ErrNotFound to code and wraps anything else.
func notFoundOr(err error, code apperrors.Code, message string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.New(code, message)
	}
	return err
}

// conflictOr maps storage.ErrConflict to code and returns anything else as-is.
func conflictOr(err error, code apperrors.Code, message string) error {
	if errors.Is(err, storage.ErrConflict) {
		return apperrors.Wrap(code, message, err)
	}
	return err
}
