package service

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/louisbranch/taskhub/internal/platform/errors"
	"github.com/louisbranch/taskhub/internal/services/taskhub/authn"
	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/user"
	"github.com/louisbranch/taskhub/internal/services/taskhub/storage"
)

// Credentials are a username and password pair.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates an account.
func (s *Service) Register(ctx context.Context, in Credentials) (UserView, error) {
	username, err := user.NormalizeUsername(in.Username)
	if err != nil {
		return UserView{}, err
	}
	if err := user.ValidatePassword(in.Password); err != nil {
		return UserView{}, err
	}
	hash, err := s.auth.HashPassword(in.Password)
	if err != nil {
		return UserView{}, err
	}

	var created user.User
	err = s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		u, err := tx.CreateUser(ctx, user.User{
			Username:     username,
			PasswordHash: hash,
			CreatedAt:    s.now().UTC(),
		})
		if err != nil {
			return conflictOr(err, apperrors.CodeUsernameTaken, "username already registered")
		}
		created = u
		return nil
	})
	if err != nil {
		return UserView{}, err
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", created.ID)
	return newUserView(created), nil
}

// Login checks credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, in Credentials) (authn.Token, error) {
	invalid := apperrors.New(apperrors.CodeInvalidCredentials, "incorrect username or password")
	username, err := user.NormalizeUsername(in.Username)
	if err != nil {
		return authn.Token{}, invalid
	}
	u, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return authn.Token{}, invalid
		}
		return authn.Token{}, fmt.Errorf("load user: %w", err)
	}
	if !s.auth.VerifyPassword(u.PasswordHash, in.Password) {
		return authn.Token{}, invalid
	}
	return s.auth.IssueToken(u.ID)
}

// Me returns the authenticated account. A token for a deleted account is
// Unauthenticated.
func (s *Service) Me(ctx context.Context, userID int64) (UserView, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return UserView{}, notFoundOr(err, apperrors.CodeUnauthenticated, "could not validate credentials")
	}
	return newUserView(u), nil
}
