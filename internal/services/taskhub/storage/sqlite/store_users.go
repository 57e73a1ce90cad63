package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/taskhub/internal/services/taskhub/domain/user"
	"github.com/louisbranch/taskhub/internal/services/taskhub/storage"
)

// CreateUser inserts an account. A taken username returns storage.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if err := s.ready(ctx); err != nil {
		return user.User{}, err
	}
	result, err := s.q.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		u.Username, u.PasswordHash, toMillis(u.CreatedAt),
	)
	if err != nil {
		return user.User{}, translateInsertError("insert user", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return user.User{}, fmt.Errorf("user id: %w", err)
	}
	u.ID = id
	u.CreatedAt = fromMillis(toMillis(u.CreatedAt))
	return u, nil
}

// GetUser fetches an account by id.
func (s *Store) GetUser(ctx context.Context, id int64) (user.User, error) {
	if err := s.ready(ctx); err != nil {
		return user.User{}, err
	}
	row := s.q.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByUsername fetches an account by its normalized username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	if err := s.ready(ctx); err != nil {
		return user.User{}, err
	}
	row := s.q.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func scanUser(row *sql.Row) (user.User, error) {
	var (
		u         user.User
		createdAt int64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, storage.ErrNotFound
		}
		return user.User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = fromMillis(createdAt)
	return u, nil
}
