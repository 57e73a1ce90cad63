package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/taskhub/internal/services/taskhub/storage"
)

// GetIdempotency fetches the record for (userID, route, key), expired or not.
func (s *Store) GetIdempotency(ctx context.Context, userID int64, route, key string) (storage.IdempotencyRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.IdempotencyRecord{}, err
	}
	var (
		r                    storage.IdempotencyRecord
		createdAt, expiresAt int64
	)
	err := s.q.QueryRowContext(ctx, `
SELECT user_id, route, idem_key, request_hash, response_status, response_body,
       resource_type, resource_id, created_at, expires_at
FROM idempotency_keys
WHERE user_id = ? AND route = ? AND idem_key = ?`, userID, route, key,
	).Scan(&r.UserID, &r.Route, &r.Key, &r.RequestHash, &r.ResponseStatus, &r.ResponseBody,
		&r.ResourceType, &r.ResourceID, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.IdempotencyRecord{}, storage.ErrNotFound
		}
		return storage.IdempotencyRecord{}, fmt.Errorf("get idempotency record: %w", err)
	}
	r.CreatedAt = fromMillis(createdAt)
	r.ExpiresAt = fromMillis(expiresAt)
	return r, nil
}

// PutIdempotency inserts the record or overwrites the existing one for the
// same (user, route, key).
func (s *Store) PutIdempotency(ctx context.Context, r storage.IdempotencyRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.q.ExecContext(ctx, `
INSERT INTO idempotency_keys (user_id, route, idem_key, request_hash, response_status, response_body,
                              resource_type, resource_id, created_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, route, idem_key) DO UPDATE SET
    request_hash = excluded.request_hash,
    response_status = excluded.response_status,
    response_body = excluded.response_body,
    resource_type = excluded.resource_type,
    resource_id = excluded.resource_id,
    created_at = excluded.created_at,
    expires_at = excluded.expires_at`,
		r.UserID, r.Route, r.Key, r.RequestHash, r.ResponseStatus, r.ResponseBody,
		r.ResourceType, r.ResourceID, toMillis(r.CreatedAt), toMillis(r.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("put idempotency record: %w", err)
	}
	return nil
}

// PurgeIdempotency deletes records that expired at or before before and
// returns how many were removed.
func (s *Store) PurgeIdempotency(ctx context.Context, before time.Time) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	result, err := s.q.ExecContext(ctx, `DELETE FROM idempotency_keys WHERE expires_at <= ?`, toMillis(before))
	if err != nil {
		return 0, fmt.Errorf("purge idempotency records: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return removed, nil
}
