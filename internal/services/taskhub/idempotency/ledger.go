// Package idempotency records the first response to a keyed create request
// and replays it for retries carrying the same key and payload.
package idempotency

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/taskhub/internal/platform/errors"
	"github.com/louisbranch/taskhub/internal/services/taskhub/storage"
	"github.com/zeebo/blake3"
)

// DefaultTTL is how long a stored response stays replayable.
const DefaultTTL = 24 * time.Hour

// MaxKeyLength bounds client-supplied keys.
const MaxKeyLength = 255

// Replay is the outcome of a lookup. Found is false when the caller should
// run the request.
type Replay struct {
	Found        bool
	StatusCode   int
	Body         []byte
	ResourceType string
	ResourceID   int64
}

// Entry is a response to remember.
type Entry struct {
	UserID       int64
	Route        string
	Key          string
	RequestHash  string
	StatusCode   int
	Body         []byte
	ResourceType string
	ResourceID   int64
}

// Ledger applies TTL and hash rules on top of an IdempotencyStore.
type Ledger struct {
	ttl time.Duration
	now func() time.Time
}

// NewLedger builds a ledger. A non-positive ttl uses DefaultTTL and a nil
// clock uses time.Now.
func NewLedger(ttl time.Duration, now func() time.Time) *Ledger {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Ledger{ttl: ttl, now: now}
}

// NormalizeKey trims a client key and checks its length. An empty result
// means the request is not idempotent.
func NormalizeKey(raw string) (string, error) {
	key := strings.TrimSpace(raw)
	if len(key) > MaxKeyLength {
		return "", apperrors.New(apperrors.CodeIdempotencyKeyInvalid, "idempotency key must be at most 255 characters")
	}
	return key, nil
}

// RequestHash hashes the canonical JSON form of payload: object keys sorted,
// no insignificant whitespace, numbers kept verbatim.
func RequestHash(payload any) (string, error) {
	canonical, err := CanonicalJSON(payload)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// CanonicalJSON renders payload with sorted keys and compact separators.
func CanonicalJSON(payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var generic any
	if err := decoder.Decode(&generic); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	// encoding/json sorts map keys and emits no whitespace.
	canonical, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("encode canonical payload: %w", err)
	}
	return canonical, nil
}

// Lookup returns the stored response for (userID, route, key) when it is
// still live and was produced by the same payload. A live record with a
// different hash is a Conflict; an expired one is ignored.
func (l *Ledger) Lookup(ctx context.Context, store storage.IdempotencyStore, userID int64, route, key, requestHash string) (Replay, error) {
	record, err := store.GetIdempotency(ctx, userID, route, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Replay{}, nil
		}
		return Replay{}, fmt.Errorf("lookup idempotency key: %w", err)
	}
	if !l.now().UTC().Before(record.ExpiresAt) {
		return Replay{}, nil
	}
	if record.RequestHash != requestHash {
		return Replay{}, apperrors.New(apperrors.CodeIdempotencyKeyConflict, "idempotency key payload conflict")
	}
	return Replay{
		Found:        true,
		StatusCode:   record.ResponseStatus,
		Body:         record.ResponseBody,
		ResourceType: record.ResourceType,
		ResourceID:   record.ResourceID,
	}, nil
}

// Save stores entry, replacing any expired record under the same key.
func (l *Ledger) Save(ctx context.Context, store storage.IdempotencyStore, entry Entry) error {
	now := l.now().UTC()
	err := store.PutIdempotency(ctx, storage.IdempotencyRecord{
		UserID:         entry.UserID,
		Route:          entry.Route,
		Key:            entry.Key,
		RequestHash:    entry.RequestHash,
		ResponseStatus: entry.StatusCode,
		ResponseBody:   entry.Body,
		ResourceType:   entry.ResourceType,
		ResourceID:     entry.ResourceID,
		CreatedAt:      now,
		ExpiresAt:      now.Add(l.ttl),
	})
	if err != nil {
		return fmt.Errorf("save idempotency key: %w", err)
	}
	return nil
}

// PurgeExpired deletes records whose TTL has elapsed.
func (l *Ledger) PurgeExpired(ctx context.Context, store storage.IdempotencyStore) (int64, error) {
	return store.PurgeIdempotency(ctx, l.now().UTC())
}
