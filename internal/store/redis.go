package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atmx/stockquest/internal/model"
)

// CachedStore wraps a primary Journal with a Redis read-through cache.
// Appends go to the primary and invalidate the session's cached list;
// reads check Redis first then fall back to the primary.
type CachedStore struct {
	primary Journal
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary journal.
func NewCachedStore(primary Journal, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

func (s *CachedStore) Append(ctx context.Context, sessionID string, tx model.Transaction) error {
	if err := s.primary.Append(ctx, sessionID, tx); err != nil {
		return err
	}
	// Invalidate; next read will re-populate.
	if err := s.rdb.Del(ctx, journalKey(sessionID)).Err(); err != nil {
		slog.Warn("journal cache invalidation failed", "session", sessionID, "err", err)
	}
	return nil
}

func (s *CachedStore) List(ctx context.Context, sessionID string) ([]model.Transaction, error) {
	data, err := s.rdb.Get(ctx, journalKey(sessionID)).Bytes()
	if err == nil {
		var txs []model.Transaction
		if json.Unmarshal(data, &txs) == nil {
			return txs, nil
		}
	}

	// Cache miss: read from primary.
	txs, err := s.primary.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(txs); err == nil {
		s.rdb.Set(ctx, journalKey(sessionID), data, s.ttl)
	}
	return txs, nil
}

func journalKey(sessionID string) string { return fmt.Sprintf("journal:%s", sessionID) }
