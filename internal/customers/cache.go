package customers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/frostline-scm/frostline/internal/credit"
)

// CachedSource caches snapshots in Redis for a short TTL. Cache failures fall
// through to the underlying source so credit review never blocks on Redis.
type CachedSource struct {
	next   Source
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedSource wraps a source with Redis caching.
func NewCachedSource(next Source, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedSource {
	return &CachedSource{next: next, client: client, ttl: ttl, logger: logger}
}

func snapshotKey(customerID int64) string {
	return fmt.Sprintf("credit:snapshot:%d", customerID)
}

// GetSnapshot returns a cached snapshot when fresh, loading and storing it
// otherwise.
func (c *CachedSource) GetSnapshot(ctx context.Context, customerID int64) (credit.Snapshot, error) {
	if c.client == nil {
		return c.next.GetSnapshot(ctx, customerID)
	}

	key := snapshotKey(customerID)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var s credit.Snapshot
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, nil
		}
		c.logger.Warn("corrupt snapshot cache entry", slog.String("key", key))
	} else if err != redis.Nil {
		c.logger.Warn("snapshot cache read", slog.Any("error", err))
	}

	s, err := c.next.GetSnapshot(ctx, customerID)
	if err != nil {
		return credit.Snapshot{}, err
	}

	if data, err := json.Marshal(s); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("snapshot cache write", slog.Any("error", err))
		}
	}
	return s, nil
}
