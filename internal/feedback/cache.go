package feedback

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const statsCacheKey = "medreport:feedback:stats"

// CachedStore wraps a Store with a Redis cache for the stats aggregate,
// which the rules dashboard polls far more often than reviewers write.
// Cache failures are logged and bypassed; Redis being down never makes
// feedback unavailable.
type CachedStore struct {
	Store

	logger *logrus.Logger
	redis  *redis.Client
	ttl    time.Duration
}

// NewCachedStore wraps a store with stats caching.
func NewCachedStore(store Store, client *redis.Client, ttl time.Duration, logger *logrus.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedStore{
		Store:  store,
		logger: logger,
		redis:  client,
		ttl:    ttl,
	}
}

// Stats returns the cached aggregate when fresh, recomputing on miss.
func (c *CachedStore) Stats(ctx context.Context) (*Stats, error) {
	if data, err := c.redis.Get(ctx, statsCacheKey).Bytes(); err == nil {
		var stats Stats
		if err := json.Unmarshal(data, &stats); err == nil {
			return &stats, nil
		}
		c.logger.Warn("Discarding corrupt cached feedback stats")
	} else if err != redis.Nil {
		c.logger.WithError(err).Warn("Feedback stats cache read failed")
	}

	stats, err := c.Store.Stats(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(stats); err == nil {
		if err := c.redis.Set(ctx, statsCacheKey, data, c.ttl).Err(); err != nil {
			c.logger.WithError(err).Warn("Feedback stats cache write failed")
		}
	}

	return stats, nil
}

// Save writes through and invalidates the stats cache.
func (c *CachedStore) Save(ctx context.Context, feedback *Feedback) error {
	if err := c.Store.Save(ctx, feedback); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

// Delete removes an entry and invalidates the stats cache.
func (c *CachedStore) Delete(ctx context.Context, id int64) error {
	if err := c.Store.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

// ImportJSON imports entries and invalidates the stats cache.
func (c *CachedStore) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
	imported, skipped, err := c.Store.ImportJSON(ctx, reader)
	if imported > 0 {
		c.invalidate(ctx)
	}
	return imported, skipped, err
}

func (c *CachedStore) invalidate(ctx context.Context) {
	if err := c.redis.Del(ctx, statsCacheKey).Err(); err != nil {
		c.logger.WithError(err).Warn("Feedback stats cache invalidation failed")
	}
}
