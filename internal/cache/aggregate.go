// Package cache is a Redis cache-aside layer for idea aggregates.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"ideas-feedback/internal/models"
)

// AggregateTTL bounds how stale a cached aggregate can get if an
// invalidation is lost.
const AggregateTTL = 5 * time.Minute

// AggregateCache caches computed aggregates by idea id. A nil client turns
// every operation into a no-op miss.
type AggregateCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to redisURL. An empty URL, a bad URL or a failed ping all
// yield a disabled cache; the service runs without it.
func New(ctx context.Context, redisURL string, log zerolog.Logger) *AggregateCache {
	if redisURL == "" {
		log.Info().Msg("redis: no URL configured, caching disabled")
		return &AggregateCache{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis: invalid URL, caching disabled")
		return &AggregateCache{}
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis: connection failed, caching disabled")
		_ = rdb.Close()
		return &AggregateCache{}
	}

	log.Info().Msg("redis: connected, caching enabled")
	return NewWithClient(rdb, AggregateTTL)
}

func NewWithClient(rdb *redis.Client, ttl time.Duration) *AggregateCache {
	if ttl <= 0 {
		ttl = AggregateTTL
	}
	return &AggregateCache{rdb: rdb, ttl: ttl}
}

// Enabled reports whether a Redis client is attached.
func (c *AggregateCache) Enabled() bool { return c != nil && c.rdb != nil }

// Client returns the underlying client for health checks. May be nil.
func (c *AggregateCache) Client() *redis.Client { return c.rdb }

func (c *AggregateCache) GetAggregate(ctx context.Context, ideaID string) (*models.Aggregate, error) {
	if !c.Enabled() {
		return nil, nil
	}
	data, err := c.rdb.Get(ctx, aggregateKey(ideaID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var agg models.Aggregate
	if err := json.Unmarshal(data, &agg); err != nil {
		return nil, err
	}
	return &agg, nil
}

func (c *AggregateCache) SetAggregate(ctx context.Context, ideaID string, agg models.Aggregate) error {
	if !c.Enabled() {
		return nil
	}
	b, err := json.Marshal(agg)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, aggregateKey(ideaID), b, c.ttl).Err()
}

func (c *AggregateCache) InvalidateAggregate(ctx context.Context, ideaID string) error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Del(ctx, aggregateKey(ideaID)).Err()
}

func (c *AggregateCache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

func (c *AggregateCache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}

func aggregateKey(ideaID string) string {
	return "aggregate:" + ideaID
}
