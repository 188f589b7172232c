package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/solvedigitale/Digitext-last/internal/models"
)

const dedupeTTL = 24 * time.Hour

// RedisStore handles Redis operations: webhook redelivery dedupe and rate
// limit counters.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Client returns the underlying Redis client.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// dedupeKey returns the key marking a delivered provider message id.
func dedupeKey(platform models.Platform, messageID string) string {
	return fmt.Sprintf("dedupe:%s:%s", platform, messageID)
}

// FirstDelivery records a provider message id and reports whether it was
// unseen. Providers redeliver webhooks on timeout; ids are kept for 24h,
// well past Meta's retry window. Fails open on Redis errors.
func (s *RedisStore) FirstDelivery(ctx context.Context, platform models.Platform, messageID string) bool {
	ok, err := s.client.SetNX(ctx, dedupeKey(platform, messageID), "1", dedupeTTL).Result()
	if err != nil {
		return true
	}
	return ok
}

// rateLimitKey returns the key for a caller's rate limit counter.
func rateLimitKey(bucket, caller string) string {
	return fmt.Sprintf("ratelimit:%s:%s", bucket, caller)
}

// IncrRateLimit increments a caller's counter within a window and returns
// the new count.
func (s *RedisStore) IncrRateLimit(ctx context.Context, bucket, caller string, window time.Duration) (int64, error) {
	key := rateLimitKey(bucket, caller)

	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
