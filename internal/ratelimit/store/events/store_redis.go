package events

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"confide/internal/ratelimit/models"
)

// RedisStore keeps each (address, class) bucket as a sorted set scored by
// occurrence time in milliseconds. Buckets expire after the TTL, so no
// retention worker is needed.
type RedisStore struct {
	client    redis.Cmdable
	keyPrefix string
	ttl       time.Duration
	now       func() time.Time
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix namespaces keys, e.g. per environment.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.keyPrefix = prefix
	}
}

// WithRedisClock overrides the timestamp source used by Record.
func WithRedisClock(now func() time.Time) RedisOption {
	return func(s *RedisStore) {
		s.now = now
	}
}

// NewRedis creates a Redis-backed event log. ttl should be at least the
// longest window; keys idle for longer are dropped by Redis.
func NewRedis(client redis.Cmdable, ttl time.Duration, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		keyPrefix: "confide",
		ttl:       ttl,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(address string, class models.ClassName) string {
	return s.keyPrefix + ":" + models.NewEventKey(address, class).String()
}

// CountSince runs ZCOUNT from since to +inf.
func (s *RedisStore) CountSince(ctx context.Context, address string, class models.ClassName, since time.Time) (int, error) {
	n, err := s.client.ZCount(ctx, s.key(address, class), strconv.FormatInt(since.UnixMilli(), 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count action events: %w", err)
	}
	return int(n), nil
}

// Record adds one member and refreshes the bucket TTL in a single round trip.
func (s *RedisStore) Record(ctx context.Context, address string, class models.ClassName) error {
	key := s.key(address, class)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(s.now().UnixMilli()),
			Member: uuid.NewString(),
		})
		pipe.PExpire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert action event: %w", err)
	}
	return nil
}
