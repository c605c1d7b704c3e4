package lockout

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps failure counts in Redis so lockout state survives restarts
// and is shared across replicas.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed lockout store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) RecordFailure(ctx context.Context, key string, window time.Duration) (int, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// Refresh the window on every failure so the count expires as one unit.
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("record lockout failure: %w", err)
	}
	return int(incr.Val()), nil
}

func (s *RedisStore) Count(ctx context.Context, key string) (int, error) {
	count, err := s.client.Get(ctx, key).Int()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("get lockout count: %w", err)
	}
	return count, nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("clear lockout count: %w", err)
	}
	return nil
}
