package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore remembers keys that have already been processed.
type IdempotencyStore interface {
	// PutNX records key and reports whether it was not seen before.
	PutNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type redisIdempotencyStore struct {
	rdb *redis.Client
}

// NewIdempotencyStore returns a Redis-backed store. A nil client accepts every key.
func NewIdempotencyStore(rdb *redis.Client) IdempotencyStore {
	return &redisIdempotencyStore{rdb: rdb}
}

func (s *redisIdempotencyStore) PutNX(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if s.rdb == nil {
		return true, nil
	}
	return s.rdb.SetNX(ctx, "idem:"+key, "1", ttl).Result()
}
