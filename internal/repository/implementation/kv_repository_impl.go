package implementation

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const kvPrefix = "smartfeed:"

// RedisKeyValueStore backs the persistence contract with Redis. Blobs are
// plain last-write-wins strings; no transactions.
type RedisKeyValueStore struct {
	rdb *redis.Client
}

func NewRedisKeyValueStore(rdb *redis.Client) *RedisKeyValueStore {
	return &RedisKeyValueStore{rdb: rdb}
}

func (s *RedisKeyValueStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.rdb.Get(ctx, kvPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

func (s *RedisKeyValueStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.rdb.Set(ctx, kvPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisKeyValueStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, kvPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
