package memory

import (
	"context"

	"github.com/patrickmn/go-cache"
)

// KeyValueStore is the in-memory fallback for the persistence contract,
// used when Redis is unreachable. Entries never expire; the store lives as
// long as the process.
type KeyValueStore struct {
	cache *cache.Cache
}

func NewKeyValueStore() *KeyValueStore {
	return &KeyValueStore{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (s *KeyValueStore) Get(_ context.Context, key string) ([]byte, error) {
	if x, found := s.cache.Get(key); found {
		return x.([]byte), nil
	}
	return nil, nil
}

func (s *KeyValueStore) Set(_ context.Context, key string, value []byte) error {
	copied := append([]byte(nil), value...)
	s.cache.Set(key, copied, cache.NoExpiration)
	return nil
}

func (s *KeyValueStore) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}
