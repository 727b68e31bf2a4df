package repository

import (
	"context"
)

// KeyValueStore is the persistence contract for the engine: get/set of
// JSON-serializable blobs with last-write-wins semantics and no
// transactional guarantees. Absent keys return (nil, nil).
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
