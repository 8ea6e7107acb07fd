package cache

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("cache entry not found")

// Cache maps a key to an image payload.
//
// Put fully replaces any previous contents stored under the key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}
