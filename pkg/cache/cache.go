package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Service is the cache surface the pricing engine depends on. String values
// are stored as-is, everything else is JSON-encoded. TryLock/Unlock back the
// cycle mutex that keeps concurrent repricing runs from overlapping.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// Key builds a namespaced cache key, e.g. Key("competitor", "snapshot").
func Key(prefix, id string) string {
	return fmt.Sprintf("%s:%s", prefix, id)
}
