package application

import (
	"context"
	"encoding/json"
	"time"
)

// Loader produces a value on cache miss. A loader error means "do not cache".
type Loader func(ctx context.Context) (any, error)

// Cache is a JSON read-through cache. Implementations must treat backend
// failures as misses so callers never fail because of the cache.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetOrLoad(ctx context.Context, key string, dest any, ttl time.Duration, load Loader) error
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string, any) (bool, error) { return false, nil }

func (NopCache) Set(context.Context, string, any, time.Duration) error { return nil }

func (NopCache) GetOrLoad(ctx context.Context, _ string, dest any, _ time.Duration, load Loader) error {
	v, err := load(ctx)
	if err != nil {
		return err
	}
	return CopyJSON(v, dest)
}

// CopyJSON assigns src to dest through a JSON round trip.
func CopyJSON(src, dest any) error {
	b, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dest)
}
