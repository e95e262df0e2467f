// Package cache implements application.Cache on Redis. Backend failures are
// logged and treated as misses.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/bryanwahyu/triangle-intel/internal/application"
)

type Observer interface {
	CacheLookup(hit bool)
}

type nopObserver struct{}

func (nopObserver) CacheLookup(bool) {}

type Redis struct {
	client     redis.UniversalClient
	prefix     string
	defaultTTL time.Duration
	log        *zap.Logger
	metrics    Observer
	group      singleflight.Group
}

type Option func(*Redis)

func WithLogger(l *zap.Logger) Option { return func(r *Redis) { r.log = l } }

func WithObserver(o Observer) Option { return func(r *Redis) { r.metrics = o } }

func New(client redis.UniversalClient, prefix string, defaultTTL time.Duration, opts ...Option) *Redis {
	r := &Redis{
		client:     client,
		prefix:     prefix,
		defaultTTL: defaultTTL,
		log:        zap.NewNop(),
		metrics:    nopObserver{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Connect pings addr before handing the client out.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return c, nil
}

func (r *Redis) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *Redis) Get(ctx context.Context, key string, dest any) (bool, error) {
	b, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.metrics.CacheLookup(false)
		return false, nil
	}
	if err != nil {
		r.log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		r.metrics.CacheLookup(false)
		return false, nil
	}
	if err := json.Unmarshal(b, dest); err != nil {
		r.log.Warn("cache entry undecodable", zap.String("key", key), zap.Error(err))
		r.metrics.CacheLookup(false)
		return false, nil
	}
	r.metrics.CacheLookup(true)
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value %s: %w", key, err)
	}
	if err := r.client.Set(ctx, r.key(key), b, ttl).Err(); err != nil {
		r.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// GetOrLoad collapses concurrent misses on the same key into one load.
func (r *Redis) GetOrLoad(ctx context.Context, key string, dest any, ttl time.Duration, load application.Loader) error {
	if hit, _ := r.Get(ctx, key, dest); hit {
		return nil
	}
	v, err, _ := r.group.Do(key, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		_ = r.Set(ctx, key, v, ttl)
		return v, nil
	})
	if err != nil {
		return err
	}
	return application.CopyJSON(v, dest)
}

// Ping is used by the readiness probe.
func (r *Redis) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }
