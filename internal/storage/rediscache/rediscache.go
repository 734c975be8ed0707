// Package rediscache wraps a storage.Blob backend with a read-through
// Redis cache, for the hot path of repeated loadTable calls against the
// same ref's root-metadata and manifest-list blobs.
package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/marmotdata/icemeta/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Cache decorates a storage.Blob with a read-through Redis layer: Get
// checks Redis first, falling back to and populating from the underlying
// backend on a miss; all mutating operations pass through and invalidate
// the cached entry.
type Cache struct {
	backend storage.Blob
	client  *redis.Client
	ttl     time.Duration
	prefix  string
}

// Options configures Cache construction.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	KeyPrefix string
}

// New wraps backend with a Redis read-through cache.
func New(backend storage.Blob, opts Options) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	ttl := opts.TTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{backend: backend, client: client, ttl: ttl, prefix: opts.KeyPrefix}
}

func (c *Cache) cacheKey(key string) string {
	return c.prefix + key
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	cached, err := c.client.Get(ctx, c.cacheKey(key)).Bytes()
	if err == nil {
		return cached, nil
	}
	if err != redis.Nil {
		log.Warn().Err(err).Str("key", key).Msg("redis cache lookup failed, falling back to backend")
	}

	data, err := c.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if setErr := c.client.Set(ctx, c.cacheKey(key), data, c.ttl).Err(); setErr != nil {
		log.Warn().Err(setErr).Str("key", key).Msg("failed to populate redis cache")
	}
	return data, nil
}

func (c *Cache) Put(ctx context.Context, key string, data []byte) error {
	if err := c.backend.Put(ctx, key, data); err != nil {
		return err
	}
	c.invalidate(ctx, key)
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.backend.Delete(ctx, key); err != nil {
		return err
	}
	c.invalidate(ctx, key)
	return nil
}

func (c *Cache) List(ctx context.Context, prefix string) ([]string, error) {
	return c.backend.List(ctx, prefix)
}

func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	return c.backend.Exists(ctx, key)
}

// PutIfAbsent passes through to the backend when it is a
// storage.ConditionalBlob; otherwise it reports an error, since the cache
// itself cannot make a non-conditional backend atomic.
func (c *Cache) PutIfAbsent(ctx context.Context, key string, data []byte) error {
	cb, ok := c.backend.(storage.ConditionalBlob)
	if !ok {
		return fmt.Errorf("rediscache: backend does not support PutIfAbsent")
	}
	if err := cb.PutIfAbsent(ctx, key, data); err != nil {
		return err
	}
	c.invalidate(ctx, key)
	return nil
}

func (c *Cache) invalidate(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.cacheKey(key)).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to invalidate redis cache entry")
	}
}

var _ storage.Blob = (*Cache)(nil)
