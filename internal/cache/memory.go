package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	gocache "github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"

	"object-paint-agent/internal/core"
)

// MemoryCache keeps PNG-encoded masks in an in-process Ristretto cache.
type MemoryCache struct {
	cache *gocache.Cache[[]byte]
	ttl   time.Duration
}

// NewMemoryCache bounds the cache at maxCost bytes of encoded masks.
func NewMemoryCache(maxCost int64, ttl time.Duration) (*MemoryCache, error) {
	if maxCost <= 0 {
		maxCost = 64 << 20
	}
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}

	return &MemoryCache{
		cache: gocache.New[[]byte](ristretto_store.NewRistretto(ristrettoCache)),
		ttl:   ttl,
	}, nil
}

func (c *MemoryCache) Get(ctx context.Context, key string) (core.Mask, bool, error) {
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.NotFound{}) {
			return core.Mask{}, false, nil
		}
		return core.Mask{}, false, err
	}
	mask, err := decodeMask(data)
	if err != nil {
		return core.Mask{}, false, err
	}
	return mask, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, mask core.Mask) error {
	data, err := encodeMask(mask)
	if err != nil {
		return err
	}
	opts := []store.Option{store.WithCost(int64(len(data)))}
	if c.ttl > 0 {
		opts = append(opts, store.WithExpiration(c.ttl))
	}
	return c.cache.Set(ctx, key, data, opts...)
}
