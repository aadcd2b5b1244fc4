package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/harborline/storefront-backend/pkg/db/models"
	"github.com/harborline/storefront-backend/pkg/logger"
)

const cacheScope = "product"

type productSource interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CacheKey(scope, id string) string
}

// CachedLoader fronts product reads with a short-lived Redis cache. The
// TTL must stay small: stock checks tolerate a few seconds of staleness,
// not more. A nil cache degrades to straight repository reads.
type CachedLoader struct {
	source productSource
	cache  cacheStore
	ttl    time.Duration
	logg   *logger.Logger
}

// NewCachedLoader wraps source with a read-through cache.
func NewCachedLoader(source productSource, cache cacheStore, ttl time.Duration, logg *logger.Logger) *CachedLoader {
	return &CachedLoader{source: source, cache: cache, ttl: ttl, logg: logg}
}

// GetProduct returns the cached product when present, otherwise loads
// from the source and populates the cache. Cache failures never fail the
// read; the source remains authoritative.
func (l *CachedLoader) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if l.cache == nil || l.ttl <= 0 {
		return l.source.GetProduct(ctx, id)
	}

	key := l.cache.CacheKey(cacheScope, id.String())
	if payload, err := l.cache.Get(ctx, key); err == nil {
		var product models.Product
		if jsonErr := json.Unmarshal([]byte(payload), &product); jsonErr == nil {
			return &product, nil
		}
		// Corrupt entry; evict and fall through to the source.
		if delErr := l.cache.Del(ctx, key); delErr != nil && l.logg != nil {
			l.logg.Warn(ctx, "failed to evict corrupt product cache entry")
		}
	} else if !errors.Is(err, goredis.Nil) && l.logg != nil {
		l.logg.Warn(ctx, "product cache read failed, falling back to database")
	}

	product, err := l.source.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, jsonErr := json.Marshal(product); jsonErr == nil {
		if setErr := l.cache.Set(ctx, key, payload, l.ttl); setErr != nil && l.logg != nil {
			l.logg.Warn(ctx, "product cache write failed")
		}
	}
	return product, nil
}

// Invalidate drops the cached entry for a product, typically after a
// price or stock update lands.
func (l *CachedLoader) Invalidate(ctx context.Context, id uuid.UUID) error {
	if l.cache == nil {
		return nil
	}
	return l.cache.Del(ctx, l.cache.CacheKey(cacheScope, id.String()))
}
