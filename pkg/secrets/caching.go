package secrets

import (
	"context"
	"time"
)

// CachingProvider wraps a Provider with an in-memory TTL cache so
// repeated credential lookups do not hit the backend on every call.
type CachingProvider struct {
	inner Provider
	cache *Cache[map[string]string]
}

// NewCachingProvider wraps inner with a TTL cache.
func NewCachingProvider(inner Provider, ttl time.Duration) *CachingProvider {
	return &CachingProvider{
		inner: inner,
		cache: NewCache[map[string]string](ttl),
	}
}

// GetSecret serves from cache when possible, fetching and storing on a
// miss. Errors are never cached.
func (p *CachingProvider) GetSecret(ctx context.Context, key string) (map[string]string, error) {
	if cached, ok := p.cache.Get(key); ok {
		return cached, nil
	}
	value, err := p.inner.GetSecret(ctx, key)
	if err != nil {
		return nil, err
	}
	p.cache.Put(key, value)
	return value, nil
}

// ListSecrets passes through to the wrapped provider.
func (p *CachingProvider) ListSecrets(ctx context.Context, prefix string) ([]string, error) {
	return p.inner.ListSecrets(ctx, prefix)
}

// Bust drops one cached secret, forcing a refetch (e.g. after rotation).
func (p *CachingProvider) Bust(key string) {
	p.cache.Bust(key)
}
