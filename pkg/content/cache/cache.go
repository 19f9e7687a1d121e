// Package cache provides an in-memory read-through cache for content providers.
package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/marmos91/fileserver/pkg/content"
)

// Config controls the cache size and entry lifetime.
type Config struct {
	// MaxBytes is the total size of cached file content.
	// Default: 64MB
	MaxBytes int64

	// TTL is how long an entry stays valid. Zero keeps entries until evicted.
	TTL time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxBytes <= 0 {
		c.MaxBytes = 64 << 20
	}
}

// Stats is a snapshot of cache effectiveness.
type Stats struct {
	Hits   uint64
	Misses uint64
}

// CachedProvider wraps a Provider with a ristretto cache keyed by path.
//
// Only found files are cached; absences always reach the wrapped provider so a
// file added to the backend becomes visible without waiting for a TTL.
//
// Writes through CachedProvider invalidate the affected entry. Writes made
// directly against the backend are only observed after TTL expiry or eviction.
//
// Thread Safety:
// Safe for concurrent use. ristretto applies Set asynchronously, so a value
// read immediately after population may still miss; call Wait to flush.
type CachedProvider struct {
	inner content.Provider
	cache *ristretto.Cache[string, []byte]
	ttl   time.Duration

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New wraps inner with a cache.
//
// Returns:
//   - *CachedProvider: The caching provider
//   - error: If the cache cannot be allocated
func New(inner content.Provider, config Config) (*CachedProvider, error) {
	if inner == nil {
		return nil, fmt.Errorf("cache: inner provider is required")
	}
	config.applyDefaults()

	// ristretto recommends ~10 counters per expected entry. Assume 4KB files.
	numCounters := config.MaxBytes / 4096 * 10
	if numCounters < 1000 {
		numCounters = 1000
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters:        numCounters,
		MaxCost:            config.MaxBytes,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	return &CachedProvider{
		inner: inner,
		cache: c,
		ttl:   config.TTL,
	}, nil
}

// ReadFile returns the cached content for path, falling back to the wrapped
// provider on a miss.
func (p *CachedProvider) ReadFile(ctx context.Context, path content.Path) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := path.String()
	if data, ok := p.cache.Get(key); ok {
		p.hits.Add(1)
		return clone(data), nil
	}
	p.misses.Add(1)

	data, err := p.inner.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}

	p.cache.SetWithTTL(key, clone(data), int64(len(data)), p.ttl)
	return data, nil
}

// WriteFile forwards to the wrapped provider and drops the cached entry.
//
// Returns content.ErrReadOnly if the wrapped provider is not writable.
func (p *CachedProvider) WriteFile(ctx context.Context, path content.Path, data []byte) error {
	w, ok := p.inner.(content.WritableProvider)
	if !ok {
		return fmt.Errorf("write %s: %w", path, content.ErrReadOnly)
	}
	if err := w.WriteFile(ctx, path, data); err != nil {
		return err
	}
	p.Invalidate(path)
	return nil
}

// DeleteFile forwards to the wrapped provider and drops the cached entry.
//
// Returns content.ErrReadOnly if the wrapped provider is not writable.
func (p *CachedProvider) DeleteFile(ctx context.Context, path content.Path) error {
	w, ok := p.inner.(content.WritableProvider)
	if !ok {
		return fmt.Errorf("delete %s: %w", path, content.ErrReadOnly)
	}
	if err := w.DeleteFile(ctx, path); err != nil {
		return err
	}
	p.Invalidate(path)
	return nil
}

// Invalidate removes path from the cache.
func (p *CachedProvider) Invalidate(path content.Path) {
	p.cache.Del(path.String())
}

// Wait blocks until pending cache writes are applied.
func (p *CachedProvider) Wait() {
	p.cache.Wait()
}

// Stats returns hit and miss counts since creation.
func (p *CachedProvider) Stats() Stats {
	return Stats{
		Hits:   p.hits.Load(),
		Misses: p.misses.Load(),
	}
}

// Close releases the cache. The wrapped provider is not closed.
func (p *CachedProvider) Close() {
	p.cache.Close()
}

func clone(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	return out
}
