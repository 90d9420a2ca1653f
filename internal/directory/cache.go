package directory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Loader fetches a fresh directory.
type Loader func(ctx context.Context) (Directory, error)

// Cache is a get-or-populate holder for the directory. A zero TTL keeps the
// first successful load for the life of the cache.
type Cache struct {
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu       sync.RWMutex
	dir      Directory
	loadedAt time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL expires entries after d.
func WithTTL(d time.Duration) CacheOption {
	return func(c *Cache) { c.ttl = d }
}

// WithClock injects the time source.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// NewCache creates an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetOrPopulate returns the cached directory, calling load when the cache is
// empty or expired. Concurrent callers share one load. A failed load leaves
// the previous state untouched.
func (c *Cache) GetOrPopulate(ctx context.Context, load Loader) (Directory, error) {
	if dir, ok := c.fresh(); ok {
		return dir, nil
	}

	v, err, _ := c.group.Do("directory", func() (any, error) {
		if dir, ok := c.fresh(); ok {
			return dir, nil
		}
		dir, err := load(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.dir = dir
		c.loadedAt = c.now()
		c.mu.Unlock()

		zap.L().Debug("directory: cache populated", zap.Int("employees", len(dir)))
		return dir, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Directory), nil
}

// Invalidate drops the cached directory.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dir = nil
	c.loadedAt = time.Time{}
}

func (c *Cache) fresh() (Directory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.dir == nil {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(c.loadedAt) >= c.ttl {
		return nil, false
	}
	return c.dir, true
}
