package prismic

import (
	"context"
	"sync"
	"time"
)

// refCache holds the master ref with a TTL so most queries skip the extra
// round trip to the API root.
type refCache struct {
	mu      sync.RWMutex
	ref     string
	fetched time.Time
	ttl     time.Duration
	load    func(ctx context.Context) (string, error)
}

func newRefCache(ttl time.Duration, load func(ctx context.Context) (string, error)) *refCache {
	return &refCache{ttl: ttl, load: load}
}

func (c *refCache) valid() bool {
	return c.ref != "" && time.Since(c.fetched) < c.ttl
}

// Invalidate forces the next Get to reload the ref.
func (c *refCache) Invalidate() {
	c.mu.Lock()
	c.ref = ""
	c.mu.Unlock()
}

// Get returns the cached ref, reloading it when stale. It tries a read lock
// first and only takes the write lock when a reload is needed.
func (c *refCache) Get(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.valid() {
		ref := c.ref
		c.mu.RUnlock()
		return ref, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.ref, nil
	}
	ref, err := c.load(ctx)
	if err != nil {
		return "", err
	}
	c.ref = ref
	c.fetched = time.Now()
	return ref, nil
}
