package cache

import (
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ArtifactCache is an in-memory Store with per-entry expiry and a bound on
// the total bytes held. Each chain run owns its own instance.
type ArtifactCache struct {
	items    *gocache.Cache
	maxBytes int64

	mu    sync.Mutex
	bytes int64

	hits   atomic.Int64
	misses atomic.Int64
}

// NewArtifactCache creates a cache whose entries live for ttl. maxBytes <= 0
// means unbounded.
func NewArtifactCache(ttl time.Duration, maxBytes int64) *ArtifactCache {
	c := &ArtifactCache{
		items:    gocache.New(ttl, 2*ttl),
		maxBytes: maxBytes,
	}
	c.items.OnEvicted(func(_ string, v interface{}) {
		if data, ok := v.([]byte); ok {
			c.release(int64(len(data)))
		}
	})
	return c
}

// Lookup returns the cached body of rawURL
func (c *ArtifactCache) Lookup(rawURL string) ([]byte, bool) {
	if v, found := c.items.Get(Key(rawURL)); found {
		if data, ok := v.([]byte); ok {
			c.hits.Add(1)
			return data, true
		}
	}
	c.misses.Add(1)
	return nil, false
}

// Store caches data for rawURL. It reports false when the entry would push
// the cache past its byte bound; the caller still has the data.
func (c *ArtifactCache) Store(rawURL string, data []byte) bool {
	key := Key(rawURL)
	size := int64(len(data))

	c.mu.Lock()
	if old, found := c.items.Get(key); found {
		if b, ok := old.([]byte); ok {
			c.bytes -= int64(len(b))
		}
	}
	if c.maxBytes > 0 && c.bytes+size > c.maxBytes {
		c.mu.Unlock()
		return false
	}
	c.bytes += size
	c.mu.Unlock()

	// SetDefault does not fire OnEvicted for the replaced value
	c.items.SetDefault(key, data)
	return true
}

// Purge drops every entry
func (c *ArtifactCache) Purge() {
	c.items.Flush()
	c.mu.Lock()
	c.bytes = 0
	c.mu.Unlock()
}

// Stats returns the current counters
func (c *ArtifactCache) Stats() Stats {
	c.mu.Lock()
	bytes := c.bytes
	c.mu.Unlock()
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.items.ItemCount(),
		Bytes:   bytes,
	}
}

func (c *ArtifactCache) release(n int64) {
	c.mu.Lock()
	c.bytes -= n
	if c.bytes < 0 {
		c.bytes = 0
	}
	c.mu.Unlock()
}
