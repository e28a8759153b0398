package whttp

import (
	"sync"
	"time"
)

// ResponseCache is a small TTL cache for successful responses, keyed by
// request URL. Adapters build their URLs deterministically from an
// item's identifier, so repeated checks of the same item within the TTL
// hit the cache instead of the retailer.
type ResponseCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	res     *WHTTPRes
	expires time.Time
}

// NewResponseCache creates a cache with the given entry lifetime.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached response for the URL if it has not expired.
func (c *ResponseCache) Get(url string) (*WHTTPRes, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[url]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		delete(c.entries, url)
		return nil, false
	}
	return e.res, true
}

// Put stores a response. Expired entries are swept lazily on Get.
func (c *ResponseCache) Put(url string, res *WHTTPRes) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = cacheEntry{res: res, expires: time.Now().Add(c.ttl)}
}
