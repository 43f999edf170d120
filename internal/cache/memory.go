package cache

import (
	"sync"
	"time"

	"slidecast/internal/feed"
)

// CacheEntry represents a cached item with expiration
type CacheEntry struct {
	Value      interface{}
	Expiration time.Time
}

// IsExpired checks if the cache entry has expired
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.Expiration)
}

// MemoryCache implements a simple in-memory cache
type MemoryCache struct {
	items map[string]*CacheEntry
	mutex sync.RWMutex
	ttl   time.Duration
}

// NewMemoryCache creates a new memory cache
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	cache := &MemoryCache{
		items: make(map[string]*CacheEntry),
		mutex: sync.RWMutex{},
		ttl:   ttl,
	}

	// Start cleanup goroutine
	go cache.cleanupExpired()

	return cache
}

// Set stores a value in the cache
func (c *MemoryCache) Set(key string, value interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = &CacheEntry{
		Value:      value,
		Expiration: time.Now().Add(c.ttl),
	}
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.items[key]
	if !exists || entry.IsExpired() {
		return nil, false
	}

	return entry.Value, true
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items = make(map[string]*CacheEntry)
}

// Size returns the number of items in the cache
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.items)
}

// cleanupExpired removes expired entries periodically
func (c *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(time.Minute * 5) // Cleanup every 5 minutes
	defer ticker.Stop()

	for range ticker.C {
		c.mutex.Lock()
		for key, entry := range c.items {
			if entry.IsExpired() {
				delete(c.items, key)
			}
		}
		c.mutex.Unlock()
	}
}

// compiledFeed bundles a feed and its fingerprint so both are cached and
// invalidated together.
type compiledFeed struct {
	Items       []feed.Item
	Fingerprint string
}

// FeedCache provides convenience methods for caching the compiled feed
type FeedCache struct {
	*MemoryCache
}

// NewFeedCache creates a new feed cache. The TTL is short because mutations
// also invalidate explicitly; the TTL only bounds staleness from external
// database writes.
func NewFeedCache() *FeedCache {
	return &FeedCache{
		MemoryCache: NewMemoryCache(5 * time.Second),
	}
}

const feedKey = "active_feed"

// SetFeed caches the compiled feed together with its fingerprint
func (fc *FeedCache) SetFeed(items []feed.Item, fingerprint string) {
	fc.Set(feedKey, &compiledFeed{Items: items, Fingerprint: fingerprint})
}

// GetFeed retrieves the cached feed and fingerprint
func (fc *FeedCache) GetFeed() ([]feed.Item, string, bool) {
	value, exists := fc.Get(feedKey)
	if !exists {
		return nil, "", false
	}

	cached, ok := value.(*compiledFeed)
	if !ok {
		return nil, "", false
	}
	return cached.Items, cached.Fingerprint, true
}

// Invalidate drops the cached feed after any playlist or media mutation
func (fc *FeedCache) Invalidate() {
	fc.Delete(feedKey)
}
