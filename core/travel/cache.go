package travel

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/kilianp07/blockplan/core/model"
)

// Key identifies a directed route for one travel mode. Origin and Destination
// are location keys as returned by model.Location.Key.
type Key struct {
	Origin      string
	Destination string
	Mode        model.TravelMode
}

// Cache stores travel durations in minutes. Implementations must be safe for
// concurrent use.
type Cache interface {
	Get(k Key) (int, bool)
	Set(k Key, minutes int)
	// GetAnyMode returns a cached duration for the route under any mode,
	// probing modes in model.TravelModes order.
	GetAnyMode(origin, destination string) (int, model.TravelMode, bool)
}

// MemoryCache is an unbounded map guarded by a RWMutex.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[Key]int
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[Key]int)}
}

func (c *MemoryCache) Get(k Key) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[k]
	return v, ok
}

func (c *MemoryCache) Set(k Key, minutes int) {
	c.mu.Lock()
	c.entries[k] = minutes
	c.mu.Unlock()
}

func (c *MemoryCache) GetAnyMode(origin, destination string) (int, model.TravelMode, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range model.TravelModes {
		if v, ok := c.entries[Key{origin, destination, m}]; ok {
			return v, m, true
		}
	}
	return 0, "", false
}

// Len returns the number of cached routes.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// LRUCache bounds the number of routes and optionally expires them.
type LRUCache struct {
	lru *expirable.LRU[Key, int]
}

// NewLRUCache returns a cache holding at most size routes. A zero ttl keeps
// entries until evicted by size.
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	return &LRUCache{lru: expirable.NewLRU[Key, int](size, nil, ttl)}
}

func (c *LRUCache) Get(k Key) (int, bool) { return c.lru.Get(k) }

func (c *LRUCache) Set(k Key, minutes int) { c.lru.Add(k, minutes) }

func (c *LRUCache) GetAnyMode(origin, destination string) (int, model.TravelMode, bool) {
	for _, m := range model.TravelModes {
		if v, ok := c.lru.Peek(Key{origin, destination, m}); ok {
			return v, m, true
		}
	}
	return 0, "", false
}

// Len returns the number of cached routes.
func (c *LRUCache) Len() int { return c.lru.Len() }

// CacheConfig selects the cache implementation.
type CacheConfig struct {
	// Kind is "lru" (default) or "memory".
	Kind string        `json:"kind"`
	Size int           `json:"size"`
	TTL  time.Duration `json:"ttl"`
}

// NewCache builds the configured cache.
func NewCache(cfg CacheConfig) Cache {
	if cfg.Kind == "memory" {
		return NewMemoryCache()
	}
	size := cfg.Size
	if size <= 0 {
		size = DefaultCacheSize
	}
	return NewLRUCache(size, cfg.TTL)
}
