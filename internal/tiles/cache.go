// Package tiles proxies basemap raster tiles for the preview server and
// keeps recently used tiles in memory.
package tiles

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// Coord addresses one slippy-map tile.
type Coord struct {
	Z, X, Y int
}

// Cache is a concurrent-safe LRU cache of tile images with TTL expiry.
type Cache struct {
	mu         sync.Mutex
	entries    map[Coord]*list.Element
	order      *list.List // front = most recently used
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	coord    Coord
	data     []byte
	storedAt time.Time
}

// CacheStats reports cache usage.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// NewCache returns a cache holding up to maxEntries tiles for ttl each.
// ttl <= 0 means tiles never expire.
func NewCache(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Cache{
		entries:    make(map[Coord]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Get returns the cached tile or nil.
func (c *Cache) Get(tc Coord) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[tc]
	if !ok {
		c.misses.Add(1)
		return nil
	}
	e := el.Value.(*entry)
	if c.ttl > 0 && c.now().Sub(e.storedAt) > c.ttl {
		c.order.Remove(el)
		delete(c.entries, tc)
		c.misses.Add(1)
		return nil
	}

	c.order.MoveToFront(el)
	c.hits.Add(1)
	return e.data
}

// Put stores a tile, evicting the least recently used one when full.
func (c *Cache) Put(tc Coord, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[tc]; ok {
		el.Value = &entry{coord: tc, data: data, storedAt: c.now()}
		c.order.MoveToFront(el)
		return
	}

	for len(c.entries) >= c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).coord)
	}
	c.entries[tc] = c.order.PushFront(&entry{coord: tc, data: data, storedAt: c.now()})
}

// Stats returns a snapshot of cache usage.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()

	hits, misses := c.hits.Load(), c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return CacheStats{
		Entries:    n,
		MaxEntries: c.maxEntries,
		Hits:       hits,
		Misses:     misses,
		HitRate:    rate,
	}
}
