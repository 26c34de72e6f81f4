package hips

import (
	"fmt"
	"sync"

	"github.com/arlobase/astrofmt/internal/hash"
)

// TileCache deduplicates already-encoded tile bytes keyed by an xxhash
// digest of (order, npix, format), so a tile already encoded in a
// format is not encoded again. Bounded FIFO eviction; no
// recency tracking, since build-time reuse is the only access pattern.
type TileCache struct {
	mu       sync.Mutex
	capacity int
	order    []uint64
	entries  map[uint64][]byte
}

// NewTileCache returns a cache holding at most capacity entries.
func NewTileCache(capacity int) *TileCache {
	return &TileCache{capacity: capacity, entries: make(map[uint64][]byte)}
}

func tileCacheKey(order, npix int, format string) uint64 {
	return hash.ID(fmt.Sprintf("%d:%d:%s", order, npix, format))
}

func (c *TileCache) Get(order, npix int, format string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.entries[tileCacheKey(order, npix, format)]

	return data, ok
}

func (c *TileCache) Put(order, npix int, format string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := tileCacheKey(order, npix, format)
	if _, exists := c.entries[key]; !exists {
		if c.capacity > 0 && len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = data
}
