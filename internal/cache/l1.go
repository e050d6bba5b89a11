package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// l1Entry wraps a cached value with its own expiry instant. TTLs vary per
// timeframe, so expiry has to live on the entry rather than on the cache.
type l1Entry struct {
	value   []byte
	expires time.Time
}

// L1Cache is the in-memory tier: a bounded LRU with per-entry expiry.
// A read on an expired entry removes it and reports a miss. One mutex
// guards all operations; critical sections never perform I/O.
type L1Cache struct {
	mu   sync.Mutex
	lru  *lru.Cache[string, l1Entry]
	hits int64
	miss int64
}

// NewL1Cache creates an L1 tier bounded at maxSize entries
func NewL1Cache(maxSize int) (*L1Cache, error) {
	if maxSize <= 0 {
		maxSize = 1000
	}
	backing, err := lru.New[string, l1Entry](maxSize)
	if err != nil {
		return nil, err
	}
	return &L1Cache{lru: backing}, nil
}

// Get returns the cached value iff present and unexpired. A hit refreshes
// the entry's LRU position.
func (c *L1Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.lru.Get(key)
	if !ok {
		c.miss++
		return nil, false
	}
	if time.Now().After(entry.expires) {
		c.lru.Remove(key)
		c.miss++
		return nil, false
	}
	c.hits++
	return entry.value, true
}

// Set stores a value with its own TTL, evicting the oldest entries when
// the cache is at capacity.
func (c *L1Cache) Set(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, l1Entry{value: value, expires: time.Now().Add(ttl)})
}

// Delete removes a key if present
func (c *L1Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

// Clear drops every entry
func (c *L1Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Contains reports presence without refreshing LRU order or expiring
func (c *L1Cache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.lru.Peek(key)
	return ok && time.Now().Before(entry.expires)
}

// Len returns the current entry count, expired entries included
func (c *L1Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// L1Stats reports hit/miss counters for the in-memory tier
type L1Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Entries int     `json:"entries"`
}

// Stats returns a snapshot of the L1 counters
func (c *L1Cache) Stats() L1Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.miss
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return L1Stats{
		Hits:    c.hits,
		Misses:  c.miss,
		HitRate: rate,
		Entries: c.lru.Len(),
	}
}
