package feed

import (
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"cointrack/pkg/market"
)

const defaultCacheTTL = 30 * time.Second

// PageKey identifies one page under one ordering. A sort change yields new
// keys, so cached pages never leak across orderings.
func PageKey(page int, sort market.Sort) string {
	return "page:" + strconv.Itoa(page) + ":" + sort.Key.Field() + ":" + string(sort.Direction)
}

type cacheEntry struct {
	Assets  []market.Asset `msgpack:"assets"`
	Fetched time.Time      `msgpack:"fetched"`
}

// Cache memoizes fetched pages for a TTL and keeps expired entries around as
// a stale fallback.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

// NewCache constructs a Cache; ttl <= 0 selects 30s.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the payload stored under key if it is younger than the TTL.
func (c *Cache) Get(key string) ([]market.Asset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || c.now().Sub(entry.Fetched) >= c.ttl {
		return nil, false
	}
	return entry.Assets, true
}

// Stale returns the payload stored under key regardless of age.
func (c *Cache) Stale(key string) ([]market.Asset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return entry.Assets, true
}

// Set stores assets under key, stamped with the current time.
func (c *Cache) Set(key string, assets []market.Asset) {
	clone := make([]market.Asset, len(assets))
	copy(clone, assets)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{Assets: clone, Fetched: c.now()}
}

// Len reports the number of entries, fresh or stale.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Dump writes every entry to w as msgpack.
func (c *Cache) Dump(w io.Writer) error {
	c.mu.RLock()
	snapshot := make(map[string]cacheEntry, len(c.entries))
	for k, v := range c.entries {
		snapshot[k] = v
	}
	c.mu.RUnlock()
	if err := msgpack.NewEncoder(w).Encode(snapshot); err != nil {
		return fmt.Errorf("feed: encode cache: %w", err)
	}
	return nil
}

// Restore merges entries previously written by Dump. Entries keep their
// original timestamps, so restored data is usually only a stale fallback.
func (c *Cache) Restore(r io.Reader) error {
	var snapshot map[string]cacheEntry
	if err := msgpack.NewDecoder(r).Decode(&snapshot); err != nil {
		return fmt.Errorf("feed: decode cache: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range snapshot {
		if cur, ok := c.entries[k]; ok && cur.Fetched.After(v.Fetched) {
			continue
		}
		c.entries[k] = v
	}
	return nil
}
