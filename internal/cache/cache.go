// Package cache provides the bounded TTL+LRU result cache for retrieval
// responses. Entries are keyed by a content hash of the caller-supplied
// stable identifier or, failing that, the normalized query text. The cache
// is in-memory and volatile; there is no cross-restart persistence and no
// explicit invalidation.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kikuchi0790/ukfr-smbc-app-sub000/pkg/types"
)

const (
	// DefaultCapacity bounds the number of cached result sets.
	DefaultCapacity = 1000
	// DefaultTTL is the production entry lifetime.
	DefaultTTL = 24 * time.Hour
)

// entry is one cached passage list with its expiry.
type entry struct {
	passages  []types.RetrievedPassage
	expiresAt time.Time
}

// Cache memoizes retrieval results. Get never fails and Set always
// succeeds; expiry is checked lazily on read and an expired hit is treated
// as a miss and evicted. A valid hit is promoted to most-recently-used.
type Cache struct {
	mu  sync.Mutex
	lru *lru.Cache[string, *entry]
	ttl time.Duration
	now func() time.Time // injectable for tests
}

// New creates a cache with the given capacity and TTL. Non-positive values
// fall back to the defaults.
func New(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	inner, err := lru.New[string, *entry](capacity)
	if err != nil {
		// Only reachable with a non-positive size, which is guarded above.
		panic(err)
	}
	return &Cache{
		lru: inner,
		ttl: ttl,
		now: time.Now,
	}
}

// Key derives the stable cache key. The caller-supplied identifier wins when
// present; otherwise the normalized query text identifies the question.
func Key(stableID, normalizedQuery string) string {
	source := stableID
	if source == "" {
		source = normalizedQuery
	}
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Get returns a copy of the cached passages for key, or false on a miss or
// an expired entry.
func (c *Cache) Get(key string) ([]types.RetrievedPassage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.lru.Remove(key)
		return nil, false
	}

	out := make([]types.RetrievedPassage, len(e.passages))
	copy(out, e.passages)
	return out, true
}

// Set stores passages under key, evicting the least-recently-used entry on
// overflow.
func (c *Cache) Set(key string, passages []types.RetrievedPassage) {
	stored := make([]types.RetrievedPassage, len(passages))
	copy(stored, passages)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, &entry{
		passages:  stored,
		expiresAt: c.now().Add(c.ttl),
	})
}

// Len reports the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}
