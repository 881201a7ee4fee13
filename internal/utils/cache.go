package utils

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type queryKey struct {
	version uint64
	query   string
}

// QueryCache bounded, expiring results keyed by catalog snapshot version.
// Entries of an older version are never returned; storing under a newer
// version drops them.
type QueryCache[T any] struct {
	mu      sync.Mutex
	latest  uint64
	storage *expirable.LRU[queryKey, T]
}

// NewQueryCache size is the max entry count, ttl the entry lifetime
func NewQueryCache[T any](size int, ttl time.Duration) *QueryCache[T] {
	return &QueryCache[T]{
		storage: expirable.NewLRU[queryKey, T](size, nil, ttl),
	}
}

// Get returns the live entry for query under version
func (c *QueryCache[T]) Get(version uint64, query string) (T, bool) {
	c.mu.Lock()
	stale := version < c.latest
	c.mu.Unlock()
	if stale {
		var zero T
		return zero, false
	}
	return c.storage.Get(queryKey{version, query})
}

// Set stores value; a write for an older version is ignored
func (c *QueryCache[T]) Set(version uint64, query string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case version < c.latest:
		return
	case version > c.latest:
		c.storage.Purge()
		c.latest = version
	}
	c.storage.Add(queryKey{version, query}, value)
}

// Reset drops every entry
func (c *QueryCache[T]) Reset() {
	c.mu.Lock()
	c.storage.Purge()
	c.mu.Unlock()
}

func (c *QueryCache[T]) Len() int {
	return c.storage.Len()
}
