// Package docscache caches decoded rustdoc JSON trees fetched from
// docs.rs. Decoded trees are expensive to fetch and decompress, so the
// cache holds few entries with a long TTL, evicting by last access.
package docscache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/cratesmcp/docsrs"
)

// Fetcher retrieves documentation for a crate version. Implemented by
// *docsrs.Client.
type Fetcher interface {
	FetchDocs(ctx context.Context, name, version string) (*docsrs.Crate, error)
}

// Config configures the documentation cache.
type Config struct {
	// MaxEntries is the entry-count capacity. Documentation trees are
	// large, so the default is deliberately small. Default: 10
	MaxEntries int

	// TTL is how long an entry stays live. Documentation changes far
	// less often than registry statistics. Default: 1 hour
	TTL time.Duration
}

// Cache is a bounded, time-expiring store for decoded documentation
// trees, keyed by (crate name, version).
//
// Values are shared between callers as immutable pointers; callers must
// not mutate a returned Crate.
type Cache struct {
	config Config
	group  singleflight.Group

	mu      sync.Mutex
	entries map[key]*entry
}

type key struct {
	name    string
	version string
}

type entry struct {
	krate        *docsrs.Crate
	fetchedAt    time.Time
	lastAccessed time.Time
}

// New creates a documentation cache.
func New(config Config) *Cache {
	// Apply defaults
	if config.MaxEntries <= 0 {
		config.MaxEntries = 10
	}
	if config.TTL <= 0 {
		config.TTL = time.Hour
	}

	return &Cache{
		config:  config,
		entries: make(map[key]*entry),
	}
}

// Get returns the cached tree for (name, version) if present and live.
func (c *Cache) Get(name, version string) (*docsrs.Crate, bool) {
	k := key{name, version}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[k]
	if !ok {
		return nil, false
	}
	if time.Since(e.fetchedAt) > c.config.TTL {
		delete(c.entries, k)
		return nil, false
	}
	e.lastAccessed = time.Now()
	return e.krate, true
}

// Insert stores a tree, evicting the least-recently-accessed entry if
// the cache is full. Expired entries are purged first.
func (c *Cache) Insert(name, version string, krate *docsrs.Crate) {
	k := key{name, version}
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for ek, e := range c.entries {
		if now.Sub(e.fetchedAt) > c.config.TTL {
			delete(c.entries, ek)
		}
	}

	if _, exists := c.entries[k]; !exists && len(c.entries) >= c.config.MaxEntries {
		var lruKey key
		var lruTime time.Time
		first := true
		for ek, e := range c.entries {
			if first || e.lastAccessed.Before(lruTime) {
				lruKey, lruTime = ek, e.lastAccessed
				first = false
			}
		}
		if !first {
			delete(c.entries, lruKey)
		}
	}

	c.entries[k] = &entry{
		krate:        krate,
		fetchedAt:    now,
		lastAccessed: now,
	}
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetOrFetch returns the cached tree for (name, version), or fetches,
// decodes, and stores it on miss. Concurrent callers for the same key
// share one fetch; fetch and decode failures propagate to every waiter
// and are never cached.
func (c *Cache) GetOrFetch(ctx context.Context, fetcher Fetcher, name, version string) (*docsrs.Crate, error) {
	if krate, ok := c.Get(name, version); ok {
		return krate, nil
	}

	ch := c.group.DoChan(name+"@"+version, func() (any, error) {
		// Re-check: the entry may have landed while we queued.
		if krate, ok := c.Get(name, version); ok {
			return krate, nil
		}
		krate, err := fetcher.FetchDocs(ctx, name, version)
		if err != nil {
			return nil, err
		}
		c.Insert(name, version, krate)
		return krate, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*docsrs.Crate), nil
	}
}
