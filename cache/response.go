package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ResponseCacheConfig configures the response cache.
type ResponseCacheConfig struct {
	// Enabled turns result storage on. When false, GetOrCompute always
	// invokes compute, still serialized per key through the
	// single-flight group so a given key never has more than one
	// concurrent upstream call.
	Enabled bool

	// TTL is how long a stored entry stays live. Default: 5 minutes
	TTL time.Duration

	// MaxSize is the entry-count bound. When an insert would exceed it,
	// the oldest-by-insertion entry is evicted. Default: 200
	MaxSize int

	// OnHit, OnMiss, and OnShared are optional observation hooks, called
	// outside the cache lock.
	OnHit    func(key string)
	OnMiss   func(key string)
	OnShared func(key string)
}

// ResponseCache is a bounded, time-expiring store for completed tool
// results with single-flight deduplication of concurrent identical
// requests.
//
// Entries are owned by the cache: callers always receive a copy. Expired
// entries are treated as absent lazily at lookup and purged
// opportunistically during insert-triggered eviction.
type ResponseCache struct {
	config ResponseCacheConfig
	group  singleflight.Group

	mu      sync.Mutex
	entries map[string]*responseEntry
	order   *list.List // insertion order; front = oldest
}

type responseEntry struct {
	value      []byte
	insertedAt time.Time
	expiresAt  time.Time
	elem       *list.Element
}

// NewResponseCache creates a new response cache.
func NewResponseCache(config ResponseCacheConfig) *ResponseCache {
	// Apply defaults
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}
	if config.MaxSize <= 0 {
		config.MaxSize = 200
	}

	return &ResponseCache{
		config:  config,
		entries: make(map[string]*responseEntry),
		order:   list.New(),
	}
}

// GetOrCompute returns the cached value for key, attaches to an in-flight
// computation for the same key, or invokes compute as the sole owner.
//
// On success the result is stored with expiry now+TTL. Failures are never
// cached; every caller attached to the failing computation receives the
// same error. The in-flight marker is dropped the instant the result is
// available. A caller whose ctx expires while attached unblocks
// immediately; the owning computation keeps the marker until it returns,
// at which point its failure (including a timeout) resolves any waiters.
func (c *ResponseCache) GetOrCompute(ctx context.Context, key string, compute func(context.Context) ([]byte, error)) ([]byte, Outcome, error) {
	if err := ValidateKey(key); err != nil {
		return nil, OutcomeMiss, err
	}

	if c.config.Enabled {
		if v, ok := c.lookup(key); ok {
			if c.config.OnHit != nil {
				c.config.OnHit(key)
			}
			return v, OutcomeHit, nil
		}
	}

	ch := c.group.DoChan(key, func() (any, error) {
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if c.config.Enabled {
			c.store(key, v)
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, OutcomeMiss, ctx.Err()
	case res := <-ch:
		outcome := OutcomeMiss
		if res.Shared {
			outcome = OutcomeShared
		}
		if res.Err != nil {
			return nil, outcome, res.Err
		}
		if outcome == OutcomeShared {
			if c.config.OnShared != nil {
				c.config.OnShared(key)
			}
		} else if c.config.OnMiss != nil {
			c.config.OnMiss(key)
		}
		v := res.Val.([]byte)
		return append([]byte(nil), v...), outcome, nil
	}
}

// Len returns the number of stored entries, including any not yet lazily
// expired.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// lookup returns a copy of the live entry for key, treating expired
// entries as absent.
func (c *ResponseCache) lookup(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.removeLocked(key, e)
		return nil, false
	}
	return append([]byte(nil), e.value...), true
}

func (c *ResponseCache) store(key string, value []byte) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		// Refresh: re-insertion moves the entry to the back of the
		// eviction order.
		e.value = append([]byte(nil), value...)
		e.insertedAt = now
		e.expiresAt = now.Add(c.config.TTL)
		c.order.MoveToBack(e.elem)
		return
	}

	if len(c.entries) >= c.config.MaxSize {
		c.purgeExpiredLocked(now)
	}
	for len(c.entries) >= c.config.MaxSize {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		k := oldest.Value.(string)
		c.removeLocked(k, c.entries[k])
	}

	e := &responseEntry{
		value:      append([]byte(nil), value...),
		insertedAt: now,
		expiresAt:  now.Add(c.config.TTL),
	}
	e.elem = c.order.PushBack(key)
	c.entries[key] = e
}

func (c *ResponseCache) purgeExpiredLocked(now time.Time) {
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		k := elem.Value.(string)
		if e := c.entries[k]; e != nil && now.After(e.expiresAt) {
			c.removeLocked(k, e)
		}
		elem = next
	}
}

func (c *ResponseCache) removeLocked(key string, e *responseEntry) {
	if e == nil {
		return
	}
	delete(c.entries, key)
	c.order.Remove(e.elem)
}
