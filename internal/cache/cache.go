// Package cache provides the read-side result cache that sits in front of the
// transaction queries. Entries expire after a TTL and are invalidated
// explicitly by writes, either one key (plus its derived namespace) at a time
// or by prefix.
package cache

import (
	"strings"
	"sync"
	"time"
)

// DefaultTTL is the lifetime of an entry when no TTL is given.
const DefaultTTL = 5 * time.Minute

// NamespaceSeparator separates a base key from the keys derived from it.
// "transactions:sort=amount" belongs to the namespace of "transactions".
const NamespaceSeparator = ":"

// Observer receives cache lookup outcomes, keyed by namespace.
type Observer interface {
	ObserveCacheLookup(namespace string, hit bool)
}

// Option configures a Cache.
type Option func(*Cache)

// WithObserver reports every lookup to o.
func WithObserver(o Observer) Option {
	return func(c *Cache) { c.observer = o }
}

// WithCleanupInterval sets how often expired entries are swept.
// A non-positive interval disables the background sweep.
func WithCleanupInterval(d time.Duration) Option {
	return func(c *Cache) { c.cleanupInterval = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// entry is a populated cache slot.
type entry struct {
	populatedAt time.Time
	expiry      time.Time
	value       any
}

// Cache is a thread-safe TTL cache. A single mutex guards all state and is
// held only for map access, never while a loader runs.
type Cache struct {
	now             func() time.Time
	observer        Observer
	entries         map[string]entry
	stopCh          chan struct{}
	closeOnce       sync.Once
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	// epoch increments on every invalidation so that a loader which started
	// before the invalidation cannot publish its now-stale result.
	epoch uint64
	mu    sync.Mutex
}

// New creates a cache whose entries live for defaultTTL unless told otherwise.
func New(defaultTTL time.Duration, opts ...Option) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}

	c := &Cache{
		entries:         make(map[string]entry),
		defaultTTL:      defaultTTL,
		cleanupInterval: defaultTTL,
		now:             time.Now,
		stopCh:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.cleanupInterval > 0 {
		go c.cleanup()
	}

	return c
}

// Get returns the live value stored under key.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	value, ok := c.lookupLocked(key)
	c.mu.Unlock()

	c.observe(key, ok)
	return value, ok
}

// Set stores value under key for ttl (the default TTL when ttl <= 0).
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storeLocked(key, value, ttl)
}

// GetOrCompute returns the live value for key, or runs loader and caches its
// result. Loader errors are returned and nothing is cached. If the cache is
// invalidated while loader runs, the result is returned but not stored.
func (c *Cache) GetOrCompute(key string, ttl time.Duration, loader func() (any, error)) (any, error) {
	c.mu.Lock()
	value, ok := c.lookupLocked(key)
	epoch := c.epoch
	c.mu.Unlock()

	c.observe(key, ok)
	if ok {
		return value, nil
	}

	value, err := loader()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.epoch == epoch {
		c.storeLocked(key, value, ttl)
	}
	c.mu.Unlock()

	return value, nil
}

// Invalidate removes key and every key derived from it.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	delete(c.entries, key)
	prefix := key + NamespaceSeparator
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

// InvalidatePrefix removes every key starting with prefix.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

// Clear removes all entries from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.entries = make(map[string]entry)
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.stopCh) })
}

func (c *Cache) lookupLocked(key string) (any, bool) {
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiry) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *Cache) storeLocked(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	now := c.now()
	c.entries[key] = entry{
		value:       value,
		populatedAt: now,
		expiry:      now.Add(ttl),
	}
}

func (c *Cache) observe(key string, hit bool) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveCacheLookup(Namespace(key), hit)
}

// cleanup periodically removes expired entries.
func (c *Cache) cleanup() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for key, e := range c.entries {
				if !now.Before(e.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Namespace returns the base key that key belongs to.
func Namespace(key string) string {
	if i := strings.Index(key, NamespaceSeparator); i >= 0 {
		return key[:i]
	}
	return key
}

// Load is a typed GetOrCompute. A nil cache runs loader uncached.
func Load[T any](c *Cache, key string, ttl time.Duration, loader func() (T, error)) (T, error) {
	if c == nil {
		return loader()
	}

	value, err := c.GetOrCompute(key, ttl, func() (any, error) {
		return loader()
	})
	if err != nil {
		var zero T
		return zero, err
	}

	typed, ok := value.(T)
	if !ok {
		// A foreign value under our key; recompute rather than fail the read.
		c.Invalidate(key)
		return loader()
	}
	return typed, nil
}
