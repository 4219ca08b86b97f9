// Package cache is a process-local key/value cache with per-entry TTL.
//
// Expiry is lazy: an entry past its deadline is dropped the next time it is
// looked up (Get, Has) or during Purge. There is no background goroutine.
// A Cache is safe for concurrent use.
package cache

import (
	"strings"
	"sync"
	"time"
)

// DefaultTTL applies when Set is called with a non-positive ttl.
const DefaultTTL = 5 * time.Minute

// Observer receives lookup and eviction events, e.g. for metrics.
type Observer interface {
	Hit(key string)
	Miss(key string)
	Evict(key string)
}

type entry struct {
	value     any
	createdAt time.Time
	expiresAt time.Time
}

type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	now        func() time.Time
	defaultTTL time.Duration
	observer   Observer
}

type Option func(*Cache)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Cache) { c.observer = o }
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries:    make(map[string]entry),
		now:        time.Now,
		defaultTTL: DefaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores value under key, replacing any previous entry.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = entry{value: value, createdAt: now, expiresAt: now.Add(ttl)}
}

// Get returns the live value under key. Expired entries are removed and
// reported as a miss.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	v, ok := c.lookup(key)
	c.mu.Unlock()

	if c.observer != nil {
		if ok {
			c.observer.Hit(key)
		} else {
			c.observer.Miss(key)
		}
	}
	return v, ok
}

func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.lookup(key)
	return ok
}

// lookup must be called with c.mu held.
func (c *Cache) lookup(key string) (any, bool) {
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()

	if ok && c.observer != nil {
		c.observer.Evict(key)
	}
}

// Clear removes every entry, reporting each one to the observer.
func (c *Cache) Clear() {
	c.mu.Lock()
	removed := make([]string, 0, len(c.entries))
	for k := range c.entries {
		removed = append(removed, k)
	}
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	c.notifyEvicted(removed)
}

// ClearByPrefix removes every key starting with prefix and returns how many
// were removed. An empty prefix matches everything.
func (c *Cache) ClearByPrefix(prefix string) int {
	c.mu.Lock()
	var removed []string
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			removed = append(removed, k)
		}
	}
	c.mu.Unlock()

	c.notifyEvicted(removed)
	return len(removed)
}

// Purge drops every expired entry and returns the count.
func (c *Cache) Purge() int {
	c.mu.Lock()
	now := c.now()
	var removed []string
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed = append(removed, k)
		}
	}
	c.mu.Unlock()

	c.notifyEvicted(removed)
	return len(removed)
}

func (c *Cache) notifyEvicted(keys []string) {
	if c.observer == nil {
		return
	}
	for _, k := range keys {
		c.observer.Evict(k)
	}
}

// Len counts stored entries, expired ones included until they are purged.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
