package cache

import (
	"strings"
	"time"
)

// Key is a cache key tagged with the type of value stored under it.
type Key[V any] string

func (k Key[V]) String() string { return string(k) }

// Load returns the value under key if present, live and of type V.
// A value of another type counts as a miss.
func Load[V any](c *Cache, key Key[V]) (V, bool) {
	var zero V

	raw, ok := c.Get(string(key))
	if !ok {
		return zero, false
	}
	v, ok := raw.(V)
	if !ok {
		return zero, false
	}
	return v, true
}

func Store[V any](c *Cache, key Key[V], value V, ttl time.Duration) {
	c.Set(string(key), value, ttl)
}

// JoinKey joins the non-empty parts with ":".
//
//	JoinKey("list-objects", "demo", "")   == "list-objects:demo"
//	JoinKey("list-objects", "demo", "a/") == "list-objects:demo:a/"
func JoinKey(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ":")
}
