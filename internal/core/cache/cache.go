// Package cache wraps go-cache for the short-lived lookups the servers keep
// in front of the database.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is an instance of a key-value store whose contents are not shared
// between instances. Entries live for the default TTL unless Put is given
// another one.
type Cache struct {
	cacheInstance *gocache.Cache
}

// New returns a Cache whose entries expire after defaultTTL. A negative
// defaultTTL keeps entries until they are deleted.
func New(defaultTTL time.Duration) *Cache {
	return &Cache{cacheInstance: gocache.New(defaultTTL, 10*time.Second)}
}

// Put sets a key/value pair in the cache with an optional duration. Passing 0 for
// ttl will cause the default expiration to be used and -1 will not set a ttl.
func (c *Cache) Put(key string, value interface{}, ttl time.Duration) {
	c.cacheInstance.Set(key, value, ttl)
}

// Get fetches a value from the cache, returning the value as well as whether
// or not the value was found (semantics similar to map).
func (c *Cache) Get(key string) (interface{}, bool) {
	return c.cacheInstance.Get(key)
}

func (c *Cache) Delete(key string) {
	c.cacheInstance.Delete(key)
}
