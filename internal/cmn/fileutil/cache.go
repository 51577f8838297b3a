package fileutil

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type entry[T any] struct {
	data    T
	size    int64
	modTime time.Time
}

// Cache keeps decoded file contents in an expiring LRU. An entry is
// reloaded when the size or modification time of its file changes.
type Cache[T any] struct {
	name string
	lru  *expirable.LRU[string, entry[T]]
}

// NewCache creates a cache holding at most capacity entries for ttl.
// A capacity of 0 means unlimited size.
func NewCache[T any](name string, capacity int, ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		name: name,
		lru:  expirable.NewLRU[string, entry[T]](capacity, nil, ttl),
	}
}

// Name returns the cache name.
func (c *Cache[T]) Name() string {
	return c.name
}

// Size returns the current number of entries.
func (c *Cache[T]) Size() int {
	return c.lru.Len()
}

// Invalidate drops the entry for path.
func (c *Cache[T]) Invalidate(path string) {
	c.lru.Remove(path)
}

// LoadLatest returns the cached value for path, calling loader when the
// entry is missing or the file changed since it was cached.
func (c *Cache[T]) LoadLatest(path string, loader func() (T, error)) (T, error) {
	var zero T

	fi, err := os.Stat(path)
	if err != nil {
		return zero, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if e, ok := c.lru.Get(path); ok && e.size == fi.Size() && e.modTime.Equal(fi.ModTime()) {
		return e.data, nil
	}

	data, err := loader()
	if err != nil {
		return zero, err
	}
	c.lru.Add(path, entry[T]{data: data, size: fi.Size(), modTime: fi.ModTime()})
	return data, nil
}
