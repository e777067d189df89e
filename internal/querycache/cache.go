// ABOUTME: Process-wide client query cache keyed by query name and structural input.
// ABOUTME: LRU-bounded via golang-lru with atomic read-modify-write updates per key.
package querycache

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the number of query results kept when no size is given.
const DefaultSize = 500

// Key identifies a cached query result. Inputs that serialize to the same
// canonical JSON share a cache entry.
type Key struct {
	Name  string
	Kind  string
	Input any
}

// String returns the deterministic serialization used for lookup.
// encoding/json emits struct fields in declaration order and map keys sorted.
func (k Key) String() string {
	input, err := json.Marshal(k.Input)
	if err != nil {
		input = []byte(fmt.Sprintf("%#v", k.Input))
	}
	return k.Name + "|" + k.Kind + "|" + string(input)
}

// Updater receives the current value (found reports whether one exists) and
// returns the replacement. Returning write=false leaves the entry untouched.
type Updater func(old any, found bool) (next any, write bool)

// Cache stores query results. Each Set is one atomic replace of one entry.
type Cache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, any]
}

// New creates a cache holding at most size entries.
func New(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, any](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Get returns the cached value for key.
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Get(key.String())
}

// Set runs fn against the current value and stores its result in one step.
// It reports whether a write happened.
func (c *Cache) Set(key Key, fn Updater) bool {
	k := key.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	old, found := c.entries.Peek(k)
	next, write := fn(old, found)
	if !write {
		return false
	}
	c.entries.Add(k, next)
	return true
}

// Put stores value under key, replacing any previous value.
func (c *Cache) Put(key Key, value any) {
	c.Set(key, func(any, bool) (any, bool) { return value, true })
}

// Remove drops the entry for key. Used when a query is torn down.
func (c *Cache) Remove(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Remove(key.String())
}

// Invalidate drops every entry belonging to the named query and returns how many went.
func (c *Cache) Invalidate(name string) int {
	prefix := name + "|"

	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, k := range c.entries.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.entries.Remove(k)
			n++
		}
	}
	return n
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// GetQueryData returns the cached value for key when it holds a T.
func GetQueryData[T any](c *Cache, key Key) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// SetQueryData applies fn to the typed value under key. Entries that are
// missing or hold another type are passed to fn as found=false.
func SetQueryData[T any](c *Cache, key Key, fn func(old T, found bool) (T, bool)) bool {
	return c.Set(key, func(old any, found bool) (any, bool) {
		typed, ok := old.(T)
		return fn(typed, found && ok)
	})
}
