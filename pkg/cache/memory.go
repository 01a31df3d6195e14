package cache

import (
	"sync"
)

// MemoryCache implements a thread-safe in-memory cache with indexing support.
// Every method holds the lock for its whole duration, so each call is atomic
// with respect to the others.
type MemoryCache[K comparable, V any] struct {
	mu sync.RWMutex

	data map[K]V

	// extractors maps index name to the function deriving its value
	extractors map[string]func(V) any

	// indices stores indexName -> indexValue -> set of keys
	indices map[string]map[any]map[K]struct{}
}

var _ Store[string, int] = (*MemoryCache[string, int])(nil)

// NewMemoryCache creates a new instance of MemoryCache
func NewMemoryCache[K comparable, V any]() *MemoryCache[K, V] {
	return &MemoryCache[K, V]{
		data:       make(map[K]V),
		extractors: make(map[string]func(V) any),
		indices:    make(map[string]map[any]map[K]struct{}),
	}
}

// Set adds or updates an item in the cache
func (c *MemoryCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(key, value)
}

// SetNX adds the item only if key is absent.
func (c *MemoryCache[K, V]) SetNX(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.data[key]; exists {
		return false
	}
	c.put(key, value)
	return true
}

// Get retrieves an item from the cache
func (c *MemoryCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.data[key]
	return val, ok
}

// Del removes an item from the cache
func (c *MemoryCache[K, V]) Del(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	old, exists := c.data[key]
	if !exists {
		return false
	}
	c.removeFromIndexes(key, old)
	delete(c.data, key)
	return true
}

// DelFunc removes every item matching predicate and returns how many went.
func (c *MemoryCache[K, V]) DelFunc(predicate func(V) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, v := range c.data {
		if predicate(v) {
			c.removeFromIndexes(k, v)
			delete(c.data, k)
			n++
		}
	}
	return n
}

// Update replaces every item matching predicate with fn(item) and returns
// how many matched.
func (c *MemoryCache[K, V]) Update(predicate func(V) bool, fn func(V) V) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var keys []K
	for k, v := range c.data {
		if predicate(v) {
			keys = append(keys, k)
		}
	}
	for _, k := range keys {
		c.put(k, fn(c.data[k]))
	}
	return len(keys)
}

// UpdateKey replaces the item under key with fn(item). It does nothing and
// returns false when key is absent.
func (c *MemoryCache[K, V]) UpdateKey(key K, fn func(V) V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	old, exists := c.data[key]
	if !exists {
		return false
	}
	c.put(key, fn(old))
	return true
}

// Len returns the number of items in the cache
func (c *MemoryCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// AddIndex registers a new secondary index
func (c *MemoryCache[K, V]) AddIndex(name string, extractor func(V) any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.extractors[name] = extractor
	c.indices[name] = make(map[any]map[K]struct{})

	for k, v := range c.data {
		c.addIndexEntry(name, extractor(v), k)
	}
}

// Find retrieves items matching the index criteria
func (c *MemoryCache[K, V]) Find(indexName string, indexValue any) ([]V, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.extractors[indexName]; !ok {
		return nil, ErrIndexNotFound
	}

	keySet := c.indices[indexName][indexValue]
	results := make([]V, 0, len(keySet))
	for k := range keySet {
		if val, exists := c.data[k]; exists {
			results = append(results, val)
		}
	}
	return results, nil
}

// Filter scans the cache and returns items matching the predicate
func (c *MemoryCache[K, V]) Filter(predicate func(V) bool) []V {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var results []V
	for _, v := range c.data {
		if predicate(v) {
			results = append(results, v)
		}
	}
	return results
}

// Internal helper methods (assumes lock is held)

func (c *MemoryCache[K, V]) put(key K, value V) {
	if old, exists := c.data[key]; exists {
		c.removeFromIndexes(key, old)
	}
	c.data[key] = value
	for name, extractor := range c.extractors {
		c.addIndexEntry(name, extractor(value), key)
	}
}

func (c *MemoryCache[K, V]) removeFromIndexes(key K, value V) {
	for name, extractor := range c.extractors {
		c.removeIndexEntry(name, extractor(value), key)
	}
}

func (c *MemoryCache[K, V]) addIndexEntry(indexName string, indexValue any, key K) {
	index, ok := c.indices[indexName]
	if !ok {
		index = make(map[any]map[K]struct{})
		c.indices[indexName] = index
	}

	keySet, ok := index[indexValue]
	if !ok {
		keySet = make(map[K]struct{})
		index[indexValue] = keySet
	}
	keySet[key] = struct{}{}
}

func (c *MemoryCache[K, V]) removeIndexEntry(indexName string, indexValue any, key K) {
	if index, ok := c.indices[indexName]; ok {
		if keySet, ok := index[indexValue]; ok {
			delete(keySet, key)
			if len(keySet) == 0 {
				delete(index, indexValue)
			}
		}
	}
}
