// Package cache provides a generic, indexed, thread-safe in-memory table.
package cache

import "errors"

// ErrIndexNotFound is returned when querying a non-existent index
var ErrIndexNotFound = errors.New("index not found")

// Cache defines the basic interface for a generic cache
type Cache[K comparable, V any] interface {
	// Set adds or updates an item in the cache
	Set(key K, value V)
	// SetNX adds an item only if the key is absent and reports whether it did
	SetNX(key K, value V) bool
	// Get retrieves an item from the cache
	Get(key K) (V, bool)
	// Del removes an item and reports whether it existed
	Del(key K) bool
	// Len returns the number of items in the cache
	Len() int
}

// Store extends Cache with querying and bulk mutation.
type Store[K comparable, V any] interface {
	Cache[K, V]

	// AddIndex registers a new secondary index
	AddIndex(name string, extractor func(V) any)

	// Find retrieves items matching the index criteria
	Find(indexName string, indexValue any) ([]V, error)

	// Filter scans the cache and returns items matching the predicate
	Filter(predicate func(V) bool) []V

	// Update rewrites every item matching the predicate under one lock
	Update(predicate func(V) bool, fn func(V) V) int

	// UpdateKey rewrites the item stored under key and reports whether it existed
	UpdateKey(key K, fn func(V) V) bool

	// DelFunc removes every item matching the predicate under one lock
	DelFunc(predicate func(V) bool) int
}
