// Package boundedmap implements an ordered map with a fixed capacity, that
// never allocates after construction.
package boundedmap

import (
	"iter"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

type (
	// Map is an ordered map, backed by an arena of slots, allocated up
	// front. It is not safe for concurrent use.
	Map[K constraints.Ordered, V any] struct {
		slots  []slot[K, V]
		free   []int // stack of unused slot indices
		sorted []int // used slot indices, ascending by key
	}

	slot[K constraints.Ordered, V any] struct {
		key   K
		value V
	}
)

// New allocates a map that holds at most capacity entries, which must be
// positive.
func New[K constraints.Ordered, V any](capacity int) *Map[K, V] {
	if capacity <= 0 {
		panic(`boundedmap: capacity must be positive`)
	}
	x := &Map[K, V]{
		slots:  make([]slot[K, V], capacity),
		free:   make([]int, capacity),
		sorted: make([]int, 0, capacity),
	}
	for i := range x.free {
		x.free[i] = capacity - 1 - i
	}
	return x
}

func (x *Map[K, V]) search(key K) (int, bool) {
	return slices.BinarySearchFunc(x.sorted, key, func(i int, key K) int {
		switch k := x.slots[i].key; {
		case k < key:
			return -1
		case k > key:
			return 1
		default:
			return 0
		}
	})
}

// Get returns the value for key.
func (x *Map[K, V]) Get(key K) (value V, ok bool) {
	if p := x.Ptr(key); p != nil {
		return *p, true
	}
	return value, false
}

// Ptr returns a pointer to the value for key, or nil if absent. It is
// invalidated by Delete of the same key.
func (x *Map[K, V]) Ptr(key K) *V {
	if i, ok := x.search(key); ok {
		return &x.slots[x.sorted[i]].value
	}
	return nil
}

// Set stores value for key, returning false if key is absent, and the map is
// full.
func (x *Map[K, V]) Set(key K, value V) bool {
	i, ok := x.search(key)
	if ok {
		x.slots[x.sorted[i]].value = value
		return true
	}
	n := len(x.free)
	if n == 0 {
		return false
	}
	s := x.free[n-1]
	x.free = x.free[:n-1]
	x.slots[s] = slot[K, V]{key: key, value: value}
	x.sorted = slices.Insert(x.sorted, i, s)
	return true
}

// Delete removes key, returning false if it was absent.
func (x *Map[K, V]) Delete(key K) bool {
	i, ok := x.search(key)
	if !ok {
		return false
	}
	s := x.sorted[i]
	x.slots[s] = slot[K, V]{}
	x.sorted = slices.Delete(x.sorted, i, i+1)
	x.free = append(x.free, s)
	return true
}

// Len returns the number of entries.
func (x *Map[K, V]) Len() int { return len(x.sorted) }

// Cap returns the maximum number of entries.
func (x *Map[K, V]) Cap() int { return len(x.slots) }

// Min returns the entry with the smallest key.
func (x *Map[K, V]) Min() (key K, value V, ok bool) {
	if len(x.sorted) == 0 {
		return key, value, false
	}
	s := &x.slots[x.sorted[0]]
	return s.key, s.value, true
}

// All iterates over entries in ascending key order. Keys must not be added
// or deleted during iteration, though values may be updated, e.g. via Ptr.
func (x *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, i := range x.sorted {
			if !yield(x.slots[i].key, x.slots[i].value) {
				return
			}
		}
	}
}
