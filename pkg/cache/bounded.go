// This module implements a bounded memoization cache with oldest-first eviction.
// Eviction Policy (insertion order):
// Entries are kept in the order they were first inserted. Whenever an insert makes the cache grow past its capacity,
// entries are dropped from the oldest end until the size is back at capacity. Overwriting a key keeps its original
// position, so this is a FIFO cache and not an LRU; reads never reorder anything.

package cache

import (
	"sync"

	"github.com/nobletooth/graphcache/pkg/utils"
)

// Bounded is a thread-safe, fixed-capacity, in-memory cache with a fetch-or-compute accessor.
// A single mutex guards entries and stats, and GetOrFetch holds it across lookup, fetch and insert, so concurrent
// misses on the same key call the fetcher only once.
type Bounded[K comparable, V any] struct {
	capacity int                    // Maximum number of entries the cache can hold.
	index    map[K]*entryNode[K, V] // Provides lookup for an entry by its key.
	order    *insertionList[K, V]   // Oldest entry first; eviction starts here.
	stats    Stats                  // Hit / fetch counters; never reset.
	// evictionCallback is an optional callback that runs under the cache lock whenever an entry is evicted to keep
	// the cache within its capacity. It must not call any of the cache methods to avoid deadlocks.
	evictionCallback func(K, V)
	mux              sync.Mutex
}

var _ Memo[string, int] = (*Bounded[string, int])(nil)

// NewBounded is the constructor for Bounded. A capacity of 0 turns the cache into a pass-through that never keeps
// anything; a negative capacity is a bug and is treated as 0.
// NOTE: eviction callback function must not call any of the cache methods or else we'll be having a deadlock.
func NewBounded[K comparable, V any](capacity int, evictionCallback func(K, V)) *Bounded[K, V] {
	if capacity < 0 {
		utils.RaiseInvariant("bounded", "negative_cache_capacity",
			"Invalid capacity has been given to bounded cache.", "capacity", capacity)
		capacity = 0
	}
	return &Bounded[K, V]{
		capacity:         capacity,
		index:            make(map[K]*entryNode[K, V], capacity),
		order:            new(insertionList[K, V]),
		evictionCallback: evictionCallback,
	}
}

// Get returns the value stored for key and whether it was found. It is a pure lookup: stats and order stay as is.
func (c *Bounded[K, V]) Get(key K) (V, bool /*found*/) {
	c.mux.Lock()
	defer c.mux.Unlock()

	if entry, found := c.index[key]; found {
		return entry.value, true
	}
	return *new(V), false
}

// GetOrFetch returns the cached value for key and counts a hit. On a miss it counts a fetch, calls fetcher and
// caches its result. The fetch is counted before the fetcher runs, so failed fetches are counted too. A fetcher error
// is returned unchanged and nothing is cached for key.
// NOTE: fetcher runs while the cache is locked; it must not call any of the cache methods.
func (c *Bounded[K, V]) GetOrFetch(key K, fetcher func(K) (V, error)) (V, error) {
	c.mux.Lock()
	defer c.mux.Unlock()

	if entry, found := c.index[key]; found {
		c.stats.Hits++
		return entry.value, nil
	}

	c.stats.Fetches++
	value, err := fetcher(key)
	if err != nil {
		return *new(V), err
	}
	c.addLocked(key, value)
	return value, nil
}

// Add inserts or overwrites the value for key and evicts the oldest entries if the cache went over capacity.
// Overwriting an existing key does not move it to the newest position. It returns true if an eviction occurred.
func (c *Bounded[K, V]) Add(key K, value V) /*evictionOccurred*/ bool {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.addLocked(key, value) > 0
}

func (c *Bounded[K, V]) addLocked(key K, value V) /*evicted*/ int {
	if entry, keyExists := c.index[key]; keyExists {
		entry.value = value
	} else {
		c.index[key] = c.order.Append(key, value)
	}
	return c.evictOverflowLocked()
}

// evictOverflowLocked drops the oldest `size - capacity` entries, if any, and returns how many were dropped.
func (c *Bounded[K, V]) evictOverflowLocked() int {
	overflow := len(c.index) - c.capacity
	for evicted := 0; evicted < overflow; evicted++ {
		oldest := c.order.Oldest()
		if oldest == nil {
			utils.RaiseInvariant("bounded", "index_list_mismatch",
				"Cache index holds more keys than the insertion list.", "indexSize", len(c.index))
			return evicted
		}
		c.order.Unlink(oldest)
		delete(c.index, oldest.key)
		if c.evictionCallback != nil {
			c.evictionCallback(oldest.key, oldest.value)
		}
	}
	return max(overflow, 0)
}

// Clear removes every entry. Stats are kept and the eviction callback is not called.
func (c *Bounded[K, V]) Clear() {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.index = make(map[K]*entryNode[K, V], c.capacity)
	c.order = new(insertionList[K, V])
}

// Purge is Clear under the Layer interface.
func (c *Bounded[K, V]) Purge() {
	c.Clear()
}

// Keys returns the cached keys, oldest first.
func (c *Bounded[K, V]) Keys() []K {
	c.mux.Lock()
	defer c.mux.Unlock()

	keys := make([]K, 0, c.order.Len())
	for node := c.order.Oldest(); node != nil; node = node.Newer() {
		keys = append(keys, node.key)
	}
	return keys
}

// Len returns the number of cached entries.
func (c *Bounded[K, V]) Len() int {
	c.mux.Lock()
	defer c.mux.Unlock()
	return len(c.index)
}

// Capacity returns the maximum number of entries the cache holds.
func (c *Bounded[K, V]) Capacity() int {
	return c.capacity
}

// Stats returns a snapshot of the hit / fetch counters.
func (c *Bounded[K, V]) Stats() Stats {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.stats
}

// String describes the cache usage, e.g. "Cache: 3 hits, 2 fetches."
func (c *Bounded[K, V]) String() string {
	return c.Stats().String()
}
