// Graph views repeatedly ask for the same graph data; this module caches those lookups in memory.
// It provides an interface on caching, making single shard and multi shard caches have the same API.

package cache

import "fmt"

// Layer defines the interface for a generic key-value cache. This allows different cache implementations
// to be used as shards within the Sharded cache.
type Layer[K comparable, V any] interface {
	// Get returns value from cache for given key and a boolean indicating whether key was found.
	Get(key K) (V, bool)
	// Add inserts a key-value pair into the cache. It returns true if an item was evicted.
	Add(key K, value V) bool
	Keys() []K // Returns a slice of all keys currently in the cache.
	Purge()    // Removes all items from the cache.
}

// Memo is a Layer that can compute missing values itself and keeps track of how it was used.
type Memo[K comparable, V any] interface {
	Layer[K, V]
	// GetOrFetch returns the cached value for key, or calls fetcher to produce and cache it.
	GetOrFetch(key K, fetcher func(K) (V, error)) (V, error)
	Stats() Stats
	Len() int
	String() string
}

// Stats holds the usage counters of a cache. Counters only grow; clearing the cache keeps them.
type Stats struct {
	Hits    uint64 // Lookups answered from the cache without calling the fetcher.
	Fetches uint64 // Lookups that had to call the fetcher, failed ones included.
}

// String formats the counters as "Cache: <hits> hits, <fetches> fetches."
func (s Stats) String() string {
	return fmt.Sprintf("Cache: %d hits, %d fetches.", s.Hits, s.Fetches)
}

func (s Stats) add(other Stats) Stats {
	return Stats{Hits: s.Hits + other.Hits, Fetches: s.Fetches + other.Fetches}
}
