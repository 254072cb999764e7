// This module implements cache sharding which distributes keys uniformly across bounded cache shards. Each shard has
// its own mutex, so goroutines working on keys of different shards don't wait on each other. The price is that
// eviction order is only oldest-first within a shard, not across the whole cache.

package cache

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/nobletooth/graphcache/pkg/utils"
)

// Sharded is a cache that spreads keys across multiple Bounded shards whose capacities add up to the total capacity.
type Sharded[K comparable, V any] struct {
	shards []*Bounded[K, V]
	hash   func(key K) uint64 // Helps choose the shards index.
}

var _ Memo[string, int] = (*Sharded[string, int])(nil)

// NewSharded is the constructor for Sharded. The total `capacity` is split across `shardCount` shards; the first
// `capacity % shardCount` shards hold one extra entry. The eviction callback is shared by all shards.
func NewSharded[K comparable, V any](capacity, shardCount int, evictionCallback func(K, V)) *Sharded[K, V] {
	// Ensure there is at least one shard.
	if shardCount <= 0 {
		utils.RaiseInvariant("shard", "negative_shard_count",
			"Invalid shard count has been given to sharded cache.", "shardCount", shardCount)
		shardCount = 1
	}
	if capacity < 0 {
		utils.RaiseInvariant("shard", "negative_cache_capacity",
			"Invalid capacity has been given to sharded cache.", "capacity", capacity)
		capacity = 0
	}
	sharded := &Sharded[K, V]{shards: make([]*Bounded[K, V], shardCount), hash: newKeyHasher[K]()}
	for i := range shardCount {
		shardCapacity := capacity / shardCount
		if i < capacity%shardCount {
			shardCapacity++
		}
		sharded.shards[i] = NewBounded(shardCapacity, evictionCallback)
	}
	return sharded
}

// newKeyHasher picks the hash function for the key type once, so getShard doesn't need a type switch per call.
func newKeyHasher[K comparable]() func(key K) uint64 {
	switch any(*new(K)).(type) {
	case string:
		return func(key K) uint64 {
			return xxhash.Sum64String(any(key).(string))
		}
	case int:
		return func(key K) uint64 {
			var b [8]byte
			// Since int's size is architecture-dependent, cast it to a fixed-size type before hashing.
			binary.LittleEndian.PutUint64(b[:], uint64(any(key).(int)))
			return xxhash.Sum64(b[:])
		}
	case int64:
		return func(key K) uint64 {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], uint64(any(key).(int64)))
			return xxhash.Sum64(b[:])
		}
	case uint64:
		return func(key K) uint64 {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], any(key).(uint64))
			return xxhash.Sum64(b[:])
		}
	default:
		return func(key K) uint64 {
			// Fallback for other types (like structs); slower but works for anything printable.
			return xxhash.Sum64String(fmt.Sprintf("%#v", key))
		}
	}
}

// getShard hashes the key and maps the hash to a shard index.
func (c *Sharded[K, V]) getShard(key K) *Bounded[K, V] {
	return c.shards[c.hash(key)%uint64(len(c.shards))]
}

// Get finds the shard of the key and looks the key up in it.
func (c *Sharded[K, V]) Get(key K) (V, bool /*found*/) {
	return c.getShard(key).Get(key)
}

// GetOrFetch finds the shard of the key and fetches through it. Only the key's shard is locked during the fetch.
func (c *Sharded[K, V]) GetOrFetch(key K, fetcher func(K) (V, error)) (V, error) {
	return c.getShard(key).GetOrFetch(key, fetcher)
}

// Add finds the shard of the key and adds the key-value pair to it.
func (c *Sharded[K, V]) Add(key K, value V) /*evictionOccurred*/ bool {
	return c.getShard(key).Add(key, value)
}

// Keys aggregates the keys of all shards, each shard's keys oldest first.
func (c *Sharded[K, V]) Keys() []K {
	keys := make([]K, 0)
	for _, shard := range c.shards {
		keys = append(keys, shard.Keys()...)
	}
	return keys
}

// Purge clears every shard. Stats are kept.
func (c *Sharded[K, V]) Purge() {
	for _, shard := range c.shards {
		shard.Clear()
	}
}

// Len returns the number of entries over all shards.
func (c *Sharded[K, V]) Len() int {
	size := 0
	for _, shard := range c.shards {
		size += shard.Len()
	}
	return size
}

// Capacity returns the total capacity over all shards.
func (c *Sharded[K, V]) Capacity() int {
	capacity := 0
	for _, shard := range c.shards {
		capacity += shard.Capacity()
	}
	return capacity
}

// Stats sums the counters of all shards.
func (c *Sharded[K, V]) Stats() Stats {
	var total Stats
	for _, shard := range c.shards {
		total = total.add(shard.Stats())
	}
	return total
}

// String describes the cache usage over all shards.
func (c *Sharded[K, V]) String() string {
	return c.Stats().String()
}
