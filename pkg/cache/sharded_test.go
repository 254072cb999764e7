package cache

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharded_CapacitySplit(t *testing.T) {
	for _, testCase := range []struct {
		name       string
		capacity   int
		shardCount int
		expected   []int
	}{
		{name: "even", capacity: 12, shardCount: 4, expected: []int{3, 3, 3, 3}},
		{name: "remainder", capacity: 10, shardCount: 4, expected: []int{3, 3, 2, 2}},
		{name: "fewer_entries_than_shards", capacity: 2, shardCount: 4, expected: []int{1, 1, 0, 0}},
		{name: "zero", capacity: 0, shardCount: 3, expected: []int{0, 0, 0}},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			sc := NewSharded[string, int](testCase.capacity, testCase.shardCount, nil /*evictionCallback*/)
			var got []int
			for _, shard := range sc.shards {
				got = append(got, shard.Capacity())
			}
			assert.Equal(t, testCase.expected, got)
			assert.Equal(t, testCase.capacity, sc.Capacity())
		})
	}
}

func TestSharded_InvalidShardCount(t *testing.T) {
	sc := NewSharded[string, int](5, 0, nil /*evictionCallback*/)
	assert.Len(t, sc.shards, 1)
	assert.Equal(t, 5, sc.Capacity())
}

func TestSharded_AddAndGet(t *testing.T) {
	sc := NewSharded[string, int](100, 10, nil /*evictionCallback*/)
	t.Run("existing_key", func(t *testing.T) {
		sc.Add("hello", 123)
		got, found := sc.Get("hello")
		assert.True(t, found, "Expected to find key %q", "hello")
		assert.Equal(t, 123, got)
	})
	t.Run("non_existent_key", func(t *testing.T) {
		_, found := sc.Get("non-existent")
		assert.False(t, found)
	})
}

func TestSharded_KeyTypes(t *testing.T) {
	type structKey struct {
		Project string
		Graph   int
	}
	t.Run("int", func(t *testing.T) {
		sc := NewSharded[int, string](16, 4, nil /*evictionCallback*/)
		sc.Add(42, "answer")
		got, found := sc.Get(42)
		assert.True(t, found)
		assert.Equal(t, "answer", got)
	})
	t.Run("uint64", func(t *testing.T) {
		sc := NewSharded[uint64, string](16, 4, nil /*evictionCallback*/)
		sc.Add(7, "seven")
		got, found := sc.Get(7)
		assert.True(t, found)
		assert.Equal(t, "seven", got)
	})
	t.Run("struct", func(t *testing.T) {
		sc := NewSharded[structKey, bool](16, 4, nil /*evictionCallback*/)
		key := structKey{Project: "petclinic", Graph: 3}
		sc.Add(key, true)
		got, found := sc.Get(key)
		assert.True(t, found)
		assert.True(t, got)
	})
}

func TestSharded_GetOrFetchAndStats(t *testing.T) {
	sc := NewSharded[string, string](40, 4, nil /*evictionCallback*/)
	fetcher := func(key string) (string, error) { return "v-" + key, nil }
	for i := range 10 {
		got, err := sc.GetOrFetch(fmt.Sprintf("key-%d", i), fetcher)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("v-key-%d", i), got)
	}
	for i := range 5 {
		_, err := sc.GetOrFetch(fmt.Sprintf("key-%d", i), fetcher)
		require.NoError(t, err)
	}
	assert.Equal(t, Stats{Hits: 5, Fetches: 10}, sc.Stats())
	assert.Equal(t, "Cache: 5 hits, 10 fetches.", sc.String())
	assert.Equal(t, 10, sc.Len())

	errFetch := errors.New("boom")
	_, err := sc.GetOrFetch("broken", func(string) (string, error) { return "", errFetch })
	assert.ErrorIs(t, err, errFetch)
	_, found := sc.Get("broken")
	assert.False(t, found)
}

func TestSharded_NeverExceedsCapacity(t *testing.T) {
	const capacity = 20
	evictions := 0
	sc := NewSharded[string, int](capacity, 3, func(string, int) { evictions++ })
	for i := range 500 {
		sc.Add(fmt.Sprintf("key-%d", i), i)
		require.LessOrEqual(t, sc.Len(), capacity)
	}
	assert.Equal(t, capacity, sc.Len())
	assert.Equal(t, 500-capacity, evictions)
}

func TestSharded_KeysAndPurge(t *testing.T) {
	sc := NewSharded[string, int](100, 4, nil /*evictionCallback*/)
	expectedKeys := []string{"a", "b", "c", "d", "e", "f", "g"}
	for i, key := range expectedKeys {
		_, _ = sc.GetOrFetch(key, func(string) (int, error) { return i, nil })
	}
	assert.ElementsMatch(t, expectedKeys, sc.Keys())

	sc.Purge()
	assert.Empty(t, sc.Keys(), "Expected keys to be empty after purge")
	assert.Equal(t, 0, sc.Len())
	assert.Equal(t, Stats{Fetches: uint64(len(expectedKeys))}, sc.Stats(), "Purge must keep the counters")
}

// TestSharded_Distribution verifies that keys are distributed across multiple shards.
func TestSharded_Distribution(t *testing.T) {
	shardCount := 10
	keyCount := 100_000
	sc := NewSharded[string, int](keyCount, shardCount, nil /*evictionCallback*/)
	for i := range keyCount {
		sc.Add(fmt.Sprintf("key-%d", i), i)
	}
	for _, shard := range sc.shards {
		// Shards are filled up to their capacity; none of them should be starved of keys.
		assert.Greater(t, shard.Len(), keyCount/(2*shardCount),
			"Expected keys in each shard to be at least half the keys compared to the uniform distribution.")
	}
}

// TestSharded_ShardMapping pins the hash function mapping of string keys to shards.
func TestSharded_ShardMapping(t *testing.T) {
	sc := NewSharded[string, int](1000, 10 /*shardCount*/, nil /*evictionCallback*/)
	for i := range 10 {
		sc.Add(fmt.Sprintf("key-%d", i), i)
	}
	assert.Empty(t, sc.shards[0].Keys())
	assert.ElementsMatch(t, []string{"key-6"}, sc.shards[1].Keys())
	assert.Empty(t, sc.shards[2].Keys())
	assert.ElementsMatch(t, []string{"key-0", "key-7"}, sc.shards[3].Keys())
	assert.ElementsMatch(t, []string{"key-1", "key-3"}, sc.shards[4].Keys())
	assert.Empty(t, sc.shards[5].Keys())
	assert.ElementsMatch(t, []string{"key-2", "key-5", "key-9"}, sc.shards[6].Keys())
	assert.ElementsMatch(t, []string{"key-4", "key-8"}, sc.shards[7].Keys())
	assert.Empty(t, sc.shards[8].Keys())
	assert.Empty(t, sc.shards[9].Keys())
}
