package graph

import (
	"errors"
	"testing"

	"github.com/nobletooth/graphcache/pkg/cache"
	"github.com/nobletooth/graphcache/pkg/utils"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves graphs from a map and counts loads. It is not thread-safe.
type fakeSource struct {
	graphs map[string]*Graph
	loads  map[string]int
	err    error // Returned by every load when set.
}

func newFakeSource(keys ...string) *fakeSource {
	source := &fakeSource{graphs: make(map[string]*Graph), loads: make(map[string]int)}
	for _, key := range keys {
		source.graphs[key] = &Graph{Key: key, Title: "Graph " + key}
	}
	return source
}

func (f *fakeSource) Load(key string) (*Graph, error) {
	f.loads[key]++
	if f.err != nil {
		return nil, f.err
	}
	if graph, found := f.graphs[key]; found {
		return graph, nil
	}
	return nil, ErrGraphNotFound
}

func TestService_Graph(t *testing.T) {
	source := newFakeSource("a", "b")
	service := NewService(cache.NewBounded[string, *Graph](10, nil /*evictionCallback*/), source)
	hitsBefore := testutil.ToFloat64(cacheLookups.WithLabelValues("hit"))
	missesBefore := testutil.ToFloat64(cacheLookups.WithLabelValues("miss"))

	first, err := service.Graph("a")
	require.NoError(t, err)
	assert.Equal(t, "Graph a", first.Title)
	second, err := service.Graph("a")
	require.NoError(t, err)
	assert.Same(t, first, second, "The second lookup must be served from the cache")

	assert.Equal(t, 1, source.loads["a"])
	assert.Equal(t, hitsBefore+1, testutil.ToFloat64(cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, missesBefore+1, testutil.ToFloat64(cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, "Cache: 1 hits, 1 fetches.", service.Describe())

	cached, found := service.Cached("a")
	assert.True(t, found)
	assert.Same(t, first, cached)
	_, found = service.Cached("b")
	assert.False(t, found, "Cached must not load anything")
	assert.Equal(t, 0, source.loads["b"])
}

func TestService_GraphErrors(t *testing.T) {
	source := newFakeSource()
	service := NewService(cache.NewBounded[string, *Graph](10, nil /*evictionCallback*/), source)
	errorsBefore := testutil.ToFloat64(fetchErrors)

	_, err := service.Graph("missing")
	assert.ErrorIs(t, err, ErrGraphNotFound)
	_, err = service.Graph("missing")
	assert.ErrorIs(t, err, ErrGraphNotFound)

	assert.Equal(t, 2, source.loads["missing"], "Failures must not be cached")
	assert.Equal(t, 0, service.Len())
	assert.Equal(t, errorsBefore+2, testutil.ToFloat64(fetchErrors))
	assert.Equal(t, "Cache: 0 hits, 2 fetches.", service.Describe())

	errBackend := errors.New("disk on fire")
	source.err = errBackend
	_, err = service.Graph("other")
	assert.ErrorIs(t, err, errBackend)
}

func TestService_ClearAndKeys(t *testing.T) {
	source := newFakeSource("a", "b", "c")
	service := NewService(cache.NewBounded[string, *Graph](2, nil /*evictionCallback*/), source)
	for _, key := range []string{"a", "b", "c"} {
		_, err := service.Graph(key)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"b", "c"}, service.Keys())
	assert.Equal(t, 2, service.Len())

	service.Clear()
	assert.Empty(t, service.Keys())
	assert.Equal(t, "Cache: 0 hits, 3 fetches.", service.Describe())

	_, err := service.Graph("a")
	require.NoError(t, err)
	assert.Equal(t, 2, source.loads["a"], "Cleared graphs are loaded again")
}

func TestNewCache(t *testing.T) {
	t.Run("single_shard", func(t *testing.T) {
		utils.SetTestFlag(t, "graph_cache_shard_count", "1")
		utils.SetTestFlag(t, "graph_cache_capacity", "3")
		graphCache := NewCache()
		bounded, isSingleShard := graphCache.(*cache.Bounded[string, *Graph])
		require.True(t, isSingleShard, "Expected single shard cache")
		assert.Equal(t, 3, bounded.Capacity())
	})
	t.Run("multi_shard", func(t *testing.T) {
		utils.SetTestFlag(t, "graph_cache_shard_count", "4")
		utils.SetTestFlag(t, "graph_cache_capacity", "40")
		graphCache := NewCache()
		sharded, isMultiShard := graphCache.(*cache.Sharded[string, *Graph])
		require.True(t, isMultiShard, "Expected multi shard cache")
		assert.Equal(t, 40, sharded.Capacity())
	})
	t.Run("evictions_are_counted", func(t *testing.T) {
		utils.SetTestFlag(t, "graph_cache_shard_count", "1")
		utils.SetTestFlag(t, "graph_cache_capacity", "1")
		evictionsBefore := testutil.ToFloat64(cacheEvictions)
		graphCache := NewCache()
		graphCache.Add("a", &Graph{})
		graphCache.Add("b", &Graph{})
		assert.Equal(t, evictionsBefore+1, testutil.ToFloat64(cacheEvictions))
	})
}

func TestNewSourceFromFlags(t *testing.T) {
	utils.SetTestFlag(t, "graph_dir", t.TempDir())
	source, err := NewSourceFromFlags()
	require.NoError(t, err)
	_, err = source.Load("anything")
	assert.ErrorIs(t, err, ErrGraphNotFound)
}
