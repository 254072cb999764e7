// The graph service memoizes graph loads. Views ask for the same graphs over and over while a user navigates a
// report, so every graph is loaded from its source once and then served from a bounded in-memory cache.

package graph

import (
	"flag"
	"log/slog"
	"time"

	"github.com/nobletooth/graphcache/pkg/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	graphDir      = flag.String("graph_dir", "./graphs", "Directory holding the graph documents to serve.")
	cacheCapacity = flag.Int("graph_cache_capacity", 1000,
		"The maximum number of graphs kept in memory; 0 disables memoization.")
	cacheShardCount = flag.Int("graph_cache_shard_count", 1,
		"The number of shards of the graph cache; 1 keeps a single oldest-first eviction order.")

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graph_cache_lookups_total",
		Help: "Total number of graph cache lookups.",
	}, []string{"status" /* hit | miss */})
	cacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "graph_cache_evictions_total",
		Help: "Total number of graphs evicted to keep the cache within its capacity.",
	})
	fetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "graph_fetch_errors_total",
		Help: "Total number of failed graph loads.",
	})
	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "graph_fetch_duration_seconds",
		Help:    "Latency of loading a graph from its source.",
		Buckets: prometheus.DefBuckets,
	})
)

// NewSourceFromFlags opens the directory source configured by --graph_dir.
func NewSourceFromFlags() (*DirSource, error) {
	return NewDirSource(*graphDir)
}

// NewCache builds the process graph cache according to configured flags. Evictions are reported to metrics.
func NewCache() cache.Memo[string, *Graph] {
	onEvict := func(key string, _ *Graph) {
		cacheEvictions.Inc()
		slog.Debug("Evicted graph from cache.", "key", key)
	}
	if *cacheShardCount > 1 {
		return cache.NewSharded(*cacheCapacity, *cacheShardCount, onEvict)
	}
	return cache.NewBounded(*cacheCapacity, onEvict)
}

// Service serves graphs through a memoizing cache in front of a Source.
type Service struct {
	cache  cache.Memo[string, *Graph]
	source Source
}

// NewService creates a Service. The cache is meant to be created once per process and shared by reference.
func NewService(graphCache cache.Memo[string, *Graph], source Source) *Service {
	return &Service{cache: graphCache, source: source}
}

// Graph returns the graph for `key`, loading it from the source on a cache miss.
// Load errors are returned as is and nothing is cached for the key, so the next call tries again.
func (s *Service) Graph(key string) (*Graph, error) {
	fetched := false
	graph, err := s.cache.GetOrFetch(key, func(key string) (*Graph, error) {
		fetched = true
		start := time.Now()
		graph, err := s.source.Load(key)
		fetchDuration.Observe(time.Since(start).Seconds())
		return graph, err
	})
	if fetched {
		cacheLookups.WithLabelValues("miss").Inc()
	} else {
		cacheLookups.WithLabelValues("hit").Inc()
	}
	if err != nil {
		fetchErrors.Inc()
		slog.Debug("Failed to load graph.", "key", key, "error", err)
		return nil, err
	}
	return graph, nil
}

// Cached returns the graph for `key` only if it's already in the cache.
func (s *Service) Cached(key string) (*Graph, bool) {
	return s.cache.Get(key)
}

// Keys returns the keys of the cached graphs.
func (s *Service) Keys() []string {
	return s.cache.Keys()
}

// Len returns the number of cached graphs.
func (s *Service) Len() int {
	return s.cache.Len()
}

// Clear drops every cached graph; usage counters are kept.
func (s *Service) Clear() {
	s.cache.Purge()
	slog.Info("Graph cache cleared.", "stats", s.cache.String())
}

// Describe returns the cache usage summary, e.g. "Cache: 3 hits, 2 fetches."
func (s *Service) Describe() string {
	return s.cache.String()
}
