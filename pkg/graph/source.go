package graph

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Source loads graphs from their system of record.
type Source interface {
	Load(key string) (*Graph, error)
}

// graphFileExtensions are the supported graph document formats, in lookup order.
var graphFileExtensions = []string{".json", ".yaml", ".yml"}

// DirSource loads graph documents named `<key>.json`, `<key>.yaml` or `<key>.yml` from a directory.
// A bloom filter of the keys seen on the last scan lets lookups of unknown keys skip the disk entirely.
type DirSource struct {
	dir    string
	mux    sync.RWMutex
	filter *bloom.BloomFilter // Keys present on the last Rescan; false positives fall back to disk.
}

var _ Source = (*DirSource)(nil)

// NewDirSource scans `dir` and returns a source serving the graphs found in it.
func NewDirSource(dir string) (*DirSource, error) {
	if dir == "" {
		return nil, errors.New("expected a non-empty graph directory")
	}
	source := &DirSource{dir: dir}
	if err := source.Rescan(); err != nil {
		return nil, err
	}
	return source, nil
}

// Rescan lists the directory again and rebuilds the key filter. Graphs added after the last scan are not served
// until the next Rescan.
func (s *DirSource) Rescan() error {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to list graph directory: %w", err)
	}
	keys := make([]string, 0, len(dirEntries))
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() {
			continue
		}
		name := dirEntry.Name()
		ext := filepath.Ext(name)
		if !slices.Contains(graphFileExtensions, ext) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ext))
	}

	filter := bloom.NewWithEstimates(uint(max(len(keys), 1)), 0.01 /*falsePositiveRate*/)
	for _, key := range keys {
		filter.AddString(key)
	}
	s.mux.Lock()
	s.filter = filter
	s.mux.Unlock()
	slog.Debug("Scanned graph directory.", "dir", s.dir, "graphs", len(keys))
	return nil
}

// validateKey rejects keys that could escape the graph directory.
func validateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return fmt.Errorf("%w: '%s'", ErrInvalidKey, key)
	}
	return nil
}

// mightContain reports whether `key` was seen on the last scan, with bloom filter false positives.
func (s *DirSource) mightContain(key string) bool {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.filter.TestString(key)
}

// Load reads, decodes and validates the graph stored under `key`.
func (s *DirSource) Load(key string) (*Graph, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if !s.mightContain(key) {
		return nil, fmt.Errorf("%w: %s", ErrGraphNotFound, key)
	}

	for _, ext := range graphFileExtensions {
		content, err := os.ReadFile(filepath.Join(s.dir, key+ext))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read graph '%s': %w", key, err)
		}
		graph, err := decodeGraph(content, ext)
		if err != nil {
			return nil, fmt.Errorf("failed to decode graph '%s': %w", key, err)
		}
		graph.Key = key
		if err := graph.Validate(); err != nil {
			return nil, fmt.Errorf("graph '%s': %w", key, err)
		}
		return graph, nil
	}
	// Either a bloom filter false positive or the file was removed after the last scan.
	return nil, fmt.Errorf("%w: %s", ErrGraphNotFound, key)
}

// decodeGraph decodes a graph document based on its file extension.
func decodeGraph(content []byte, ext string) (*Graph, error) {
	graph := new(Graph)
	switch ext {
	case ".json":
		if err := json.Unmarshal(content, graph); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, graph); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported graph format '%s'", ext)
	}
	return graph, nil
}
