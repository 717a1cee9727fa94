// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// TypeCache is the persisted key-to-inferred-type map.
//
// Description:
//
//	Keys are class members (PropertyKey, ParamKey, ReturnKey); values carry
//	the inferred type in phpdoc and native notation plus provenance. The
//	cache loads lazily from its JSON document on first use and persists at
//	pass boundaries. An entry whose source file has been modified after the
//	entry's timestamp is treated as absent on read and dropped.
//
//	Eviction is least-recently-used: once population reaches 80% of
//	capacity, the oldest 20% of entries by last access are removed. Last
//	access is in-memory only; after a load it is re-seeded from the entry
//	timestamp, converging to true LRU as the run touches keys.
//
// Thread Safety: Safe for concurrent use. The fixing pipeline itself is
// single-threaded, but cache warming touches the cache from worker
// goroutines.
type TypeCache struct {
	path   string
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	loaded  bool
	entries map[string]*trackedEntry

	hits      int64
	misses    int64
	evictions int64
	stale     int64
}

// trackedEntry pairs a persisted Entry with its in-memory access time.
type trackedEntry struct {
	Entry
	lastAccess time.Time
}

// typeCacheDocument is the on-disk JSON shape.
type typeCacheDocument struct {
	Version string           `json:"version"`
	Cache   map[string]Entry `json:"cache"`
}

// NewTypeCache creates a Type Cache rooted at projectRoot.
//
// The document is not read until the first lookup or store, so creating a
// cache for a clean run costs nothing.
func NewTypeCache(projectRoot string, opts ...Option) *TypeCache {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &TypeCache{
		path:    filepath.Join(projectRoot, TypeCacheFile),
		opts:    o,
		logger:  slog.Default().With("component", "cache.TypeCache"),
		entries: make(map[string]*trackedEntry),
	}
}

// Path returns the on-disk document location.
func (c *TypeCache) Path() string {
	return c.path
}

// Get looks up the inferred type for a key.
//
// # Description
//
// Returns the cached type when present and fresh. A hit refreshes the
// entry's LRU position. An entry whose source file has been modified after
// the entry's timestamp, or whose source file no longer exists, is dropped
// and reported as a miss.
//
// # Inputs
//
//   - key: a PropertyKey, ParamKey, or ReturnKey
//
// # Outputs
//
//   - TypeInfo: the cached type, zero when absent
//   - bool: true on a fresh hit
func (c *TypeCache) Get(key string) (TypeInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		cacheMisses.WithLabelValues("type").Inc()
		return TypeInfo{}, false
	}

	if c.isStale(entry) {
		delete(c.entries, key)
		c.stale++
		c.misses++
		cacheStale.WithLabelValues("type").Inc()
		cacheMisses.WithLabelValues("type").Inc()
		cacheEntries.WithLabelValues("type").Set(float64(len(c.entries)))
		return TypeInfo{}, false
	}

	entry.lastAccess = c.opts.Clock()
	c.hits++
	cacheHits.WithLabelValues("type").Inc()
	return entry.Type, true
}

// Put stores an inferred type under a key.
//
// # Description
//
// Records the type with the current time as provenance. When population
// has reached the eviction trigger, the least-recently-accessed entries
// are removed first.
//
// # Inputs
//
//   - key: a PropertyKey, ParamKey, or ReturnKey
//   - info: the inferred type; ignored when zero
//   - file: the source file the inference came from
func (c *TypeCache) Put(key string, info TypeInfo, file string) {
	if info.IsZero() || key == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded()

	now := c.opts.Clock()
	if _, exists := c.entries[key]; !exists {
		c.evictIfNeeded()
	}

	c.entries[key] = &trackedEntry{
		Entry: Entry{
			Type:      info,
			Timestamp: now.Unix(),
			File:      file,
		},
		lastAccess: now,
	}
	cacheEntries.WithLabelValues("type").Set(float64(len(c.entries)))
}

// Len returns the current entry count.
func (c *TypeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded()
	return len(c.entries)
}

// Stats returns current counters.
func (c *TypeCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded()

	return Stats{
		Entries:   len(c.entries),
		Capacity:  c.opts.Capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Stale:     c.stale,
		Path:      c.path,
	}
}

// Persist writes the cache document with an atomic rename.
//
// # Description
//
// Serializes all live entries to the JSON document. An empty cache still
// writes a document so a cleared cache stays cleared across runs.
//
// # Inputs
//
//   - ctx: context for tracing
//
// # Outputs
//
//   - error: non-nil when the document could not be written
func (c *TypeCache) Persist(ctx context.Context) error {
	_, span := tracer.Start(ctx, "TypeCache.Persist")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded()

	start := time.Now()

	doc := typeCacheDocument{
		Version: CacheVersion,
		Cache:   make(map[string]Entry, len(c.entries)),
	}
	for key, entry := range c.entries {
		doc.Cache[key] = entry.Entry
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding type cache: %w", err)
	}

	if err := atomicWrite(c.path, data); err != nil {
		return fmt.Errorf("writing type cache: %w", err)
	}

	span.SetAttributes(attribute.Int("cache.entries", len(c.entries)))
	cachePersistDuration.WithLabelValues("type").Observe(time.Since(start).Seconds())

	c.logger.Debug("type cache persisted",
		"path", c.path,
		"entries", len(c.entries))
	return nil
}

// Clear drops all entries and removes the on-disk document.
func (c *TypeCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*trackedEntry)
	c.loaded = true
	cacheEntries.WithLabelValues("type").Set(0)

	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing type cache: %w", err)
	}
	return nil
}

// ensureLoaded reads the document on first use. A missing document is an
// empty cache; a corrupt document is logged and discarded rather than
// failing the run.
func (c *TypeCache) ensureLoaded() {
	if c.loaded {
		return
	}
	c.loaded = true

	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("type cache unreadable, starting empty",
				"path", c.path, "error", err)
		}
		return
	}

	var doc typeCacheDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		c.logger.Warn("type cache corrupt, starting empty",
			"path", c.path, "error", err)
		return
	}

	for key, entry := range doc.Cache {
		c.entries[key] = &trackedEntry{
			Entry: entry,
			// Last access is not persisted; seed from provenance so
			// eviction right after a load follows entry age.
			lastAccess: time.Unix(entry.Timestamp, 0),
		}
	}
	cacheEntries.WithLabelValues("type").Set(float64(len(c.entries)))
}

// isStale reports whether the entry's source file has been modified after
// the entry was recorded. A missing source file is stale too.
func (c *TypeCache) isStale(entry *trackedEntry) bool {
	if entry.File == "" {
		return false
	}
	info, err := os.Stat(entry.File)
	if err != nil {
		return true
	}
	return info.ModTime().Unix() > entry.Timestamp
}

// evictIfNeeded drops the oldest entries by last access once population
// reaches the trigger threshold.
func (c *TypeCache) evictIfNeeded() {
	trigger := int(float64(c.opts.Capacity) * evictTriggerRatio)
	if len(c.entries) < trigger {
		return
	}

	drop := int(float64(len(c.entries)) * evictDropRatio)
	if drop < 1 {
		drop = 1
	}

	type aged struct {
		key  string
		last time.Time
	}
	byAge := make([]aged, 0, len(c.entries))
	for key, entry := range c.entries {
		byAge = append(byAge, aged{key: key, last: entry.lastAccess})
	}
	sort.Slice(byAge, func(i, j int) bool {
		if byAge[i].last.Equal(byAge[j].last) {
			return byAge[i].key < byAge[j].key
		}
		return byAge[i].last.Before(byAge[j].last)
	})

	for i := 0; i < drop && i < len(byAge); i++ {
		delete(c.entries, byAge[i].key)
		c.evictions++
		cacheEvictions.WithLabelValues("type").Inc()
	}

	c.logger.Debug("type cache evicted entries",
		"dropped", drop,
		"remaining", len(c.entries))
}
