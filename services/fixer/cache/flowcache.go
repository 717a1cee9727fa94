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

// FlowCache records directed value-flow edges across the project.
//
// Description:
//
//	Two flow kinds are tracked: FlowParamToProperty ("parameter X of
//	method M flows into property P") and FlowPropertyToReturn ("property
//	P flows into the return value of method M"). A source key may fan out
//	to multiple targets. The Flow Cache is consulted only as a fallback
//	when a direct Type Cache lookup misses: knowing that an untyped
//	parameter flows into a property whose type is known lets the fixers
//	borrow that type.
//
//	Capacity and eviction follow the Type Cache discipline, counted over
//	total edges and aged by source-key access.
//
// Thread Safety: Safe for concurrent use.
type FlowCache struct {
	path   string
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	loaded bool

	// edges maps flow kind -> source key -> edge list.
	edges map[string]map[string][]Edge

	// access tracks last access per "kind\x00source" for eviction.
	access map[string]time.Time

	hits      int64
	misses    int64
	evictions int64
}

// NewFlowCache creates a Flow Cache rooted at projectRoot.
func NewFlowCache(projectRoot string, opts ...Option) *FlowCache {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &FlowCache{
		path:   filepath.Join(projectRoot, FlowCacheFile),
		opts:   o,
		logger: slog.Default().With("component", "cache.FlowCache"),
		edges: map[string]map[string][]Edge{
			FlowParamToProperty:  {},
			FlowPropertyToReturn: {},
		},
		access: make(map[string]time.Time),
	}
}

// Path returns the on-disk document location.
func (c *FlowCache) Path() string {
	return c.path
}

// AddEdge records a flow from source to target under the given kind.
//
// Duplicate edges (same kind, source, and target) refresh the timestamp
// instead of accumulating.
func (c *FlowCache) AddEdge(kind, source, target string) {
	if source == "" || target == "" || !validKind(kind) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded()

	now := c.opts.Clock()
	bucket := c.edges[kind]

	for i, e := range bucket[source] {
		if e.Target == target {
			bucket[source][i].Timestamp = now.Unix()
			c.access[accessKey(kind, source)] = now
			return
		}
	}

	c.evictIfNeeded()
	bucket[source] = append(bucket[source], Edge{Target: target, Timestamp: now.Unix()})
	c.access[accessKey(kind, source)] = now
	cacheEntries.WithLabelValues("flow").Set(float64(c.edgeCount()))
}

// Targets returns the flow destinations recorded for a source key, in
// insertion order. Returns nil when the source has no edges.
func (c *FlowCache) Targets(kind, source string) []string {
	if !validKind(kind) {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded()

	edges := c.edges[kind][source]
	if len(edges) == 0 {
		c.misses++
		cacheMisses.WithLabelValues("flow").Inc()
		return nil
	}

	c.access[accessKey(kind, source)] = c.opts.Clock()
	c.hits++
	cacheHits.WithLabelValues("flow").Inc()

	targets := make([]string, len(edges))
	for i, e := range edges {
		targets[i] = e.Target
	}
	return targets
}

// Sources returns the source keys that flow into target under the given
// kind, sorted for determinism. This is the reverse join used to find
// which parameters feed a property.
func (c *FlowCache) Sources(kind, target string) []string {
	if !validKind(kind) {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded()

	var sources []string
	for source, edges := range c.edges[kind] {
		for _, e := range edges {
			if e.Target == target {
				sources = append(sources, source)
				break
			}
		}
	}
	sort.Strings(sources)
	return sources
}

// Len returns the total edge count.
func (c *FlowCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded()
	return c.edgeCount()
}

// Stats returns current counters.
func (c *FlowCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded()

	return Stats{
		Entries:   c.edgeCount(),
		Capacity:  c.opts.Capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Path:      c.path,
	}
}

// Persist writes the cache document with an atomic rename.
func (c *FlowCache) Persist(ctx context.Context) error {
	_, span := tracer.Start(ctx, "FlowCache.Persist")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded()

	start := time.Now()

	data, err := json.MarshalIndent(c.edges, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding flow cache: %w", err)
	}

	if err := atomicWrite(c.path, data); err != nil {
		return fmt.Errorf("writing flow cache: %w", err)
	}

	span.SetAttributes(attribute.Int("cache.edges", c.edgeCount()))
	cachePersistDuration.WithLabelValues("flow").Observe(time.Since(start).Seconds())

	c.logger.Debug("flow cache persisted",
		"path", c.path,
		"edges", c.edgeCount())
	return nil
}

// Clear drops all edges and removes the on-disk document.
func (c *FlowCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.edges = map[string]map[string][]Edge{
		FlowParamToProperty:  {},
		FlowPropertyToReturn: {},
	}
	c.access = make(map[string]time.Time)
	c.loaded = true
	cacheEntries.WithLabelValues("flow").Set(0)

	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing flow cache: %w", err)
	}
	return nil
}

func (c *FlowCache) ensureLoaded() {
	if c.loaded {
		return
	}
	c.loaded = true

	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("flow cache unreadable, starting empty",
				"path", c.path, "error", err)
		}
		return
	}

	var doc map[string]map[string][]Edge
	if err := json.Unmarshal(data, &doc); err != nil {
		c.logger.Warn("flow cache corrupt, starting empty",
			"path", c.path, "error", err)
		return
	}

	for kind, bucket := range doc {
		if !validKind(kind) {
			continue
		}
		c.edges[kind] = bucket
		for source, edges := range bucket {
			newest := int64(0)
			for _, e := range edges {
				if e.Timestamp > newest {
					newest = e.Timestamp
				}
			}
			c.access[accessKey(kind, source)] = time.Unix(newest, 0)
		}
	}
	cacheEntries.WithLabelValues("flow").Set(float64(c.edgeCount()))
}

func (c *FlowCache) edgeCount() int {
	total := 0
	for _, bucket := range c.edges {
		for _, edges := range bucket {
			total += len(edges)
		}
	}
	return total
}

// evictIfNeeded drops whole source keys, oldest access first, until the
// edge population is back under the trigger threshold.
func (c *FlowCache) evictIfNeeded() {
	trigger := int(float64(c.opts.Capacity) * evictTriggerRatio)
	if c.edgeCount() < trigger {
		return
	}

	target := c.edgeCount() - int(float64(c.edgeCount())*evictDropRatio)

	type aged struct {
		kind   string
		source string
		last   time.Time
	}
	var byAge []aged
	for kind, bucket := range c.edges {
		for source := range bucket {
			byAge = append(byAge, aged{
				kind:   kind,
				source: source,
				last:   c.access[accessKey(kind, source)],
			})
		}
	}
	sort.Slice(byAge, func(i, j int) bool {
		if byAge[i].last.Equal(byAge[j].last) {
			if byAge[i].kind == byAge[j].kind {
				return byAge[i].source < byAge[j].source
			}
			return byAge[i].kind < byAge[j].kind
		}
		return byAge[i].last.Before(byAge[j].last)
	})

	for _, a := range byAge {
		if c.edgeCount() <= target {
			break
		}
		dropped := len(c.edges[a.kind][a.source])
		delete(c.edges[a.kind], a.source)
		delete(c.access, accessKey(a.kind, a.source))
		c.evictions += int64(dropped)
		cacheEvictions.WithLabelValues("flow").Add(float64(dropped))
	}
}

func validKind(kind string) bool {
	return kind == FlowParamToProperty || kind == FlowPropertyToReturn
}

func accessKey(kind, source string) string {
	return kind + "\x00" + source
}
