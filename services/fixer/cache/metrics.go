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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

// Tracer for cache persistence operations.
var tracer = otel.Tracer("phpfixer.cache")

// Prometheus metrics for both caches, labeled by cache name
// ("type" or "flow").
var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phpfixer_cache_hits_total",
		Help: "Total cache lookup hits",
	}, []string{"cache"})

	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phpfixer_cache_misses_total",
		Help: "Total cache lookup misses",
	}, []string{"cache"})

	cacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phpfixer_cache_evictions_total",
		Help: "Total entries removed by LRU eviction",
	}, []string{"cache"})

	cacheStale = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phpfixer_cache_stale_total",
		Help: "Total entries invalidated by source file modification",
	}, []string{"cache"})

	cachePersistDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "phpfixer_cache_persist_duration_seconds",
		Help:    "Time spent persisting a cache document",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"cache"})

	cacheEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "phpfixer_cache_entries",
		Help: "Current cache entry count",
	}, []string{"cache"})
)
