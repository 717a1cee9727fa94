// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache holds the project-scoped type knowledge the fixers build up
// across passes: the Type Cache (inferred types per class member) and the
// Flow Cache (directed edges recording how values move between parameters,
// properties, and return values).
//
// Both caches persist as single JSON documents at the project root, written
// with temp-file-and-rename so a concurrent reader never sees a torn file.
// Entries carry a provenance timestamp; an entry whose source file has been
// modified since is treated as absent on read.
package cache

import (
	"fmt"
	"time"
)

// On-disk filenames, relative to the project root.
const (
	// TypeCacheFile is the Type Cache document name.
	TypeCacheFile = ".phpstan-fixer-type-cache.json"

	// FlowCacheFile is the Flow Cache document name.
	FlowCacheFile = ".phpstan-fixer-flow-cache.json"

	// CacheVersion is the document format version.
	CacheVersion = "1.0"
)

// Capacity and eviction thresholds.
const (
	// DefaultCapacity is the maximum entry count before eviction.
	DefaultCapacity = 2048

	// evictTriggerRatio is the fill ratio at which eviction runs.
	evictTriggerRatio = 0.8

	// evictDropRatio is the share of entries dropped per eviction, oldest
	// by last access first.
	evictDropRatio = 0.2
)

// TypeInfo is one inferred type in both notations.
type TypeInfo struct {
	// PHPDoc is the phpdoc-style type string (e.g. "array<int, string>").
	PHPDoc string `json:"phpdoc,omitempty"`

	// Native is the native declaration syntax (e.g. "?string", "array").
	Native string `json:"native,omitempty"`
}

// IsZero reports whether no type information is present.
func (t TypeInfo) IsZero() bool {
	return t.PHPDoc == "" && t.Native == ""
}

// Entry is one Type Cache record.
type Entry struct {
	// Type is the inferred type.
	Type TypeInfo `json:"type"`

	// Timestamp is the provenance time (unix seconds). The entry is valid
	// only while the source file's modification time is at or before it.
	Timestamp int64 `json:"timestamp"`

	// File is the source file the inference came from.
	File string `json:"file"`
}

// Flow kinds for the Flow Cache.
const (
	// FlowParamToProperty records "parameter X of method M flows into
	// property P".
	FlowParamToProperty = "param_to_property"

	// FlowPropertyToReturn records "property P flows into the return
	// value of method M".
	FlowPropertyToReturn = "property_to_return"
)

// Edge is one directed flow record under a source key.
type Edge struct {
	// Target is the flow destination key.
	Target string `json:"target"`

	// Timestamp is when the edge was recorded (unix seconds).
	Timestamp int64 `json:"timestamp"`
}

// =============================================================================
// KEYS
// =============================================================================

// Cache keys use PHP's scope-resolution spelling so dumps read like the
// code they describe.

// PropertyKey builds the key for a class property.
func PropertyKey(class, property string) string {
	return fmt.Sprintf("%s::$%s", class, property)
}

// ParamKey builds the key for a method parameter.
func ParamKey(class, method, param string) string {
	return fmt.Sprintf("%s::%s::$%s", class, method, param)
}

// ReturnKey builds the key for a method return value.
func ReturnKey(class, method string) string {
	return fmt.Sprintf("%s::%s::return", class, method)
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures a cache instance.
type Options struct {
	// Capacity is the maximum entry count. Eviction triggers at 80% of
	// this and removes the oldest 20% by last access.
	Capacity int

	// Clock supplies the current time; overridden in tests.
	Clock func() time.Time
}

// Option is a functional option for cache construction.
type Option func(*Options)

// WithCapacity sets the maximum entry count.
func WithCapacity(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Capacity = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(o *Options) {
		if clock != nil {
			o.Clock = clock
		}
	}
}

func defaultOptions() Options {
	return Options{
		Capacity: DefaultCapacity,
		Clock:    time.Now,
	}
}

// Stats reports cache counters for the CLI and the HTTP API.
type Stats struct {
	// Entries is the current entry count.
	Entries int `json:"entries"`

	// Capacity is the configured maximum.
	Capacity int `json:"capacity"`

	// Hits counts successful lookups.
	Hits int64 `json:"hits"`

	// Misses counts lookups that found nothing.
	Misses int64 `json:"misses"`

	// Evictions counts entries removed by LRU eviction.
	Evictions int64 `json:"evictions"`

	// Stale counts entries invalidated by source file modification.
	Stale int64 `json:"stale"`

	// Path is the on-disk document location.
	Path string `json:"path"`
}
