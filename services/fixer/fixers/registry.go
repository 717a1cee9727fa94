// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fixers

import (
	"log/slog"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpstan"
)

// Registry resolves diagnostics to fixers.
//
// # Description
//
// Fixers are indexed under every kind they declare, preserving
// registration order. Resolution classifies the diagnostic's message into
// a kind tag and asks that kind's fixers in order; when none accepts, the
// full ordered list is scanned as a cross-kind fallback. Registration
// order is therefore the fixer priority.
//
// # Thread Safety
//
// Register is startup-only. Resolve and List are safe for concurrent use
// once registration is complete.
type Registry struct {
	byKind  map[string][]Fixer
	ordered []Fixer
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byKind: make(map[string][]Fixer),
		logger: slog.Default().With("component", "fixers.Registry"),
	}
}

// Register adds a fixer under all of its kinds.
func (r *Registry) Register(f Fixer) {
	for _, kind := range f.Kinds() {
		r.byKind[kind] = append(r.byKind[kind], f)
	}
	r.ordered = append(r.ordered, f)
}

// Resolve finds the fixer for a diagnostic.
//
// # Outputs
//
//   - Fixer: the first accepting fixer, by kind then by full scan.
//   - bool: false when no registered fixer accepts the diagnostic.
func (r *Registry) Resolve(d phpstan.Diagnostic) (Fixer, bool) {
	kind := d.Kind
	if kind == "" {
		kind = Classify(d)
	}

	if kind != "" {
		for _, f := range r.byKind[kind] {
			if f.CanFix(d) {
				return f, true
			}
		}
	}

	// Cross-kind fallback: a message may match a fixer's own predicate
	// even when classification picked a different tag or none.
	for _, f := range r.ordered {
		if f.CanFix(d) {
			return f, true
		}
	}

	r.logger.Debug("no fixer for diagnostic",
		"kind", kind,
		"message", d.Message)
	return nil, false
}

// List returns all registered fixers in priority order.
func (r *Registry) List() []Fixer {
	out := make([]Fixer, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Kinds returns the kind tags with at least one registered fixer.
func (r *Registry) Kinds() []string {
	var kinds []string
	seen := make(map[string]struct{})
	for _, f := range r.ordered {
		for _, k := range f.Kinds() {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// versionFloors maps fixer names to the minimum target PHP version their
// rewrites require. Fixers absent from the map work on any version.
var versionFloors = map[string]string{
	"constructor_promotion": "8.0",
	"readonly_property":     "8.1",
	"enum_case":             "8.1",
	"property_hook":         "8.4",
	"asymmetric_visibility": "8.4",
}

// VersionFloor returns the minimum PHP version a fixer requires, or ""
// when it has no floor.
func VersionFloor(name string) string {
	return versionFloors[name]
}

// NewDefaultRegistry builds the production registry. The slice literal in
// defaultRegistrations is the priority order; changing it changes which
// fixer wins contested diagnostics.
func NewDefaultRegistry(deps Deps) *Registry {
	r := NewRegistry()
	for _, f := range defaultRegistrations(deps) {
		r.Register(f)
	}
	return r
}

// defaultRegistrations lists every production fixer in priority order.
func defaultRegistrations(deps Deps) []Fixer {
	return []Fixer{
		NewMissingReturnType(deps),
		NewMissingParamType(deps),
		NewMissingPropertyType(deps),
		NewMissingIterableValue(deps),
		NewMissingGenerics(deps),
		NewUnusedVariable(),
		NewUndefinedVariable(),
		NewStrictComparison(),
		NewNullCoalescing(),
		NewUnionType(deps),
		NewNullableType(deps),
		NewReadonlyProperty(deps),
		NewEnumConversion(deps),
		NewConstructorPromotion(deps),
		NewPropertyHook(deps),
		NewAsymmetricVisibility(deps),
		NewTypeConsistency(),
		NewDocblockParam(deps),
		NewStrictTypesDeclare(),
		NewDefaultValueMismatch(),
	}
}
