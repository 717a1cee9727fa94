// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analyzer infers PHP member types from a single declaration-model
// walk and records them in the type and flow caches for fixers to consult.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/cache"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpast"
)

// Analyzer walks parsed PHP files and populates the caches.
//
// # Description
//
// One Analyze call performs a single pass over a file's declaration model.
// Observations are grouped per member key and unified before they are
// written, so conflicting evidence inside one file resolves to a union or
// mixed rather than last-writer-wins.
//
// # Thread Safety
//
// Safe for concurrent use; all mutable state lives in the caches, which
// lock internally.
type Analyzer struct {
	types  *cache.TypeCache
	flows  *cache.FlowCache
	parser *phpast.Parser
	logger *slog.Logger
}

// NewAnalyzer creates an analyzer writing into the given caches.
func NewAnalyzer(types *cache.TypeCache, flows *cache.FlowCache) *Analyzer {
	return &Analyzer{
		types:  types,
		flows:  flows,
		parser: phpast.NewParser(),
		logger: slog.Default().With("component", "analyzer.Analyzer"),
	}
}

// Analyze parses source and records every type observation it can make.
//
// # Description
//
// Records, in one walk: declared property and parameter types; property
// and parameter default values; $this->prop = expr assignments with
// structural typing of the right-hand side; cross-object flows through
// $this->other->prop when the type of other is known; and return
// statements that expose a property or parameter. Parameter-to-property
// and property-to-return relationships additionally land in the flow
// cache so later lookups can join across them.
//
// # Inputs
//
//   - ctx: cancellation for the underlying parse.
//   - source: raw PHP content.
//   - filePath: recorded as provenance on every cache entry.
//
// # Outputs
//
//   - *phpast.File: the parsed model, for callers that need it.
//   - error: parse failures only; inference never fails.
func (a *Analyzer) Analyze(ctx context.Context, source []byte, filePath string) (*phpast.File, error) {
	_, span := tracer.Start(ctx, "analyzer.Analyze")
	defer span.End()

	file, err := a.parser.Parse(ctx, source, filePath)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filePath, err)
	}

	obs := newObservations()
	for _, class := range file.Classes {
		a.walkClass(class, filePath, obs)
	}
	for _, fn := range file.Functions {
		a.walkFunction(fn, filePath, obs)
	}
	obs.flush(a.types)

	recordAnalyze(ctx, len(file.Classes), len(file.Functions))
	a.logger.Debug("file analyzed",
		"file", filePath,
		"classes", len(file.Classes),
		"observations", obs.count())
	return file, nil
}

func (a *Analyzer) walkClass(class *phpast.Class, filePath string, obs *observations) {
	for _, prop := range class.Properties {
		key := cache.PropertyKey(class.Name, prop.Name)
		if prop.Type != "" {
			obs.add(key, cache.TypeInfo{Native: prop.Type}, filePath)
		} else if prop.Default != "" {
			obs.add(key, InferExpr(prop.Default), filePath)
		}
	}

	for _, method := range class.Methods {
		a.walkMethod(class, method, filePath, obs)
	}
}

func (a *Analyzer) walkMethod(class *phpast.Class, method *phpast.Method, filePath string, obs *observations) {
	for _, param := range method.Params {
		key := cache.ParamKey(class.Name, method.Name, param.Name)
		if param.Type != "" {
			obs.add(key, cache.TypeInfo{Native: param.Type}, filePath)
		} else if param.Default != "" {
			obs.add(key, InferExpr(param.Default), filePath)
		}

		// Promoted parameters declare a property of the same name.
		if param.Promoted && param.Type != "" {
			obs.add(cache.PropertyKey(class.Name, param.Name), cache.TypeInfo{Native: param.Type}, filePath)
		}
	}

	for _, assign := range method.Assignments {
		a.walkAssignment(class, method, assign, filePath, obs)
	}

	for _, ret := range method.Returns {
		a.walkReturn(class, method, ret, filePath, obs)
	}
}

func (a *Analyzer) walkAssignment(class *phpast.Class, method *phpast.Method, assign *phpast.PropertyAssignment, filePath string, obs *observations) {
	if assign.ViaProperty != "" {
		a.walkCrossObject(class, assign, filePath, obs)
		return
	}

	propKey := cache.PropertyKey(class.Name, assign.Property)

	if assign.FromParam != "" {
		paramKey := cache.ParamKey(class.Name, method.Name, assign.FromParam)
		a.flows.AddEdge(cache.FlowParamToProperty, paramKey, propKey)

		if param := method.FindParam(assign.FromParam); param != nil && param.Type != "" {
			obs.add(propKey, cache.TypeInfo{Native: param.Type}, filePath)
		}
		return
	}

	if info := InferExpr(assign.Expr); !info.IsZero() {
		obs.add(propKey, info, filePath)
	}
}

// walkCrossObject handles $this->other->prop = expr: when the type of
// other is known (declared or already inferred), the assignment types
// prop on that class.
func (a *Analyzer) walkCrossObject(class *phpast.Class, assign *phpast.PropertyAssignment, filePath string, obs *observations) {
	ownerType := ""
	if p := class.FindProperty(assign.ViaProperty); p != nil && p.Type != "" {
		ownerType = p.Type
	}
	if ownerType == "" {
		if info, ok := a.types.Get(cache.PropertyKey(class.Name, assign.ViaProperty)); ok {
			ownerType = info.Native
		}
	}
	if ownerType == "" || !isClassLikeType(ownerType) {
		return
	}

	if info := InferExpr(assign.Expr); !info.IsZero() {
		obs.add(cache.PropertyKey(ownerType, assign.Property), info, filePath)
	}
}

func (a *Analyzer) walkReturn(class *phpast.Class, method *phpast.Method, ret *phpast.ReturnStatement, filePath string, obs *observations) {
	returnKey := cache.ReturnKey(class.Name, method.Name)

	if method.ReturnType != "" {
		obs.add(returnKey, cache.TypeInfo{Native: method.ReturnType}, filePath)
	}

	if ret.Property != "" {
		propKey := cache.PropertyKey(class.Name, ret.Property)
		a.flows.AddEdge(cache.FlowPropertyToReturn, propKey, returnKey)

		if p := class.FindProperty(ret.Property); p != nil && p.Type != "" {
			obs.add(returnKey, cache.TypeInfo{Native: p.Type}, filePath)
		}
		return
	}

	if ret.Variable != "" {
		if param := method.FindParam(ret.Variable); param != nil && param.Type != "" {
			obs.add(returnKey, cache.TypeInfo{Native: param.Type}, filePath)
		}
		return
	}

	if ret.Expr != "" {
		if info := InferExpr(ret.Expr); !info.IsZero() {
			obs.add(returnKey, info, filePath)
		}
	}
}

func (a *Analyzer) walkFunction(fn *phpast.Function, filePath string, obs *observations) {
	for _, param := range fn.Params {
		key := cache.ParamKey("", fn.Name, param.Name)
		if param.Type != "" {
			obs.add(key, cache.TypeInfo{Native: param.Type}, filePath)
		} else if param.Default != "" {
			obs.add(key, InferExpr(param.Default), filePath)
		}
	}

	returnKey := cache.ReturnKey("", fn.Name)
	if fn.ReturnType != "" {
		obs.add(returnKey, cache.TypeInfo{Native: fn.ReturnType}, filePath)
		return
	}
	for _, ret := range fn.Returns {
		if ret.Expr == "" {
			continue
		}
		if ret.Variable != "" {
			for _, param := range fn.Params {
				if param.Name == ret.Variable && param.Type != "" {
					obs.add(returnKey, cache.TypeInfo{Native: param.Type}, filePath)
					break
				}
			}
			continue
		}
		if info := InferExpr(ret.Expr); !info.IsZero() {
			obs.add(returnKey, info, filePath)
		}
	}
}

// PropertyType resolves a property's inferred type.
//
// Cache first; on a miss, joins parameter-to-property flow edges and
// unifies the types of the feeding parameters.
func (a *Analyzer) PropertyType(class, property string) (cache.TypeInfo, bool) {
	key := cache.PropertyKey(class, property)
	if info, ok := a.types.Get(key); ok {
		return info, true
	}

	sources := a.flows.Sources(cache.FlowParamToProperty, key)
	var candidates []string
	for _, source := range sources {
		if info, ok := a.types.Get(source); ok && info.Native != "" {
			candidates = append(candidates, info.Native)
		}
	}
	if unified := Unify(candidates); unified != "" {
		return cache.TypeInfo{Native: unified}, true
	}
	return cache.TypeInfo{}, false
}

// ParameterType resolves a parameter's inferred type.
//
// Cache first; on a miss, follows the parameter's flow into properties
// and unifies the property types.
func (a *Analyzer) ParameterType(class, method, param string) (cache.TypeInfo, bool) {
	key := cache.ParamKey(class, method, param)
	if info, ok := a.types.Get(key); ok {
		return info, true
	}

	targets := a.flows.Targets(cache.FlowParamToProperty, key)
	var candidates []string
	for _, target := range targets {
		if info, ok := a.types.Get(target); ok && info.Native != "" {
			candidates = append(candidates, info.Native)
		}
	}
	if unified := Unify(candidates); unified != "" {
		return cache.TypeInfo{Native: unified}, true
	}
	return cache.TypeInfo{}, false
}

// ReturnType resolves a method's inferred return type.
//
// Cache first; on a miss, joins property-to-return flow edges and unifies
// the types of the returned properties.
func (a *Analyzer) ReturnType(class, method string) (cache.TypeInfo, bool) {
	key := cache.ReturnKey(class, method)
	if info, ok := a.types.Get(key); ok {
		return info, true
	}

	sources := a.flows.Sources(cache.FlowPropertyToReturn, key)
	var candidates []string
	for _, source := range sources {
		if info, ok := a.types.Get(source); ok && info.Native != "" {
			candidates = append(candidates, info.Native)
		}
	}
	if unified := Unify(candidates); unified != "" {
		return cache.TypeInfo{Native: unified}, true
	}
	return cache.TypeInfo{}, false
}

// RecordPropertyType writes a fixer-confirmed property type through to
// the cache.
func (a *Analyzer) RecordPropertyType(class, property string, info cache.TypeInfo, file string) {
	a.types.Put(cache.PropertyKey(class, property), info, file)
}

// RecordParameterType writes a fixer-confirmed parameter type through to
// the cache.
func (a *Analyzer) RecordParameterType(class, method, param string, info cache.TypeInfo, file string) {
	a.types.Put(cache.ParamKey(class, method, param), info, file)
}

// RecordReturnType writes a fixer-confirmed return type through to the
// cache.
func (a *Analyzer) RecordReturnType(class, method string, info cache.TypeInfo, file string) {
	a.types.Put(cache.ReturnKey(class, method), info, file)
}

// isClassLikeType reports whether a type name plausibly names a class.
// Scalar and pseudo types never own properties.
func isClassLikeType(t string) bool {
	switch t {
	case "int", "float", "string", "bool", "array", "object", "mixed",
		"null", "void", "never", "callable", "iterable", "self", "static", "parent":
		return false
	}
	return len(t) > 0 && t[0] != '?'
}

// observations accumulates per-key type evidence within one Analyze call
// so it can be unified before the cache write.
type observations struct {
	order []string
	types map[string][]string
	doc   map[string]string
	file  map[string]string
}

func newObservations() *observations {
	return &observations{
		types: make(map[string][]string),
		doc:   make(map[string]string),
		file:  make(map[string]string),
	}
}

func (o *observations) add(key string, info cache.TypeInfo, file string) {
	if info.IsZero() || key == "" {
		return
	}
	if _, seen := o.types[key]; !seen {
		o.order = append(o.order, key)
	}
	if info.Native != "" {
		o.types[key] = append(o.types[key], info.Native)
	} else {
		o.types[key] = append(o.types[key], "")
	}
	if info.PHPDoc != "" && o.doc[key] == "" {
		o.doc[key] = info.PHPDoc
	}
	o.file[key] = file
}

func (o *observations) count() int {
	return len(o.order)
}

func (o *observations) flush(types *cache.TypeCache) {
	for _, key := range o.order {
		unified := Unify(o.types[key])
		info := cache.TypeInfo{Native: unified, PHPDoc: o.doc[key]}
		if info.IsZero() {
			continue
		}
		types.Put(key, info, o.file[key])
	}
}
