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
	"strings"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/analyzer"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpast"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpstan"
)

const iterableWindow = 5

// MissingIterableValue documents the value type of an iterable via
// @param/@return phpdoc tags, falling back to mixed[] when nothing
// richer can be inferred.
type MissingIterableValue struct {
	deps Deps
}

func NewMissingIterableValue(deps Deps) *MissingIterableValue {
	return &MissingIterableValue{deps: deps}
}

func (f *MissingIterableValue) Name() string { return "iterable_value_type" }

func (f *MissingIterableValue) Kinds() []string { return []string{KindIterableValueType} }

func (f *MissingIterableValue) CanFix(d phpstan.Diagnostic) bool {
	return strings.Contains(d.Message, "no value type specified in iterable type")
}

func (f *MissingIterableValue) Fix(source string, d phpstan.Diagnostic) (string, error) {
	file := parseModel(source)
	if file == nil {
		return source, nil
	}
	src := phpast.NewSource([]byte(source))

	class, method, ok := methodRef(d.Message)
	if !ok {
		if name, fok := functionRef(d.Message); fok {
			fn := functionNear(file, name, d.Line, iterableWindow)
			if fn == nil {
				return source, nil
			}
			return f.fixCallable(src, source, d, "", fn.Params, fn.DocComment, fn.StartLine, "", name)
		}
		return source, nil
	}

	c, m := methodNear(file, class, method, d.Line, iterableWindow)
	if m == nil {
		return source, nil
	}
	return f.fixCallable(src, source, d, c.Name, m.Params, m.DocComment, m.StartLine, class, method)
}

func (f *MissingIterableValue) fixCallable(src *phpast.Source, source string, d phpstan.Diagnostic, className string, params []*phpast.Param, doc string, startLine int, class, method string) (string, error) {
	if paramName, ok := paramRef(d.Message); ok {
		if docblockHasTag(doc, "@param", "$"+paramName) {
			return source, nil
		}
		tag := "@param " + f.paramShape(className, method, params, paramName) + " $" + paramName
		return f.write(src, source, doc, startLine, tag)
	}

	// Return position.
	if docblockHasTag(doc, "@return", "") {
		return source, nil
	}
	tag := "@return " + f.returnShape(className, method)
	return f.write(src, source, doc, startLine, tag)
}

func (f *MissingIterableValue) write(src *phpast.Source, source, doc string, startLine int, tag string) (string, error) {
	if doc != "" {
		if !appendDocblockTag(src, startLine, tag) {
			return source, nil
		}
	} else if !insertDocblock(src, startLine, []string{tag}) {
		return source, nil
	}
	return src.String(), nil
}

// paramShape picks the richest known array shape for a parameter.
func (f *MissingIterableValue) paramShape(className, method string, params []*phpast.Param, paramName string) string {
	for _, p := range params {
		if p.Name != paramName || p.Default == "" {
			continue
		}
		if info := analyzer.InferExpr(p.Default); info.PHPDoc != "" {
			return info.PHPDoc
		}
	}
	if f.deps.Analyzer != nil && className != "" {
		if info, ok := f.deps.Analyzer.ParameterType(className, method, paramName); ok && info.PHPDoc != "" {
			return info.PHPDoc
		}
	}
	return "mixed[]"
}

// returnShape picks the richest known array shape for a return position.
func (f *MissingIterableValue) returnShape(className, method string) string {
	if f.deps.Analyzer != nil && className != "" {
		if info, ok := f.deps.Analyzer.ReturnType(className, method); ok && info.PHPDoc != "" {
			return info.PHPDoc
		}
	}
	return "mixed[]"
}
