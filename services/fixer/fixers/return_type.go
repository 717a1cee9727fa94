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
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/cache"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpast"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpstan"
)

// returnTypeWindow is the search radius around the diagnostic line.
const returnTypeWindow = 5

// MissingReturnType adds a native return type inferred from the method's
// return statements, consulting the type cache first and writing confirmed
// inferences back through it.
type MissingReturnType struct {
	deps Deps
}

func NewMissingReturnType(deps Deps) *MissingReturnType {
	return &MissingReturnType{deps: deps}
}

func (f *MissingReturnType) Name() string { return "missing_return_type" }

func (f *MissingReturnType) Kinds() []string { return []string{KindMissingReturnType} }

func (f *MissingReturnType) CanFix(d phpstan.Diagnostic) bool {
	return strings.Contains(d.Message, "has no return type specified")
}

func (f *MissingReturnType) Fix(source string, d phpstan.Diagnostic) (string, error) {
	file := parseModel(source)
	if file == nil {
		return source, nil
	}

	src := phpast.NewSource([]byte(source))

	if class, method, ok := methodRef(d.Message); ok {
		c, m := methodNear(file, class, method, d.Line, returnTypeWindow)
		if m == nil || m.ReturnType != "" {
			return source, nil
		}

		inferred := f.inferMethod(c, m)
		if inferred == "" {
			return source, &InferenceError{Member: class + "::" + method, Err: ErrNoInference}
		}
		if !addReturnType(src, m.SignatureLine, lastSignatureLine(m), inferred) {
			return source, nil
		}
		if f.deps.Analyzer != nil {
			f.deps.Analyzer.RecordReturnType(c.Name, m.Name, cache.TypeInfo{Native: inferred}, d.File)
		}
		return src.String(), nil
	}

	if name, ok := functionRef(d.Message); ok {
		fn := functionNear(file, name, d.Line, returnTypeWindow)
		if fn == nil || fn.ReturnType != "" {
			return source, nil
		}

		inferred := inferReturnFromStatements(fn.Returns, nil, fn.Params)
		if inferred == "" {
			return source, &InferenceError{Member: name, Err: ErrNoInference}
		}
		if !addReturnType(src, fn.SignatureLine, functionLastSignatureLine(fn), inferred) {
			return source, nil
		}
		return src.String(), nil
	}

	return source, nil
}

func (f *MissingReturnType) inferMethod(c *phpast.Class, m *phpast.Method) string {
	if f.deps.Analyzer != nil {
		if info, ok := f.deps.Analyzer.ReturnType(c.Name, m.Name); ok && info.Native != "" {
			return nativeFromUnion(info.Native)
		}
	}
	return inferReturnFromStatements(m.Returns, c, m.Params)
}

// inferReturnFromStatements unifies the types of every return expression.
// No return statements, or only bare returns, means void.
func inferReturnFromStatements(returns []*phpast.ReturnStatement, c *phpast.Class, params []*phpast.Param) string {
	if len(returns) == 0 {
		return "void"
	}

	var candidates []string
	bareOnly := true
	for _, ret := range returns {
		if ret.Expr == "" {
			continue
		}
		bareOnly = false

		if ret.Property != "" && c != nil {
			if p := c.FindProperty(ret.Property); p != nil && p.Type != "" {
				candidates = append(candidates, p.Type)
				continue
			}
		}
		if ret.Variable != "" {
			if t := paramType(params, ret.Variable); t != "" {
				candidates = append(candidates, t)
			}
			continue
		}
		if info := analyzer.InferExpr(ret.Expr); info.Native != "" {
			candidates = append(candidates, info.Native)
		}
	}

	if bareOnly {
		return "void"
	}
	return nativeFromUnion(analyzer.Unify(candidates))
}

func paramType(params []*phpast.Param, name string) string {
	for _, p := range params {
		if p.Name == name {
			return p.Type
		}
	}
	return ""
}

// nativeFromUnion converts unified type strings into native declaration
// syntax: a trailing |null on a single base becomes ?T; bare null and
// mixed stay as they are.
func nativeFromUnion(t string) string {
	if t == "" || t == "mixed" || t == "null" {
		return t
	}
	parts := strings.Split(t, "|")
	if len(parts) == 2 && parts[1] == "null" && !strings.Contains(parts[0], "?") {
		return "?" + parts[0]
	}
	return t
}

func lastSignatureLine(m *phpast.Method) int {
	if m.BodyStartLine > 0 {
		return m.BodyStartLine
	}
	return m.EndLine
}

func functionLastSignatureLine(fn *phpast.Function) int {
	if fn.BodyStartLine > 0 {
		return fn.BodyStartLine
	}
	return fn.EndLine
}
