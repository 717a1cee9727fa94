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
	"regexp"
	"sort"
	"strings"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/analyzer"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/cache"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpast"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpstan"
)

const propertyTypeWindow = 3

// MissingPropertyType adds a native property type inferred from the
// default value, constructor assignments, or the type and flow caches.
type MissingPropertyType struct {
	deps Deps
}

func NewMissingPropertyType(deps Deps) *MissingPropertyType {
	return &MissingPropertyType{deps: deps}
}

func (f *MissingPropertyType) Name() string { return "missing_property_type" }

func (f *MissingPropertyType) Kinds() []string { return []string{KindMissingPropertyType} }

func (f *MissingPropertyType) CanFix(d phpstan.Diagnostic) bool {
	return strings.Contains(d.Message, "has no type specified") &&
		strings.Contains(d.Message, "Property ")
}

func (f *MissingPropertyType) Fix(source string, d phpstan.Diagnostic) (string, error) {
	class, property, ok := propertyRef(d.Message)
	if !ok {
		return source, nil
	}

	file := parseModel(source)
	if file == nil {
		return source, nil
	}
	c, p := propertyNear(file, class, property, d.Line, propertyTypeWindow)
	if p == nil || p.Type != "" {
		return source, nil
	}

	inferred := f.infer(c, p)

	src := phpast.NewSource([]byte(source))
	if !addPropertyType(src, p.Line, p.Name, inferred) {
		return source, nil
	}
	if f.deps.Analyzer != nil {
		f.deps.Analyzer.RecordPropertyType(c.Name, p.Name, cache.TypeInfo{Native: inferred}, d.File)
	}
	return src.String(), nil
}

func (f *MissingPropertyType) infer(c *phpast.Class, p *phpast.Property) string {
	// Literal default first: the cheapest and most certain evidence.
	if p.Default != "" {
		if info := analyzer.InferExpr(p.Default); info.Native != "" && info.Native != "null" {
			return info.Native
		}
	}

	// Constructor assignment from a typed parameter.
	var candidates []string
	for _, m := range c.Methods {
		for _, assign := range m.Assignments {
			if assign.Property != p.Name || assign.ViaProperty != "" {
				continue
			}
			if assign.FromParam != "" {
				if t := paramType(m.Params, assign.FromParam); t != "" {
					candidates = append(candidates, t)
				}
				continue
			}
			if info := analyzer.InferExpr(assign.Expr); info.Native != "" {
				candidates = append(candidates, info.Native)
			}
		}
	}
	if unified := analyzer.Unify(candidates); unified != "" && unified != "mixed" {
		return f.widenForDefault(p, nativeFromUnion(unified))
	}

	// Cache and flow joins next.
	if f.deps.Analyzer != nil {
		if info, ok := f.deps.Analyzer.PropertyType(c.Name, p.Name); ok && info.Native != "" {
			return f.widenForDefault(p, nativeFromUnion(info.Native))
		}
	}

	// No evidence anywhere. Declare mixed rather than leave the
	// diagnostic permanently unfixable: a mixed annotation is safe,
	// while a guessed concrete type could reintroduce an error. This
	// also covers a bare null default, where ?mixed would be invalid.
	return "mixed"
}

// widenForDefault makes the inferred type nullable when the declaration
// carries an explicit null default.
func (f *MissingPropertyType) widenForDefault(p *phpast.Property, t string) string {
	if p.Default != "null" || t == "mixed" || strings.HasPrefix(t, "?") || strings.Contains(t, "null") {
		return t
	}
	if strings.Contains(t, "|") {
		return t + "|null"
	}
	return "?" + t
}

// NullableType rewrites a concrete type to its nullable form when the
// declaration defaults to null.
type NullableType struct {
	deps Deps
}

func NewNullableType(deps Deps) *NullableType {
	return &NullableType{deps: deps}
}

func (f *NullableType) Name() string { return "nullable_type" }

func (f *NullableType) Kinds() []string { return []string{KindNullableType} }

func (f *NullableType) CanFix(d phpstan.Diagnostic) bool {
	return strings.Contains(d.Message, "does not accept default value of type null")
}

func (f *NullableType) Fix(source string, d phpstan.Diagnostic) (string, error) {
	file := parseModel(source)
	if file == nil {
		return source, nil
	}
	src := phpast.NewSource([]byte(source))

	if class, property, ok := propertyRef(d.Message); ok {
		_, p := propertyNear(file, class, property, d.Line, propertyTypeWindow)
		if p == nil || p.Type == "" || isNullable(p.Type) {
			return source, nil
		}
		if !rewriteTypeOnLine(src, p.Line, p.Type, "?"+p.Type, p.Name) {
			return source, nil
		}
		if f.deps.Analyzer != nil && class != "" {
			f.deps.Analyzer.RecordPropertyType(class, property, cache.TypeInfo{Native: "?" + p.Type}, d.File)
		}
		return src.String(), nil
	}

	if paramName, ok := paramRef(d.Message); ok {
		if class, method, ok := methodRef(d.Message); ok {
			_, m := methodNear(file, class, method, d.Line, propertyTypeWindow)
			if m == nil {
				return source, nil
			}
			param := m.FindParam(paramName)
			if param == nil || param.Type == "" || isNullable(param.Type) {
				return source, nil
			}
			if !rewriteTypeOnLine(src, param.Line, param.Type, "?"+param.Type, param.Name) {
				return source, nil
			}
			return src.String(), nil
		}
	}

	return source, nil
}

func isNullable(t string) bool {
	return strings.HasPrefix(t, "?") || strings.Contains(strings.ToLower(t), "null") || t == "mixed"
}

// rewriteTypeOnLine replaces "oldType $name" with "newType $name" on the
// given line.
func rewriteTypeOnLine(src *phpast.Source, line int, oldType, newType, name string) bool {
	text, err := src.Line(line)
	if err != nil {
		return false
	}
	target := oldType + " $" + name
	if !strings.Contains(text, target) {
		return false
	}
	src.SetLine(line, strings.Replace(text, target, newType+" $"+name, 1))
	return true
}

// UnionType writes a union native type when inference produced multiple
// candidates.
type UnionType struct {
	deps Deps
}

func NewUnionType(deps Deps) *UnionType {
	return &UnionType{deps: deps}
}

func (f *UnionType) Name() string { return "union_type" }

func (f *UnionType) Kinds() []string { return []string{KindUnionType} }

func (f *UnionType) CanFix(d phpstan.Diagnostic) bool {
	return (strings.Contains(d.Message, "union type") ||
		strings.Contains(d.Message, "multiple candidate types")) &&
		strings.Contains(d.Message, "Property ")
}

func (f *UnionType) Fix(source string, d phpstan.Diagnostic) (string, error) {
	class, property, ok := propertyRef(d.Message)
	if !ok || f.deps.Analyzer == nil {
		return source, nil
	}

	file := parseModel(source)
	if file == nil {
		return source, nil
	}
	c, p := propertyNear(file, class, property, d.Line, propertyTypeWindow)
	if p == nil || p.Type != "" {
		return source, nil
	}

	info, found := f.deps.Analyzer.PropertyType(c.Name, p.Name)
	if !found || info.Native == "" || info.Native == "mixed" {
		return source, &InferenceError{Member: class + "::$" + property, Err: ErrNoInference}
	}

	src := phpast.NewSource([]byte(source))
	if !addPropertyType(src, p.Line, p.Name, sortedUnion(info.Native)) {
		return source, nil
	}
	return src.String(), nil
}

// sortedUnion re-sorts union members, keeping a trailing null last.
func sortedUnion(t string) string {
	if !strings.Contains(t, "|") {
		return t
	}
	parts := strings.Split(t, "|")
	hasNull := false
	var rest []string
	for _, p := range parts {
		if strings.EqualFold(p, "null") {
			hasNull = true
			continue
		}
		rest = append(rest, p)
	}
	sort.Strings(rest)
	if hasNull {
		rest = append(rest, "null")
	}
	return strings.Join(rest, "|")
}

var defaultMismatchRe = regexp.MustCompile(`\(([^)]+)\) does not accept default value of type ([\w|\\]+)`)

// DefaultValueMismatch widens a declared native type to accept an
// incompatible default value.
type DefaultValueMismatch struct{}

func NewDefaultValueMismatch() *DefaultValueMismatch {
	return &DefaultValueMismatch{}
}

func (f *DefaultValueMismatch) Name() string { return "default_value_mismatch" }

func (f *DefaultValueMismatch) Kinds() []string { return []string{KindDefaultValueMismatch} }

func (f *DefaultValueMismatch) CanFix(d phpstan.Diagnostic) bool {
	return defaultMismatchRe.MatchString(d.Message) &&
		!strings.Contains(d.Message, "of type null")
}

func (f *DefaultValueMismatch) Fix(source string, d phpstan.Diagnostic) (string, error) {
	m := defaultMismatchRe.FindStringSubmatch(d.Message)
	if m == nil {
		return source, nil
	}
	declared, defaultType := m[1], m[2]

	file := parseModel(source)
	if file == nil {
		return source, nil
	}
	src := phpast.NewSource([]byte(source))

	class, property, ok := propertyRef(d.Message)
	if !ok {
		return source, nil
	}
	_, p := propertyNear(file, class, property, d.Line, propertyTypeWindow)
	if p == nil || p.Type == "" || strings.Contains(p.Type, defaultType) {
		return source, nil
	}

	widened := sortedUnion(declared + "|" + defaultType)
	if !rewriteTypeOnLine(src, p.Line, p.Type, widened, p.Name) {
		return source, nil
	}
	return src.String(), nil
}
