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

const modernWindow = 3

// ReadonlyProperty marks properties that are never written outside the
// constructor as readonly. PHP 8.1 and up.
type ReadonlyProperty struct {
	deps Deps
}

func NewReadonlyProperty(deps Deps) *ReadonlyProperty {
	return &ReadonlyProperty{deps: deps}
}

func (f *ReadonlyProperty) Name() string { return "readonly_property" }

func (f *ReadonlyProperty) Kinds() []string { return []string{KindReadonlyProperty} }

func (f *ReadonlyProperty) CanFix(d phpstan.Diagnostic) bool {
	if !versionAtLeast(f.deps.PHPVersion, "8.1") {
		return false
	}
	return strings.Contains(d.Message, "could be readonly") ||
		strings.Contains(d.Message, "could be declared readonly")
}

func (f *ReadonlyProperty) Fix(source string, d phpstan.Diagnostic) (string, error) {
	class, property, ok := propertyRef(d.Message)
	if !ok {
		return source, nil
	}

	file := parseModel(source)
	if file == nil {
		return source, nil
	}
	c, p := propertyNear(file, class, property, d.Line, modernWindow)
	if p == nil || p.Readonly || p.Static || p.Type == "" {
		return source, nil
	}
	if writtenOutsideConstructor(c, p.Name) {
		return source, nil
	}

	src := phpast.NewSource([]byte(source))
	text, err := src.Line(p.Line)
	if err != nil {
		return source, nil
	}
	target := p.Type + " $" + p.Name
	if !strings.Contains(text, target) {
		return source, nil
	}
	src.SetLine(p.Line, strings.Replace(text, target, "readonly "+target, 1))
	return src.String(), nil
}

// writtenOutsideConstructor reports whether any non-constructor method
// assigns the property.
func writtenOutsideConstructor(c *phpast.Class, property string) bool {
	for _, m := range c.Methods {
		if m.Name == "__construct" {
			continue
		}
		for _, assign := range m.Assignments {
			if assign.Property == property && assign.ViaProperty == "" {
				return true
			}
		}
	}
	return false
}

// EnumConversion rewrites a class holding nothing but same-typed scalar
// constants into a backed enum. PHP 8.1 and up.
type EnumConversion struct {
	deps Deps
}

func NewEnumConversion(deps Deps) *EnumConversion {
	return &EnumConversion{deps: deps}
}

func (f *EnumConversion) Name() string { return "enum_case" }

func (f *EnumConversion) Kinds() []string { return []string{KindEnumCase} }

func (f *EnumConversion) CanFix(d phpstan.Diagnostic) bool {
	if !versionAtLeast(f.deps.PHPVersion, "8.1") {
		return false
	}
	return strings.Contains(d.Message, "backed enum") ||
		strings.Contains(d.Message, "contains only constants")
}

func (f *EnumConversion) Fix(source string, d phpstan.Diagnostic) (string, error) {
	file := parseModel(source)
	if file == nil {
		return source, nil
	}
	c := file.ClassAt(d.Line)
	if c == nil || c.Kind != phpast.KindClass {
		return source, nil
	}
	if len(c.Constants) == 0 || len(c.Methods) > 0 || len(c.Properties) > 0 {
		return source, nil
	}

	backing := constantBackingType(c.Constants)
	if backing == "" {
		return source, nil
	}

	src := phpast.NewSource([]byte(source))
	declText, err := src.Line(c.StartLine)
	if err != nil || !strings.Contains(declText, "class "+c.Name) {
		return source, nil
	}
	src.SetLine(c.StartLine, strings.Replace(declText, "class "+c.Name, "enum "+c.Name+": "+backing, 1))

	for _, con := range c.Constants {
		text, err := src.Line(con.Line)
		if err != nil {
			return source, nil
		}
		rewritten := constToCase(text)
		if rewritten == "" {
			return source, nil
		}
		src.SetLine(con.Line, rewritten)
	}
	return src.String(), nil
}

// constantBackingType returns the shared scalar type of all constants,
// "" when they disagree or are not backed-enum material.
func constantBackingType(consts []*phpast.Constant) string {
	backing := ""
	for _, con := range consts {
		info := analyzer.InferExpr(con.Value)
		if info.Native != "string" && info.Native != "int" {
			return ""
		}
		if backing == "" {
			backing = info.Native
		} else if backing != info.Native {
			return ""
		}
	}
	return backing
}

// constToCase rewrites a "const A = v;" line to "case A = v;", dropping
// any visibility modifier.
func constToCase(text string) string {
	indent := phpast.Indentation(text)
	rest := strings.TrimSpace(text)
	for _, vis := range []string{"public ", "protected ", "private ", "final "} {
		rest = strings.TrimPrefix(rest, vis)
	}
	if !strings.HasPrefix(rest, "const ") {
		return ""
	}
	return indent + "case " + strings.TrimPrefix(rest, "const ")
}

// ConstructorPromotion folds a property declaration and its constructor
// assignment into a promoted constructor parameter. PHP 8.0 and up.
type ConstructorPromotion struct {
	deps Deps
}

func NewConstructorPromotion(deps Deps) *ConstructorPromotion {
	return &ConstructorPromotion{deps: deps}
}

func (f *ConstructorPromotion) Name() string { return "constructor_promotion" }

func (f *ConstructorPromotion) Kinds() []string { return []string{KindConstructorPromotion} }

func (f *ConstructorPromotion) CanFix(d phpstan.Diagnostic) bool {
	if !versionAtLeast(f.deps.PHPVersion, "8.0") {
		return false
	}
	return strings.Contains(d.Message, "promoted to constructor")
}

func (f *ConstructorPromotion) Fix(source string, d phpstan.Diagnostic) (string, error) {
	class, property, ok := propertyRef(d.Message)
	if !ok {
		return source, nil
	}

	file := parseModel(source)
	if file == nil {
		return source, nil
	}
	c, p := propertyNear(file, class, property, d.Line, 10)
	if p == nil || p.Static {
		return source, nil
	}
	ctor := c.Constructor()
	if ctor == nil {
		return source, nil
	}
	param := ctor.FindParam(p.Name)
	if param == nil || param.Promoted {
		return source, nil
	}

	var assignLine int
	for _, assign := range ctor.Assignments {
		if assign.Property == p.Name && assign.ViaProperty == "" && assign.FromParam == p.Name {
			assignLine = assign.Line
			break
		}
	}
	if assignLine == 0 {
		return source, nil
	}
	if p.StartLine != p.EndLine {
		// Grouped declarations would lose their siblings.
		return source, nil
	}

	visibility := p.Visibility
	if visibility == "" {
		visibility = "public"
	}

	src := phpast.NewSource([]byte(source))
	paramText, err := src.Line(param.Line)
	if err != nil {
		return source, nil
	}
	marker := "$" + param.Name
	i := paramTokenIndex(paramText, marker)
	if i < 0 {
		return source, nil
	}
	j := i
	if param.Type != "" {
		typed := param.Type + " " + marker
		if k := strings.Index(paramText, typed); k >= 0 {
			j = k
		}
	}
	src.SetLine(param.Line, paramText[:j]+visibility+" "+paramText[j:])

	// Remove bottom-up so line numbers stay valid.
	lines := []int{assignLine, p.StartLine}
	if lines[0] < lines[1] {
		lines[0], lines[1] = lines[1], lines[0]
	}
	for _, n := range lines {
		if err := src.RemoveLine(n); err != nil {
			return source, nil
		}
	}
	return src.String(), nil
}

// PropertyHook replaces a property's trivial getter/setter pair with
// direct public access. PHP 8.4 and up.
type PropertyHook struct {
	deps Deps
}

func NewPropertyHook(deps Deps) *PropertyHook {
	return &PropertyHook{deps: deps}
}

func (f *PropertyHook) Name() string { return "property_hook" }

func (f *PropertyHook) Kinds() []string { return []string{KindPropertyHook} }

func (f *PropertyHook) CanFix(d phpstan.Diagnostic) bool {
	if !versionAtLeast(f.deps.PHPVersion, "8.4") {
		return false
	}
	return strings.Contains(d.Message, "property hook")
}

func (f *PropertyHook) Fix(source string, d phpstan.Diagnostic) (string, error) {
	class, property, ok := propertyRef(d.Message)
	if !ok {
		return source, nil
	}

	file := parseModel(source)
	if file == nil {
		return source, nil
	}
	c, p := propertyNear(file, class, property, d.Line, 10)
	if p == nil || p.Visibility == "public" {
		return source, nil
	}

	getter := trivialGetter(c, p.Name)
	setter := trivialSetter(c, p.Name)
	if getter == nil || setter == nil {
		return source, nil
	}

	src := phpast.NewSource([]byte(source))
	text, err := src.Line(p.Line)
	if err != nil || p.Visibility == "" {
		return source, nil
	}
	src.SetLine(p.Line, strings.Replace(text, p.Visibility, "public", 1))

	// Drop the accessor pair bottom-up, trailing blank lines included.
	for _, m := range orderedByStartDesc(getter, setter) {
		from, to := m.StartLine, m.EndLine
		if next, err := src.Line(to + 1); err == nil && strings.TrimSpace(next) == "" {
			to++
		}
		if err := src.RemoveRange(from, to); err != nil {
			return source, nil
		}
	}
	return src.String(), nil
}

// trivialGetter finds a method whose whole body is "return $this->prop;".
func trivialGetter(c *phpast.Class, property string) *phpast.Method {
	for _, m := range c.Methods {
		if len(m.Params) != 0 || len(m.Returns) != 1 || len(m.Assignments) != 0 {
			continue
		}
		if m.Returns[0].Property == property {
			return m
		}
	}
	return nil
}

// trivialSetter finds a method whose whole body is a single
// "$this->prop = $param;" assignment.
func trivialSetter(c *phpast.Class, property string) *phpast.Method {
	for _, m := range c.Methods {
		if len(m.Params) != 1 || len(m.Returns) != 0 || len(m.Assignments) != 1 {
			continue
		}
		a := m.Assignments[0]
		if a.Property == property && a.ViaProperty == "" && a.FromParam == m.Params[0].Name {
			return m
		}
	}
	return nil
}

func orderedByStartDesc(a, b *phpast.Method) []*phpast.Method {
	if a.StartLine >= b.StartLine {
		return []*phpast.Method{a, b}
	}
	return []*phpast.Method{b, a}
}

// AsymmetricVisibility narrows the write side of a public property that
// is only written from inside the class. PHP 8.4 and up.
type AsymmetricVisibility struct {
	deps Deps
}

func NewAsymmetricVisibility(deps Deps) *AsymmetricVisibility {
	return &AsymmetricVisibility{deps: deps}
}

func (f *AsymmetricVisibility) Name() string { return "asymmetric_visibility" }

func (f *AsymmetricVisibility) Kinds() []string { return []string{KindAsymmetricVisibility} }

func (f *AsymmetricVisibility) CanFix(d phpstan.Diagnostic) bool {
	if !versionAtLeast(f.deps.PHPVersion, "8.4") {
		return false
	}
	return strings.Contains(d.Message, "asymmetric visibility") ||
		strings.Contains(d.Message, "written only from inside") ||
		strings.Contains(d.Message, "written only inside")
}

func (f *AsymmetricVisibility) Fix(source string, d phpstan.Diagnostic) (string, error) {
	class, property, ok := propertyRef(d.Message)
	if !ok {
		return source, nil
	}

	file := parseModel(source)
	if file == nil {
		return source, nil
	}
	_, p := propertyNear(file, class, property, d.Line, modernWindow)
	if p == nil || p.Visibility != "public" || p.Type == "" {
		return source, nil
	}

	src := phpast.NewSource([]byte(source))
	text, err := src.Line(p.Line)
	if err != nil || strings.Contains(text, "private(set)") {
		return source, nil
	}
	if !strings.Contains(text, "public ") {
		return source, nil
	}
	src.SetLine(p.Line, strings.Replace(text, "public ", "public private(set) ", 1))
	return src.String(), nil
}
