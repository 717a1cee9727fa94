// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package phpast

// =============================================================================
// PHP SOURCE MODEL
// =============================================================================

// File is the extracted model of one PHP source file.
//
// Description:
//
//	File is built eagerly by Parser.Parse; the underlying tree-sitter tree
//	is closed before Parse returns, so File carries no native resources and
//	can be retained freely. All line numbers are 1-based.
//
// Thread Safety: Immutable after Parse returns.
type File struct {
	// Path is the file path the content was parsed as.
	Path string

	// Namespace is the declared namespace, "" when absent.
	Namespace string

	// StrictTypes reports whether declare(strict_types=1) is present.
	StrictTypes bool

	// OpenTagLine is the line of the first <?php tag, 0 when missing.
	OpenTagLine int

	// Classes holds class, interface, trait, and enum declarations.
	Classes []*Class

	// Functions holds top-level function definitions.
	Functions []*Function

	// HasSyntaxErrors is set when tree-sitter flagged parse errors. The
	// model is still populated with whatever could be extracted.
	HasSyntaxErrors bool
}

// ClassKind distinguishes class-like declarations.
type ClassKind string

const (
	KindClass     ClassKind = "class"
	KindInterface ClassKind = "interface"
	KindTrait     ClassKind = "trait"
	KindEnum      ClassKind = "enum"
)

// Class is one class-like declaration.
type Class struct {
	Name       string
	Kind       ClassKind
	StartLine  int
	EndLine    int
	Abstract   bool
	Final      bool
	Readonly   bool
	Extends    string
	Implements []string

	Properties []*Property
	Methods    []*Method
	Constants  []*Constant

	// Cases is populated for enums only.
	Cases []*EnumCase

	// BackingType is the enum backing type ("string", "int"), "" for pure
	// enums and non-enums.
	BackingType string
}

// Property is one property element. A grouped declaration such as
// "private int $a, $b;" yields one Property per element sharing the same
// declaration lines.
type Property struct {
	// Name is the property name without the leading $.
	Name string

	// Type is the declared native type text, "" when untyped.
	Type string

	Visibility string
	Static     bool
	Readonly   bool

	// Default is the source text of the initializer, "" when absent.
	Default string

	// Line is the line of the variable_name token.
	Line int

	// StartLine and EndLine span the whole property_declaration.
	StartLine int
	EndLine   int

	// DocComment is the raw docblock immediately above the declaration,
	// "" when absent.
	DocComment string
}

// Param is one parameter of a method or function.
type Param struct {
	// Name is the parameter name without the leading $.
	Name string

	// Type is the declared type text, "" when untyped.
	Type string

	// Default is the source text of the default value, "" when absent.
	Default string

	// Promoted marks a constructor property promotion parameter.
	Promoted bool

	// PromotedVisibility is the promotion visibility, "" when not promoted.
	PromotedVisibility string

	// PromotedReadonly marks a readonly promoted parameter.
	PromotedReadonly bool

	Variadic bool
	ByRef    bool
	Line     int
}

// Method is one method declaration.
type Method struct {
	Name       string
	Visibility string
	Static     bool
	Abstract   bool
	Final      bool

	Params []*Param

	// ReturnType is the declared return type text, "" when missing.
	ReturnType string

	// StartLine is the first line of the declaration, EndLine the last line
	// of the body (or the declaration for abstract methods).
	StartLine int
	EndLine   int

	// SignatureLine is the line holding the function keyword and name; the
	// insertion point for return type edits.
	SignatureLine int

	// BodyStartLine and BodyEndLine span the compound statement braces,
	// 0 for abstract and interface methods.
	BodyStartLine int
	BodyEndLine   int

	// DocComment is the raw docblock immediately above, "" when absent.
	DocComment string

	// Returns lists the return statements in the body, in source order.
	Returns []*ReturnStatement

	// Assignments lists $this->prop = ... assignments in the body, in
	// source order.
	Assignments []*PropertyAssignment
}

// Function is a top-level function definition. It shares Method's body
// analysis so flow helpers work on both.
type Function struct {
	Name          string
	Params        []*Param
	ReturnType    string
	StartLine     int
	EndLine       int
	SignatureLine int
	BodyStartLine int
	BodyEndLine   int
	DocComment    string
	Returns       []*ReturnStatement
}

// Constant is one const element of a class.
type Constant struct {
	Name       string
	Value      string
	Visibility string
	Line       int
}

// EnumCase is one case of an enum declaration.
type EnumCase struct {
	Name  string
	Value string
	Line  int
}

// ReturnStatement is one return in a body.
type ReturnStatement struct {
	// Line is the line of the return keyword.
	Line int

	// Expr is the returned expression's source text, "" for bare return.
	Expr string

	// Property is set to the property name when the expression is exactly
	// $this->name.
	Property string

	// Variable is set to the variable name when the expression is exactly
	// $name.
	Variable string
}

// PropertyAssignment is one $this->prop = expr assignment.
type PropertyAssignment struct {
	// Line is the line of the assignment.
	Line int

	// Property is the assigned property name without $.
	Property string

	// ViaProperty is set for $this->other->prop = expr assignments: the
	// intermediate property name ("other"). "" for direct assignments.
	ViaProperty string

	// Expr is the right-hand side source text.
	Expr string

	// FromParam is set to the parameter name when the right-hand side is
	// exactly a bare $variable.
	FromParam string
}

// =============================================================================
// LOOKUP HELPERS
// =============================================================================

// FindClass returns the class-like declaration with the given name, or nil.
func (f *File) FindClass(name string) *Class {
	for _, c := range f.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ClassAt returns the class-like declaration whose lines contain line, or
// nil. Nested anonymous classes are not modeled; the outermost match wins.
func (f *File) ClassAt(line int) *Class {
	for _, c := range f.Classes {
		if line >= c.StartLine && line <= c.EndLine {
			return c
		}
	}
	return nil
}

// MethodAt returns the class and method whose lines contain line.
func (f *File) MethodAt(line int) (*Class, *Method) {
	for _, c := range f.Classes {
		for _, m := range c.Methods {
			if line >= m.StartLine && line <= m.EndLine {
				return c, m
			}
		}
	}
	return nil, nil
}

// FunctionAt returns the top-level function whose lines contain line, or nil.
func (f *File) FunctionAt(line int) *Function {
	for _, fn := range f.Functions {
		if line >= fn.StartLine && line <= fn.EndLine {
			return fn
		}
	}
	return nil
}

// PropertyAt returns the class and property declared within the given line
// window. An exact line match is preferred; otherwise the nearest property
// whose declaration starts within window lines of line is returned.
func (f *File) PropertyAt(line, window int) (*Class, *Property) {
	var bestClass *Class
	var bestProp *Property
	bestDist := window + 1

	for _, c := range f.Classes {
		for _, p := range c.Properties {
			if line >= p.StartLine && line <= p.EndLine {
				return c, p
			}
			dist := p.StartLine - line
			if dist < 0 {
				dist = -dist
			}
			if dist < bestDist {
				bestDist = dist
				bestClass = c
				bestProp = p
			}
		}
	}
	return bestClass, bestProp
}

// FindMethod returns the method with the given name, or nil.
func (c *Class) FindMethod(name string) *Method {
	for _, m := range c.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// FindProperty returns the property with the given name (without $), or nil.
func (c *Class) FindProperty(name string) *Property {
	for _, p := range c.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Constructor returns the __construct method, or nil.
func (c *Class) Constructor() *Method {
	return c.FindMethod("__construct")
}

// FindParam returns the parameter with the given name (without $), or nil.
func (m *Method) FindParam(name string) *Param {
	for _, p := range m.Params {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// HasBody reports whether the method has a compound statement body.
func (m *Method) HasBody() bool {
	return m.BodyStartLine > 0
}
