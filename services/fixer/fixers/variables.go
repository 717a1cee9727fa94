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

// UnusedVariable deletes a side-effect-free assignment statement the
// analyzer flagged as never used.
type UnusedVariable struct{}

func NewUnusedVariable() *UnusedVariable {
	return &UnusedVariable{}
}

func (f *UnusedVariable) Name() string { return "unused_variable" }

func (f *UnusedVariable) Kinds() []string { return []string{KindUnusedVariable} }

func (f *UnusedVariable) CanFix(d phpstan.Diagnostic) bool {
	return strings.Contains(d.Message, "Unused variable") ||
		strings.Contains(d.Message, "is never used") ||
		strings.Contains(d.Message, "is never read")
}

func (f *UnusedVariable) Fix(source string, d phpstan.Diagnostic) (string, error) {
	name, ok := variableRef(d.Message)
	if !ok {
		return source, nil
	}

	src := phpast.NewSource([]byte(source))
	text, err := src.Line(d.Line)
	if err != nil {
		return source, nil
	}

	trimmed := strings.TrimSpace(text)
	prefix := "$" + name
	if !strings.HasPrefix(trimmed, prefix) {
		return source, nil
	}
	rest := strings.TrimSpace(trimmed[len(prefix):])
	if !strings.HasPrefix(rest, "=") || strings.HasPrefix(rest, "==") {
		return source, nil
	}
	rhs := strings.TrimSpace(strings.TrimPrefix(rest, "="))
	if !strings.HasSuffix(rhs, ";") {
		// The statement spans lines; removing only this one would break
		// the file.
		return source, nil
	}
	rhs = strings.TrimSuffix(rhs, ";")

	if !sideEffectFree(rhs) {
		return source, nil
	}

	if err := src.RemoveLine(d.Line); err != nil {
		return source, nil
	}
	return src.String(), nil
}

// sideEffectFree approves expressions whose evaluation observably does
// nothing: literals, bare variables, property reads, and array literals.
// Anything with a call or object construction stays.
func sideEffectFree(expr string) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return false
	}
	if info := analyzer.InferExpr(expr); info.Native != "" && !strings.Contains(expr, "(") {
		return true
	}
	if strings.HasPrefix(expr, "$") && !strings.ContainsAny(expr, "(") {
		return true
	}
	return false
}

// UndefinedVariable initializes the variable to null at the head of the
// narrowest enclosing block.
type UndefinedVariable struct{}

func NewUndefinedVariable() *UndefinedVariable {
	return &UndefinedVariable{}
}

func (f *UndefinedVariable) Name() string { return "undefined_variable" }

func (f *UndefinedVariable) Kinds() []string { return []string{KindUndefinedVariable} }

func (f *UndefinedVariable) CanFix(d phpstan.Diagnostic) bool {
	return strings.Contains(d.Message, "Undefined variable") ||
		strings.Contains(d.Message, "might not be defined")
}

func (f *UndefinedVariable) Fix(source string, d phpstan.Diagnostic) (string, error) {
	name, ok := variableRef(d.Message)
	if !ok {
		return source, nil
	}

	src := phpast.NewSource([]byte(source))
	head := enclosingBlockHead(src, d.Line)
	if head == 0 {
		return source, nil
	}

	// Idempotence: bail when the initialization is already in place.
	init := "$" + name + " = null;"
	if next, err := src.Line(head + 1); err == nil && strings.TrimSpace(next) == init {
		return source, nil
	}

	indent := blockBodyIndent(src, head, d.Line)
	if err := src.InsertAfter(head, indent+init); err != nil {
		return source, nil
	}
	return src.String(), nil
}

// enclosingBlockHead walks upward from line to the line opening the
// narrowest block that contains it.
func enclosingBlockHead(src *phpast.Source, line int) int {
	depth := 0
	// Braces on the diagnostic line itself open or close blocks around
	// the failure point, not the enclosing one; start above it.
	for n := line - 1; n >= 1; n-- {
		text, err := src.Line(n)
		if err != nil {
			return 0
		}
		// Scan right to left so a "} else {" pair nets out in the order
		// the blocks actually nest.
		for i := len(text) - 1; i >= 0; i-- {
			switch text[i] {
			case '}':
				depth++
			case '{':
				if depth == 0 {
					return n
				}
				depth--
			}
		}
	}
	return 0
}

// blockBodyIndent picks the indentation for a statement inserted at the
// block head: the diagnostic line's own indentation when deeper, else one
// level past the head.
func blockBodyIndent(src *phpast.Source, head, line int) string {
	headText, err := src.Line(head)
	if err != nil {
		return ""
	}
	headIndent := phpast.Indentation(headText)

	if text, err := src.Line(line); err == nil {
		if indent := phpast.Indentation(text); len(indent) > len(headIndent) {
			return indent
		}
	}
	return headIndent + "    "
}
