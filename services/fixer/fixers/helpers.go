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
	"strings"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpast"
)

var (
	methodRefRe   = regexp.MustCompile(`Method ([\w\\]+)::(\w+)\(\)`)
	functionRefRe = regexp.MustCompile(`Function ([\w\\]+)\(\)`)
	propertyRefRe = regexp.MustCompile(`Property ([\w\\]+)::\$(\w+)`)
	paramRefRe    = regexp.MustCompile(`parameter \$(\w+)`)
	variableRefRe = regexp.MustCompile(`[Vv]ariable:? \$(\w+)`)
)

// methodRef extracts the Class::method() reference from a message.
// The class part may be fully qualified; only the short name is returned
// since the model indexes by short name.
func methodRef(message string) (class, method string, ok bool) {
	m := methodRefRe.FindStringSubmatch(message)
	if m == nil {
		return "", "", false
	}
	return shortName(m[1]), m[2], true
}

// functionRef extracts the function() reference from a message.
func functionRef(message string) (string, bool) {
	m := functionRefRe.FindStringSubmatch(message)
	if m == nil {
		return "", false
	}
	return shortName(m[1]), true
}

// propertyRef extracts the Class::$prop reference from a message.
func propertyRef(message string) (class, property string, ok bool) {
	m := propertyRefRe.FindStringSubmatch(message)
	if m == nil {
		return "", "", false
	}
	return shortName(m[1]), m[2], true
}

// paramRef extracts the $param reference from a message.
func paramRef(message string) (string, bool) {
	m := paramRefRe.FindStringSubmatch(message)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// variableRef extracts the $var reference from a message.
func variableRef(message string) (string, bool) {
	m := variableRefRe.FindStringSubmatch(message)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func shortName(qualified string) string {
	if i := strings.LastIndex(qualified, "\\"); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}

// methodNear returns the method matching name whose declaration contains
// or sits within window lines of line.
func methodNear(file *phpast.File, class, name string, line, window int) (*phpast.Class, *phpast.Method) {
	for _, c := range file.Classes {
		if class != "" && c.Name != class {
			continue
		}
		for _, m := range c.Methods {
			if m.Name != name {
				continue
			}
			if line >= m.StartLine-window && line <= m.EndLine+window {
				return c, m
			}
		}
	}
	return nil, nil
}

// functionNear returns the top-level function matching name near line.
func functionNear(file *phpast.File, name string, line, window int) *phpast.Function {
	for _, fn := range file.Functions {
		if fn.Name != name {
			continue
		}
		if line >= fn.StartLine-window && line <= fn.EndLine+window {
			return fn
		}
	}
	return nil
}

// propertyNear returns the property matching name declared near line.
func propertyNear(file *phpast.File, class, name string, line, window int) (*phpast.Class, *phpast.Property) {
	for _, c := range file.Classes {
		if class != "" && c.Name != class {
			continue
		}
		for _, p := range c.Properties {
			if p.Name != name {
				continue
			}
			if line >= p.StartLine-window && line <= p.EndLine+window {
				return c, p
			}
		}
	}
	return nil, nil
}

// closingParenLine finds the line holding the parameter list's closing
// paren, scanning from the signature line. Returns 0 when not found
// within the declaration.
func closingParenLine(src *phpast.Source, sigLine, lastLine int) int {
	depth := 0
	opened := false
	for n := sigLine; n <= lastLine && n <= src.LineCount(); n++ {
		text, err := src.Line(n)
		if err != nil {
			return 0
		}
		for _, c := range text {
			switch c {
			case '(':
				depth++
				opened = true
			case ')':
				depth--
				if opened && depth == 0 {
					return n
				}
			}
		}
	}
	return 0
}

// addReturnType inserts ": T" after the parameter list's closing paren.
// Idempotent: bails when the declaration already carries a return type.
func addReturnType(src *phpast.Source, sigLine, lastLine int, typeName string) bool {
	parenLine := closingParenLine(src, sigLine, lastLine)
	if parenLine == 0 {
		return false
	}
	text, err := src.Line(parenLine)
	if err != nil {
		return false
	}

	i := strings.LastIndex(text, ")")
	if i < 0 {
		return false
	}
	rest := text[i+1:]
	if strings.Contains(rest, ":") {
		return false
	}

	src.SetLine(parenLine, text[:i+1]+": "+typeName+rest)
	return true
}

// addParamType inserts the type before $name on the parameter's line.
// Idempotent: bails when a type already precedes the parameter.
func addParamType(src *phpast.Source, line int, name, typeName string) bool {
	text, err := src.Line(line)
	if err != nil {
		return false
	}

	marker := "$" + name
	i := paramTokenIndex(text, marker)
	if i < 0 {
		return false
	}

	// Walk back over by-ref and variadic markers to the preceding token.
	j := i
	for j > 0 && (text[j-1] == '&' || text[j-1] == '.') {
		j--
	}
	before := strings.TrimRight(text[:j], " ")
	if hasTypeBefore(before) {
		return false
	}

	sep := " "
	if strings.HasSuffix(before, "(") {
		sep = ""
	}
	src.SetLine(line, before+sep+typeName+" "+text[j:i]+text[i:])
	return true
}

// paramTokenIndex finds $name as a whole token, not a prefix of a longer
// variable.
func paramTokenIndex(text, marker string) int {
	from := 0
	for {
		i := strings.Index(text[from:], marker)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(marker)
		if end >= len(text) || !isWordByte(text[end]) {
			return i
		}
		from = end
	}
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// hasTypeBefore reports whether the text ending before a parameter
// already carries a type token (rather than a comma, paren, or modifier).
func hasTypeBefore(before string) bool {
	fields := strings.Fields(before)
	if len(fields) == 0 {
		return false
	}
	last := fields[len(fields)-1]
	last = strings.TrimLeft(last, "(,")
	if last == "" {
		return false
	}
	switch last {
	case "public", "private", "protected", "readonly", "function":
		return false
	}
	if strings.HasSuffix(last, ",") || strings.HasSuffix(last, "(") {
		return false
	}
	// A remaining token is a type (possibly nullable or a union).
	return true
}

// addPropertyType inserts the type before $name on the property's
// declaration line. Idempotent via the model's own Type field upstream.
func addPropertyType(src *phpast.Source, line int, name, typeName string) bool {
	text, err := src.Line(line)
	if err != nil {
		return false
	}

	marker := "$" + name
	i := paramTokenIndex(text, marker)
	if i < 0 {
		return false
	}

	src.SetLine(line, text[:i]+typeName+" "+text[i:])
	return true
}

// insertDocblock places a docblock immediately above startLine using its
// indentation. lines are the inner tag lines without comment markers.
func insertDocblock(src *phpast.Source, startLine int, lines []string) bool {
	text, err := src.Line(startLine)
	if err != nil {
		return false
	}
	indent := phpast.Indentation(text)

	block := make([]string, 0, len(lines)+2)
	block = append(block, indent+"/**")
	for _, l := range lines {
		block = append(block, indent+" * "+l)
	}
	block = append(block, indent+" */")

	return src.InsertBefore(startLine, block...) == nil
}

// appendDocblockTag adds a tag line to the docblock ending directly above
// declLine. Returns false when no docblock closing is found there.
func appendDocblockTag(src *phpast.Source, declLine int, tag string) bool {
	for n := declLine - 1; n >= 1 && n >= declLine-3; n-- {
		text, err := src.Line(n)
		if err != nil {
			return false
		}
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			continue
		}
		if strings.HasSuffix(trimmed, "*/") {
			// The closing line's indent already includes the space that
			// aligns the stars.
			indent := phpast.Indentation(text)
			return src.InsertBefore(n, indent+"* "+tag) == nil
		}
		return false
	}
	return false
}

// docblockHasTag reports whether a raw docblock already carries the exact
// tag for the given subject, e.g. ("@param", "$items").
func docblockHasTag(doc, tag, subject string) bool {
	if doc == "" {
		return false
	}
	for _, line := range strings.Split(doc, "\n") {
		if strings.Contains(line, tag) && (subject == "" || strings.Contains(line, subject)) {
			return true
		}
	}
	return false
}
