// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyzer

import (
	"regexp"
	"strings"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/cache"
)

var (
	intLiteralRe   = regexp.MustCompile(`^-?(?:0[xX][0-9a-fA-F_]+|0[bB][01_]+|0[oO]?[0-7_]*|[1-9][0-9_]*|0)$`)
	floatLiteralRe = regexp.MustCompile(`^-?(?:[0-9][0-9_]*\.[0-9_]*|\.[0-9][0-9_]*|[0-9][0-9_]*)(?:[eE][+-]?[0-9]+)?$`)
	newExprRe      = regexp.MustCompile(`^new\s+\\?([A-Za-z_][A-Za-z0-9_\\]*)`)
	castRe         = regexp.MustCompile(`^\(\s*(int|integer|bool|boolean|float|double|real|string|array|object)\s*\)`)
)

// castTypes maps PHP cast keywords to native type names.
var castTypes = map[string]string{
	"int":     "int",
	"integer": "int",
	"bool":    "bool",
	"boolean": "bool",
	"float":   "float",
	"double":  "float",
	"real":    "float",
	"string":  "string",
	"array":   "array",
	"object":  "object",
}

// InferExpr structurally types a PHP expression from its source text.
//
// # Description
//
// Recognizes scalar literals, array literals (with shallow key and value
// unification into a phpdoc shape), object construction, and casts.
// Anything else yields a zero TypeInfo: no inference is better than a
// wrong one.
//
// # Outputs
//
//   - cache.TypeInfo: Native holds the native type name; PHPDoc holds the
//     richer array<K, V> shape for array literals.
func InferExpr(expr string) cache.TypeInfo {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return cache.TypeInfo{}
	}

	switch strings.ToLower(expr) {
	case "null":
		return cache.TypeInfo{Native: "null"}
	case "true", "false":
		return cache.TypeInfo{Native: "bool"}
	}

	if len(expr) > 0 && (expr[0] == '\'' || expr[0] == '"') {
		return cache.TypeInfo{Native: "string"}
	}
	if strings.HasPrefix(expr, "<<<") {
		return cache.TypeInfo{Native: "string"}
	}

	if m := castRe.FindStringSubmatch(expr); m != nil {
		return cache.TypeInfo{Native: castTypes[strings.ToLower(m[1])]}
	}

	if m := newExprRe.FindStringSubmatch(expr); m != nil {
		return cache.TypeInfo{Native: m[1]}
	}

	if strings.HasPrefix(expr, "[") && strings.HasSuffix(expr, "]") {
		return inferArrayLiteral(expr[1 : len(expr)-1])
	}
	if strings.HasPrefix(expr, "array(") && strings.HasSuffix(expr, ")") {
		return inferArrayLiteral(expr[len("array(") : len(expr)-1])
	}

	if intLiteralRe.MatchString(expr) {
		return cache.TypeInfo{Native: "int"}
	}
	if strings.ContainsAny(expr, ".eE") && floatLiteralRe.MatchString(expr) {
		return cache.TypeInfo{Native: "float"}
	}

	return cache.TypeInfo{}
}

// inferArrayLiteral unifies the key and value types of a shallow array
// literal body.
func inferArrayLiteral(body string) cache.TypeInfo {
	body = strings.TrimSpace(body)
	if body == "" {
		return cache.TypeInfo{Native: "array"}
	}

	var keyTypes, valueTypes []string
	for _, elem := range splitTopLevel(body, ',') {
		elem = strings.TrimSpace(elem)
		if elem == "" {
			continue
		}

		parts := splitTopLevelSeq(elem, "=>")
		if len(parts) == 2 {
			if kt := InferExpr(strings.TrimSpace(parts[0])); kt.Native != "" {
				keyTypes = append(keyTypes, kt.Native)
			}
			if vt := InferExpr(strings.TrimSpace(parts[1])); vt.Native != "" {
				valueTypes = append(valueTypes, vt.Native)
			}
		} else {
			keyTypes = append(keyTypes, "int")
			if vt := InferExpr(elem); vt.Native != "" {
				valueTypes = append(valueTypes, vt.Native)
			}
		}
	}

	info := cache.TypeInfo{Native: "array"}
	keyType := Unify(keyTypes)
	valueType := Unify(valueTypes)
	if valueType == "" {
		valueType = "mixed"
	}
	if keyType == "" {
		keyType = "int"
	}
	info.PHPDoc = "array<" + keyType + ", " + valueType + ">"
	return info
}

// splitTopLevel splits s on sep, ignoring separators nested inside
// brackets or quotes.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0

	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// splitTopLevelSeq splits s on the first top-level occurrence of seq.
func splitTopLevelSeq(s, seq string) []string {
	depth := 0
	var quote byte

	for i := 0; i+len(seq) <= len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		}
		if depth == 0 && quote == 0 && s[i:i+len(seq)] == seq {
			return []string{s[:i], s[i+len(seq):]}
		}
	}
	return []string{s}
}
