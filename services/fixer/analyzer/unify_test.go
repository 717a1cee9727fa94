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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnify(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		want       string
	}{
		{"empty", nil, ""},
		{"single", []string{"int"}, "int"},
		{"exact duplicates", []string{"int", "int", "int"}, "int"},
		{"two distinct sorted", []string{"string", "int"}, "int|string"},
		{"three distinct sorted", []string{"string", "int", "float"}, "float|int|string"},
		{"four distinct collapses", []string{"string", "int", "float", "bool"}, "mixed"},
		{"null appended", []string{"int", "null"}, "int|null"},
		{"null with union", []string{"string", "int", "null"}, "int|string|null"},
		{"only null collapses", []string{"null", "null"}, "mixed"},
		{"null case insensitive", []string{"int", "NULL"}, "int|null"},
		{"blank skipped", []string{"", "int", " "}, "int"},
		{"nested union flattened", []string{"int|string", "string"}, "int|string"},
		{"nested union with null", []string{"int|null", "string"}, "int|string|null"},
		{"class names", []string{"DateTime", "DateTimeImmutable"}, "DateTime|DateTimeImmutable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Unify(tt.candidates))
		})
	}
}

func TestInferExpr(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"42", "int"},
		{"-7", "int"},
		{"0xFF", "int"},
		{"3.14", "float"},
		{"1e3", "float"},
		{"'hello'", "string"},
		{`"world"`, "string"},
		{"<<<EOT\nbody\nEOT", "string"},
		{"true", "bool"},
		{"false", "bool"},
		{"null", "null"},
		{"new DateTime()", "DateTime"},
		{`new \App\Models\User($id)`, "App\\Models\\User"},
		{"(int) $raw", "int"},
		{"(bool)$flag", "bool"},
		{"(double) $x", "float"},
		{"$somevar", ""},
		{"self::CONSTANT", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, InferExpr(tt.expr).Native)
		})
	}
}

func TestInferExpr_ArrayLiterals(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		native  string
		phpdoc  string
	}{
		{"empty", "[]", "array", ""},
		{"int list", "[1, 2, 3]", "array", "array<int, int>"},
		{"string list", "['a', 'b']", "array", "array<int, string>"},
		{"string map", "['a' => 1, 'b' => 2]", "array", "array<string, int>"},
		{"mixed values", "[1, 'a']", "array", "array<int, int|string>"},
		{"legacy syntax", "array(1, 2)", "array", "array<int, int>"},
		{"nested ignored commas", "[[1, 2], [3]]", "array", "array<int, array>"},
		{"unknown values", "[$a, $b]", "array", "array<int, mixed>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := InferExpr(tt.expr)
			assert.Equal(t, tt.native, info.Native)
			assert.Equal(t, tt.phpdoc, info.PHPDoc)
		})
	}
}
