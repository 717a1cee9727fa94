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
	"errors"
	"testing"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpstan"
)

func TestMissingReturnType_FromStringLiteral(t *testing.T) {
	source := `<?php
class Greeter {
    public function greet() {
        return "hello";
    }
}
`
	f := NewMissingReturnType(Deps{})
	got := mustFix(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Method Greeter::greet() has no return type specified.",
	})
	wantContains(t, got, "public function greet(): string {")
}

func TestMissingReturnType_Void(t *testing.T) {
	source := `<?php
class Logger {
    public function flush() {
        $this->buffer = [];
    }
}
`
	f := NewMissingReturnType(Deps{})
	got := mustFix(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Method Logger::flush() has no return type specified.",
	})
	wantContains(t, got, "public function flush(): void {")
}

func TestMissingReturnType_NullableFromParam(t *testing.T) {
	source := `<?php
class Finder {
    public function pick(int $id, bool $ok) {
        if ($ok) {
            return $id;
        }
        return null;
    }
}
`
	f := NewMissingReturnType(Deps{})
	got := mustFix(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Method Finder::pick() has no return type specified.",
	})
	wantContains(t, got, "public function pick(int $id, bool $ok): ?int {")
}

func TestMissingReturnType_TopLevelFunction(t *testing.T) {
	source := `<?php
function answer() {
    return 42;
}
`
	f := NewMissingReturnType(Deps{})
	got := mustFix(t, f, source, phpstan.Diagnostic{
		Line:    2,
		Message: "Function answer() has no return type specified.",
	})
	wantContains(t, got, "function answer(): int {")
}

func TestMissingReturnType_AlreadyTyped(t *testing.T) {
	source := `<?php
class Greeter {
    public function greet(): string {
        return "hello";
    }
}
`
	f := NewMissingReturnType(Deps{})
	mustNotChange(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Method Greeter::greet() has no return type specified.",
	})
}

func TestMissingReturnType_NoEvidence(t *testing.T) {
	source := `<?php
class Opaque {
    public function value($raw) {
        return $unknown;
    }
}
`
	f := NewMissingReturnType(Deps{})
	_, err := f.Fix(source, phpstan.Diagnostic{
		Line:    3,
		Message: "Method Opaque::value() has no return type specified.",
	})
	if !errors.Is(err, ErrNoInference) {
		t.Errorf("err = %v, want ErrNoInference", err)
	}
}

func TestNativeFromUnion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"int", "int"},
		{"int|null", "?int"},
		{"int|string", "int|string"},
		{"mixed", "mixed"},
		{"null", "null"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := nativeFromUnion(tt.in); got != tt.want {
			t.Errorf("nativeFromUnion(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
