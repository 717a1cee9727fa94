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
	"os"
	"path/filepath"
	"testing"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/cache"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpstan"
)

func TestMissingPropertyType_FromDefault(t *testing.T) {
	source := `<?php
class Counter {
    private $count = 0;
}
`
	f := NewMissingPropertyType(Deps{})
	got := mustFix(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Property Counter::$count has no type specified.",
	})
	wantContains(t, got, "private int $count = 0;")
}

func TestMissingPropertyType_FromConstructorParam(t *testing.T) {
	source := `<?php
class User {
    private $name;

    public function __construct(string $name) {
        $this->name = $name;
    }
}
`
	f := NewMissingPropertyType(Deps{})
	got := mustFix(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Property User::$name has no type specified.",
	})
	wantContains(t, got, "private string $name;")
}

func TestMissingPropertyType_NullDefaultWidens(t *testing.T) {
	source := `<?php
class Box {
    private $label = null;

    public function __construct(string $label) {
        $this->label = $label;
    }
}
`
	f := NewMissingPropertyType(Deps{})
	got := mustFix(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Property Box::$label has no type specified.",
	})
	wantContains(t, got, "private ?string $label = null;")
}

func TestMissingPropertyType_NoEvidence(t *testing.T) {
	// No default, no constructor, no cache: the property still gets a
	// declared type so the diagnostic does not stay unfixable forever.
	source := `<?php
class Opaque {
    private $payload;
}
`
	f := NewMissingPropertyType(Deps{})
	got := mustFix(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Property Opaque::$payload has no type specified.",
	})
	wantContains(t, got, "private mixed $payload;")
}

func TestMissingPropertyType_NullDefaultOnly(t *testing.T) {
	// A bare null default carries no non-null evidence; mixed already
	// admits null, so no nullable widening applies.
	source := `<?php
class Opaque {
    private $payload = null;
}
`
	f := NewMissingPropertyType(Deps{})
	got := mustFix(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Property Opaque::$payload has no type specified.",
	})
	wantContains(t, got, "private mixed $payload = null;")
}

func TestNullableType_Property(t *testing.T) {
	source := `<?php
class Config {
    private int $limit = null;
}
`
	f := NewNullableType(Deps{})
	got := mustFix(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Property Config::$limit (int) does not accept default value of type null.",
	})
	wantContains(t, got, "private ?int $limit = null;")
}

func TestNullableType_AlreadyNullable(t *testing.T) {
	source := `<?php
class Config {
    private ?int $limit = null;
}
`
	f := NewNullableType(Deps{})
	mustNotChange(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Property Config::$limit (int) does not accept default value of type null.",
	})
}

func TestNullableType_Param(t *testing.T) {
	source := `<?php
class Config {
    public function limit(int $max = null) {
        return $max;
    }
}
`
	f := NewNullableType(Deps{})
	got := mustFix(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Method Config::limit() has parameter $max with a type (int) that does not accept default value of type null.",
	})
	wantContains(t, got, "public function limit(?int $max = null) {")
}

func TestUnionType_FromAnalyzer(t *testing.T) {
	an := newTestAnalyzer(t)
	// Cache entries go stale against a missing source file.
	path := filepath.Join(t.TempDir(), "holder.php")
	if err := os.WriteFile(path, []byte("<?php\n"), 0644); err != nil {
		t.Fatal(err)
	}
	an.RecordPropertyType("Holder", "value", cache.TypeInfo{Native: "string|int"}, path)

	source := `<?php
class Holder {
    private $value;
}
`
	f := NewUnionType(Deps{Analyzer: an})
	got := mustFix(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Property Holder::$value has multiple candidate types and needs a union type.",
	})
	wantContains(t, got, "private int|string $value;")
}

func TestDefaultValueMismatch_Widens(t *testing.T) {
	source := `<?php
class Config {
    private int $mode = "auto";
}
`
	f := NewDefaultValueMismatch()
	got := mustFix(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Property Config::$mode (int) does not accept default value of type string.",
	})
	wantContains(t, got, `private int|string $mode = "auto";`)
}

func TestSortedUnion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"string|int", "int|string"},
		{"string|null|int", "int|string|null"},
		{"int", "int"},
	}
	for _, tt := range tests {
		if got := sortedUnion(tt.in); got != tt.want {
			t.Errorf("sortedUnion(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
