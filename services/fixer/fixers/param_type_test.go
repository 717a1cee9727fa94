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
	"testing"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpstan"
)

func TestMissingParamType_FromIntDefault(t *testing.T) {
	source := `<?php
class Pager {
    public function page($size = 25) {
        return $size;
    }
}
`
	f := NewMissingParamType(Deps{})
	got := mustFix(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Method Pager::page() has parameter $size with no type specified.",
	})
	wantContains(t, got, "public function page(int $size = 25) {")
}

func TestMissingParamType_FromArrayDefault(t *testing.T) {
	source := `<?php
function merge($extra = []) {
    return $extra;
}
`
	f := NewMissingParamType(Deps{})
	got := mustFix(t, f, source, phpstan.Diagnostic{
		Line:    2,
		Message: "Function merge() has parameter $extra with no type specified.",
	})
	wantContains(t, got, "function merge(array $extra = []) {")
}

func TestMissingParamType_NullDefaultIsNotEvidence(t *testing.T) {
	source := `<?php
function touch($when = null) {
    return $when;
}
`
	f := NewMissingParamType(Deps{})
	if _, err := f.Fix(source, phpstan.Diagnostic{
		Line:    2,
		Message: "Function touch() has parameter $when with no type specified.",
	}); err == nil {
		t.Error("expected an inference error for a bare null default")
	}
}

func TestMissingParamType_AlreadyTyped(t *testing.T) {
	source := `<?php
class Pager {
    public function page(int $size = 25) {
        return $size;
    }
}
`
	f := NewMissingParamType(Deps{})
	mustNotChange(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Method Pager::page() has parameter $size with no type specified.",
	})
}

func TestDocblockParam_InsertsNewDocblock(t *testing.T) {
	source := `<?php
class Store {
    public function save($meta) {
    }
}
`
	f := NewDocblockParam(Deps{})
	got := mustFix(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Method Store::save() is missing @param tag for parameter $meta.",
	})
	wantContains(t, got, "* @param mixed $meta")
	wantContains(t, got, "/**")
}

func TestDocblockParam_AppendsToExisting(t *testing.T) {
	source := `<?php
class Store {
    /**
     * Persists a record.
     */
    public function save($meta) {
    }
}
`
	f := NewDocblockParam(Deps{})
	got := mustFix(t, f, source, phpstan.Diagnostic{
		Line:    6,
		Message: "Method Store::save() is missing @param tag for parameter $meta.",
	})
	wantContains(t, got, "* @param mixed $meta")
	wantContains(t, got, "* Persists a record.")
	// Still one docblock.
	if n := strings.Count(got, "/**"); n != 1 {
		t.Errorf("docblock count = %d, want 1:\n%s", n, got)
	}
}

func TestDocblockParam_TagAlreadyPresent(t *testing.T) {
	source := `<?php
class Store {
    /**
     * @param array $meta
     */
    public function save($meta) {
    }
}
`
	f := NewDocblockParam(Deps{})
	mustNotChange(t, f, source, phpstan.Diagnostic{
		Line:    6,
		Message: "Method Store::save() is missing @param tag for parameter $meta.",
	})
}

