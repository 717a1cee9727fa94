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
	"testing"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpstan"
)

func TestMissingIterableValue_ReturnPosition(t *testing.T) {
	source := `<?php
class Repo {
    public function all(): array {
        return [];
    }
}
`
	f := NewMissingIterableValue(Deps{})
	got := mustFix(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Method Repo::all() return type has no value type specified in iterable type array.",
	})
	wantContains(t, got, "* @return mixed[]")
}

func TestMissingIterableValue_ParamWithArrayDefault(t *testing.T) {
	source := `<?php
class Repo {
    public function save(array $rows = [1, 2]) {
    }
}
`
	f := NewMissingIterableValue(Deps{})
	got := mustFix(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Method Repo::save() has parameter $rows with no value type specified in iterable type array.",
	})
	wantContains(t, got, "* @param array<int, int> $rows")
}

func TestMissingIterableValue_ExistingTagIdempotent(t *testing.T) {
	source := `<?php
class Repo {
    /**
     * @return mixed[]
     */
    public function all(): array {
        return [];
    }
}
`
	f := NewMissingIterableValue(Deps{})
	mustNotChange(t, f, source, phpstan.Diagnostic{
		Line:    6,
		Message: "Method Repo::all() return type has no value type specified in iterable type array.",
	})
}
