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

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/analyzer"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/cache"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpstan"
)

// newTestAnalyzer builds an analyzer over throwaway caches.
func newTestAnalyzer(t *testing.T) *analyzer.Analyzer {
	t.Helper()
	root := t.TempDir()
	return analyzer.NewAnalyzer(cache.NewTypeCache(root), cache.NewFlowCache(root))
}

// mustFix runs the fixer and fails the test on error.
func mustFix(t *testing.T, f Fixer, source string, d phpstan.Diagnostic) string {
	t.Helper()
	got, err := f.Fix(source, d)
	if err != nil {
		t.Fatalf("%s.Fix: %v", f.Name(), err)
	}
	return got
}

// mustNotChange runs the fixer and fails when it touched the source.
func mustNotChange(t *testing.T, f Fixer, source string, d phpstan.Diagnostic) {
	t.Helper()
	got, err := f.Fix(source, d)
	if err != nil {
		t.Fatalf("%s.Fix: %v", f.Name(), err)
	}
	if got != source {
		t.Errorf("%s changed source:\n%s", f.Name(), got)
	}
}

func wantContains(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Errorf("output missing %q:\n%s", want, got)
	}
}

func wantNotContains(t *testing.T, got, unwanted string) {
	t.Helper()
	if strings.Contains(got, unwanted) {
		t.Errorf("output still carries %q:\n%s", unwanted, got)
	}
}
