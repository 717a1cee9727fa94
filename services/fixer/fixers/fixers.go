// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fixers holds the diagnostic fix implementations and the registry
// that resolves a diagnostic to the fixer able to handle it.
//
// Every fixer follows the same contract: locate the construct the
// diagnostic points at within a small line window, rewrite it, and return
// the input unchanged when the construct cannot be found. A fixer never
// guesses destructively.
package fixers

import (
	"context"
	"time"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/analyzer"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpast"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpstan"
)

// parseTimeout bounds the tree-sitter parse inside a single Fix call.
const parseTimeout = 10 * time.Second

// Fixer is one diagnostic fix implementation.
type Fixer interface {
	// Name identifies the fixer in logs, reports, and the fixer listing.
	Name() string

	// Kinds lists the classification tags this fixer registers under.
	Kinds() []string

	// CanFix is a pure predicate over the diagnostic's message text. It
	// never inspects file content.
	CanFix(d phpstan.Diagnostic) bool

	// Fix rewrites source to resolve the diagnostic, returning the
	// complete new content. Returns the input unchanged when the
	// construct cannot be located.
	Fix(source string, d phpstan.Diagnostic) (string, error)
}

// ReAnalyzer runs the analyzer against arbitrary paths. The generics fixer
// uses it to iterate template arguments against a temp copy of the file.
type ReAnalyzer interface {
	Analyze(ctx context.Context, opts phpstan.RunOptions) (*phpstan.RawOutput, error)
}

// Deps carries the shared handles fixers draw on.
type Deps struct {
	// Analyzer resolves inferred types through the caches. May be nil;
	// cache-aware fixers then rely on local inference only.
	Analyzer *analyzer.Analyzer

	// Runner re-invokes the static analyzer. Required by the generics
	// fixer only.
	Runner ReAnalyzer

	// PHPVersion is the target version string, e.g. "8.3". Fixers with a
	// version floor refuse below it.
	PHPVersion string
}

// parseModel parses source into the declaration model. Parse problems are
// treated as "cannot locate": fixers must leave broken files alone.
func parseModel(source string) *phpast.File {
	ctx, cancel := context.WithTimeout(context.Background(), parseTimeout)
	defer cancel()

	file, err := phpast.NewParser().Parse(ctx, []byte(source), "")
	if err != nil {
		return nil
	}
	return file
}
