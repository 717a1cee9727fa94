// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fixer

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpstan"
)

// FixResult is the contract every front end consumes: the CLI renders it,
// the HTTP API serializes it, the history store persists it.
//
// # Description
//
// The four collections only ever grow during a run. A diagnostic lands in
// exactly one of Fixed or Unfixable per pass; Messages carries free-text
// progress and error notes in the order they occurred.
type FixResult struct {
	// RunID identifies the run across logs, history, and reports.
	RunID string `json:"run_id"`

	// StartedAt is the wall-clock start of the run.
	StartedAt time.Time `json:"started_at"`

	// Duration covers the whole run including analyzer time.
	Duration time.Duration `json:"duration"`

	// Fixed holds the diagnostics whose fixes were committed (or, in dry
	// run, would have been).
	Fixed []phpstan.Diagnostic `json:"fixed"`

	// Unfixable holds the diagnostics no fixer could resolve.
	Unfixable []phpstan.Diagnostic `json:"unfixable"`

	// TouchedFiles maps each written file to its backup path, "" when no
	// backup was requested.
	TouchedFiles map[string]string `json:"touched_files"`

	// Messages carries progress notes and per-diagnostic errors.
	Messages []string `json:"messages"`

	// PassCounts records the diagnostic count seen at the start of each
	// pass, in pass order.
	PassCounts []int `json:"pass_counts"`

	// Passes is the number of fix passes that actually ran.
	Passes int `json:"passes"`

	// AnalysisFailed is set when the analyzer ran but produced no
	// parseable report; the collections above still reflect whatever
	// happened before that.
	AnalysisFailed bool `json:"analysis_failed"`

	// DryRun mirrors the request flag so consumers can tell apart an
	// empty TouchedFiles from a rehearsal.
	DryRun bool `json:"dry_run"`

	// Diffs holds per-file unified diffs, populated only in dry-run mode.
	Diffs map[string]string `json:"diffs,omitempty"`
}

func newFixResult(startedAt time.Time, dryRun bool) *FixResult {
	return &FixResult{
		RunID:        uuid.NewString(),
		StartedAt:    startedAt,
		TouchedFiles: make(map[string]string),
		DryRun:       dryRun,
	}
}

func (r *FixResult) message(format string, args ...any) {
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

// Clean reports whether the run ended with nothing left to fix.
func (r *FixResult) Clean() bool {
	return !r.AnalysisFailed && len(r.Unfixable) == 0
}
