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
	"io"
	"sort"

	"github.com/pmezard/go-difflib/difflib"
	godiff "github.com/sourcegraph/go-diff/diff"
)

// unifiedDiff renders the before/after of one file as a unified diff.
func unifiedDiff(path, before, after string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: path,
		ToFile:   path,
		Context:  3,
	})
}

// DiffStats counts added and deleted lines across a unified diff.
func DiffStats(unified string) (added, deleted int) {
	fd, err := godiff.ParseFileDiff([]byte(unified))
	if err != nil {
		return 0, 0
	}
	stat := fd.Stat()
	return int(stat.Added + stat.Changed), int(stat.Deleted + stat.Changed)
}

// Render writes a human-readable report of the run.
//
// # Description
//
// The layout mirrors what the analyzer itself prints: a summary line,
// per-file fix counts, then the free-text messages. Dry-run results get
// per-file diff statistics instead of a written-files list.
func Render(w io.Writer, r *FixResult) {
	fmt.Fprintf(w, "run %s: %d fixed, %d unfixable across %d pass(es)\n",
		r.RunID, len(r.Fixed), len(r.Unfixable), r.Passes)

	if r.AnalysisFailed {
		fmt.Fprintln(w, "analysis produced no parseable report; results above are partial")
	}

	perFile := make(map[string]int)
	for _, d := range r.Fixed {
		perFile[d.File]++
	}
	paths := make([]string, 0, len(perFile))
	for path := range perFile {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if r.DryRun {
			added, deleted := DiffStats(r.Diffs[path])
			fmt.Fprintf(w, "  %s: %d fix(es), +%d -%d (not written)\n",
				path, perFile[path], added, deleted)
			continue
		}
		line := fmt.Sprintf("  %s: %d fix(es)", path, perFile[path])
		if backup := r.TouchedFiles[path]; backup != "" {
			line += fmt.Sprintf(" (backup %s)", backup)
		}
		fmt.Fprintln(w, line)
	}

	for _, msg := range r.Messages {
		fmt.Fprintf(w, "  note: %s\n", msg)
	}
}
