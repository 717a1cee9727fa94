// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package phpstan

import (
	"bufio"
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// =============================================================================
// PHPSTAN JSON REPORT STRUCTURES
// =============================================================================

// phpstanOutput matches PHPStan's --error-format=json document.
type phpstanOutput struct {
	Totals struct {
		Errors     int `json:"errors"`
		FileErrors int `json:"file_errors"`
	} `json:"totals"`
	Files  map[string]phpstanFile `json:"files"`
	Errors []string               `json:"errors"`
}

// phpstanFile holds the per-file message list.
type phpstanFile struct {
	Errors   int              `json:"errors"`
	Messages []phpstanMessage `json:"messages"`
}

// phpstanMessage is one finding inside a file block.
type phpstanMessage struct {
	Message    string `json:"message"`
	Line       int    `json:"line"`
	Identifier string `json:"identifier"`
	Ignorable  bool   `json:"ignorable"`
}

// =============================================================================
// PARSING
// =============================================================================

// Parse extracts diagnostics from captured analyzer output.
//
// # Description
//
// PHPStan writes its JSON document to stdout, but wrappers and composer
// scripts routinely prepend banners or deprecation notices, and some setups
// swap the streams entirely. Parse therefore scans stdout line by line for
// the first line that is a JSON object with a "files" key, falling back to
// stderr, and decodes that. File paths are visited in sorted order so the
// resulting slice is deterministic; within a file, message order is
// preserved exactly as reported.
//
// # Inputs
//
//   - stdout: captured standard output
//   - stderr: captured standard error
//
// # Outputs
//
//   - []Diagnostic: normalized findings, possibly empty
//   - error: ErrNoAnalyzerOutput when no JSON report was found on either
//     stream, or a ParseError for a report that decoded but was malformed
func Parse(stdout, stderr []byte) ([]Diagnostic, error) {
	raw, ok := findReport(stdout)
	if !ok {
		raw, ok = findReport(stderr)
	}
	if !ok {
		return nil, ErrNoAnalyzerOutput
	}

	var report phpstanOutput
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, NewParseError(raw, err)
	}

	paths := make([]string, 0, len(report.Files))
	for path := range report.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var diags []Diagnostic
	for _, path := range paths {
		for _, msg := range report.Files[path].Messages {
			diags = append(diags, Diagnostic{
				File:       path,
				Line:       msg.Line,
				Message:    msg.Message,
				Identifier: msg.Identifier,
			})
		}
	}

	// Not-file-bound errors (bootstrap failures, config problems) surface
	// with line 0 and an empty file so callers can log them.
	for _, msg := range report.Errors {
		diags = append(diags, Diagnostic{Message: msg})
	}

	return diags, nil
}

// findReport scans a stream for the first line that decodes as a JSON
// object carrying a "files" key.
func findReport(stream []byte) ([]byte, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(stream))
	// PHPStan reports for large projects far exceed the default token size.
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var probe map[string]json.RawMessage
		if err := json.Unmarshal([]byte(line), &probe); err != nil {
			continue
		}
		if _, hasFiles := probe["files"]; hasFiles {
			return []byte(line), true
		}
	}
	return nil, false
}

// CountByFile groups a diagnostic slice into per-file counts. File paths
// with no diagnostics do not appear.
func CountByFile(diags []Diagnostic) map[string]int {
	counts := make(map[string]int)
	for _, d := range diags {
		if d.File == "" {
			continue
		}
		counts[d.File]++
	}
	return counts
}

// FilterByFile returns the diagnostics belonging to one file, preserving
// report order.
func FilterByFile(diags []Diagnostic, file string) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		if d.File == file {
			out = append(out, d)
		}
	}
	return out
}

// Files returns the sorted set of file paths that have diagnostics.
func Files(diags []Diagnostic) []string {
	seen := make(map[string]bool)
	for _, d := range diags {
		if d.File != "" {
			seen[d.File] = true
		}
	}
	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}
