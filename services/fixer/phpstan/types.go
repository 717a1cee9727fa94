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
	"fmt"
	"time"
)

// =============================================================================
// DIAGNOSTIC MODEL
// =============================================================================

// Diagnostic is one normalized PHPStan finding.
//
// Description:
//
//	A Diagnostic is created by the output parser from one message entry of
//	the analyzer's JSON report and is immutable from then on. Kind is left
//	empty by the parser: classification into fixer-facing kind tags is done
//	by the fixer registry from the message text, because PHPStan's own
//	identifier taxonomy is coarser than the fixers need.
//
//	Duplicate diagnostics (same file, line, and message) are preserved as
//	separate entries; they are never merged.
//
// Thread Safety: Immutable after creation.
type Diagnostic struct {
	// File is the path exactly as the analyzer reported it.
	File string `json:"file"`

	// Line is the 1-based source line the analyzer flagged.
	Line int `json:"line"`

	// Message is the full diagnostic message text.
	Message string `json:"message"`

	// Identifier is PHPStan's own error identifier (e.g. "missingType.return"),
	// carried verbatim when present. Informational only.
	Identifier string `json:"identifier,omitempty"`

	// Kind is the fixer-facing classification tag. Empty until a registry
	// classifies the message; never set by the parser.
	Kind string `json:"kind,omitempty"`
}

// String renders the diagnostic in file:line form for logs and reports.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d: %s", d.File, d.Line, d.Message)
}

// SameFinding reports whether two diagnostics describe the same finding
// (same file, line, and message). Used by tests; the pipeline itself never
// deduplicates.
func (d Diagnostic) SameFinding(other Diagnostic) bool {
	return d.File == other.File && d.Line == other.Line && d.Message == other.Message
}

// =============================================================================
// RUN TYPES
// =============================================================================

// RunOptions controls a single analyzer invocation.
type RunOptions struct {
	// Paths are the files or directories to analyze. Must not be empty.
	Paths []string

	// Level is the PHPStan rule level (0-10).
	Level int

	// Extra holds additional command-line options. A key with an empty
	// value renders as --key, otherwise --key=value. Keys are emitted in
	// sorted order so command lines are reproducible.
	Extra map[string]string
}

// RawOutput is the captured result of one analyzer invocation.
//
// Both streams are kept because PHPStan is free to put progress noise on one
// stream and the JSON document on the other.
type RawOutput struct {
	// Stdout is the captured standard output.
	Stdout []byte

	// Stderr is the captured standard error.
	Stderr []byte

	// ExitCode is the process exit code. PHPStan exits 1 when it found
	// errors; that is a successful run from this package's point of view.
	ExitCode int

	// Duration is the wall-clock time of the invocation.
	Duration time.Duration
}
