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
	"errors"
	"fmt"
)

// Common errors for analyzer operations.
var (
	// ErrAnalyzerNotFound indicates the phpstan binary could not be located
	// in the project's vendor directory or on PATH.
	ErrAnalyzerNotFound = errors.New("phpstan binary not found")

	// ErrAnalyzerTimeout indicates the analyzer exceeded its time limit.
	ErrAnalyzerTimeout = errors.New("phpstan timed out")

	// ErrAnalyzerFailed indicates the analyzer process failed without
	// producing a report.
	ErrAnalyzerFailed = errors.New("phpstan execution failed")

	// ErrNoAnalyzerOutput indicates the analyzer ran but neither stream
	// contained a parseable JSON report.
	ErrNoAnalyzerOutput = errors.New("no parseable phpstan output")

	// ErrNoPaths indicates an invocation was requested with no target paths.
	ErrNoPaths = errors.New("no paths to analyze")
)

// AnalyzerError provides context about an analyzer failure.
type AnalyzerError struct {
	// Binary is the analyzer executable that was invoked.
	Binary string

	// WorkingDir is the directory the analyzer ran in.
	WorkingDir string

	// Err is the underlying error.
	Err error

	// Output contains captured stderr, if any.
	Output string
}

// Error implements the error interface.
func (e *AnalyzerError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("phpstan error (binary=%s, dir=%s): %v\nOutput: %s",
			e.Binary, e.WorkingDir, e.Err, e.Output)
	}
	return fmt.Sprintf("phpstan error (binary=%s, dir=%s): %v", e.Binary, e.WorkingDir, e.Err)
}

// Unwrap returns the underlying error.
func (e *AnalyzerError) Unwrap() error {
	return e.Err
}

// NewAnalyzerError creates a new AnalyzerError.
func NewAnalyzerError(binary, workingDir string, err error) *AnalyzerError {
	return &AnalyzerError{
		Binary:     binary,
		WorkingDir: workingDir,
		Err:        err,
	}
}

// WithOutput adds captured output to the error.
func (e *AnalyzerError) WithOutput(output string) *AnalyzerError {
	e.Output = output
	return e
}

// ParseError provides context about a malformed analyzer report.
type ParseError struct {
	// Snippet is a short prefix of the content that failed to parse.
	Snippet string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("phpstan report parse error: %v (near %q)", e.Err, e.Snippet)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError, truncating the snippet to a
// loggable length.
func NewParseError(content []byte, err error) *ParseError {
	const maxSnippet = 120
	snippet := string(content)
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet] + "..."
	}
	return &ParseError{Snippet: snippet, Err: err}
}
