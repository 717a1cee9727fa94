// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package phpast

import (
	"fmt"
	"strings"
)

// Source is a line-oriented view of a PHP file for minimal-diff editing.
//
// Description:
//
//	Fixers edit source by replacing, inserting, or removing whole lines
//	inside a small window around a diagnostic. Source splits content into
//	lines once, preserves the file's line ending style and trailing
//	newline, and reassembles byte-exact output for untouched regions.
//	All line numbers are 1-based to match diagnostics.
//
// Thread Safety: Not safe for concurrent use. Each fixer works on its own
// Source instance.
type Source struct {
	lines           []string
	eol             string
	trailingNewline bool
}

// NewSource splits content into an editable line view.
func NewSource(content []byte) *Source {
	text := string(content)

	eol := "\n"
	if strings.Contains(text, "\r\n") {
		eol = "\r\n"
	}

	s := &Source{eol: eol}
	switch {
	case text == "":
		// Zero lines.
	case strings.HasSuffix(text, eol):
		s.trailingNewline = true
		s.lines = strings.Split(strings.TrimSuffix(text, eol), eol)
	default:
		s.lines = strings.Split(text, eol)
	}

	return s
}

// LineCount returns the number of lines.
func (s *Source) LineCount() int {
	return len(s.lines)
}

// Line returns the text of line n without its terminator.
func (s *Source) Line(n int) (string, error) {
	if n < 1 || n > len(s.lines) {
		return "", fmt.Errorf("%w: line %d of %d", ErrLineOutOfRange, n, len(s.lines))
	}
	return s.lines[n-1], nil
}

// SetLine replaces the text of line n.
func (s *Source) SetLine(n int, text string) error {
	if n < 1 || n > len(s.lines) {
		return fmt.Errorf("%w: line %d of %d", ErrLineOutOfRange, n, len(s.lines))
	}
	s.lines[n-1] = text
	return nil
}

// InsertBefore inserts the given lines so the first inserted line becomes
// line n. Inserting at LineCount()+1 appends.
func (s *Source) InsertBefore(n int, texts ...string) error {
	if n < 1 || n > len(s.lines)+1 {
		return fmt.Errorf("%w: line %d of %d", ErrLineOutOfRange, n, len(s.lines))
	}
	idx := n - 1
	s.lines = append(s.lines[:idx], append(append([]string{}, texts...), s.lines[idx:]...)...)
	return nil
}

// InsertAfter inserts the given lines immediately after line n.
func (s *Source) InsertAfter(n int, texts ...string) error {
	return s.InsertBefore(n+1, texts...)
}

// RemoveLine deletes line n.
func (s *Source) RemoveLine(n int) error {
	if n < 1 || n > len(s.lines) {
		return fmt.Errorf("%w: line %d of %d", ErrLineOutOfRange, n, len(s.lines))
	}
	idx := n - 1
	s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	return nil
}

// RemoveRange deletes lines from through to inclusive.
func (s *Source) RemoveRange(from, to int) error {
	if from < 1 || to > len(s.lines) || from > to {
		return fmt.Errorf("%w: range %d-%d of %d", ErrLineOutOfRange, from, to, len(s.lines))
	}
	s.lines = append(s.lines[:from-1], s.lines[to:]...)
	return nil
}

// String reassembles the content, preserving line endings and the trailing
// newline state of the original.
func (s *Source) String() string {
	out := strings.Join(s.lines, s.eol)
	if s.trailingNewline && len(s.lines) > 0 {
		out += s.eol
	}
	return out
}

// Bytes reassembles the content as a byte slice.
func (s *Source) Bytes() []byte {
	return []byte(s.String())
}

// Indentation returns the leading whitespace of a line.
func Indentation(line string) string {
	for i, r := range line {
		if r != ' ' && r != '\t' {
			return line[:i]
		}
	}
	return line
}

// ClampWindow bounds a diagnostic-centered window to valid line numbers.
// Returns the inclusive range [lo, hi].
func ClampWindow(line, radius, lineCount int) (int, int) {
	lo := line - radius
	if lo < 1 {
		lo = 1
	}
	hi := line + radius
	if hi > lineCount {
		hi = lineCount
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}
