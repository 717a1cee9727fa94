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
	"errors"
	"testing"
)

func TestSource_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"single newline", "\n"},
		{"no trailing newline", "<?php\necho 1;"},
		{"trailing newline", "<?php\necho 1;\n"},
		{"blank lines", "<?php\n\n\necho 1;\n"},
		{"crlf", "<?php\r\necho 1;\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSource([]byte(tt.content))
			if got := s.String(); got != tt.content {
				t.Errorf("round trip: got %q, want %q", got, tt.content)
			}
		})
	}
}

func TestSource_LineAccess(t *testing.T) {
	s := NewSource([]byte("one\ntwo\nthree\n"))

	if s.LineCount() != 3 {
		t.Fatalf("LineCount = %d", s.LineCount())
	}

	line, err := s.Line(2)
	if err != nil || line != "two" {
		t.Errorf("Line(2) = %q, %v", line, err)
	}

	if _, err := s.Line(0); !errors.Is(err, ErrLineOutOfRange) {
		t.Errorf("Line(0) error = %v", err)
	}
	if _, err := s.Line(4); !errors.Is(err, ErrLineOutOfRange) {
		t.Errorf("Line(4) error = %v", err)
	}
}

func TestSource_SetLine(t *testing.T) {
	s := NewSource([]byte("one\ntwo\nthree\n"))

	if err := s.SetLine(2, "TWO"); err != nil {
		t.Fatalf("SetLine: %v", err)
	}
	if got := s.String(); got != "one\nTWO\nthree\n" {
		t.Errorf("got %q", got)
	}

	if err := s.SetLine(9, "x"); !errors.Is(err, ErrLineOutOfRange) {
		t.Errorf("out of range error = %v", err)
	}
}

func TestSource_Insert(t *testing.T) {
	s := NewSource([]byte("one\nthree\n"))

	if err := s.InsertBefore(2, "two"); err != nil {
		t.Fatalf("InsertBefore: %v", err)
	}
	if got := s.String(); got != "one\ntwo\nthree\n" {
		t.Errorf("got %q", got)
	}

	if err := s.InsertAfter(3, "four", "five"); err != nil {
		t.Fatalf("InsertAfter: %v", err)
	}
	if got := s.String(); got != "one\ntwo\nthree\nfour\nfive\n" {
		t.Errorf("got %q", got)
	}

	// Appending via InsertBefore at count+1.
	if err := s.InsertBefore(s.LineCount()+1, "six"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if got, _ := s.Line(6); got != "six" {
		t.Errorf("line 6 = %q", got)
	}

	if err := s.InsertBefore(100, "x"); !errors.Is(err, ErrLineOutOfRange) {
		t.Errorf("out of range error = %v", err)
	}
}

func TestSource_Remove(t *testing.T) {
	s := NewSource([]byte("one\ntwo\nthree\nfour\n"))

	if err := s.RemoveLine(2); err != nil {
		t.Fatalf("RemoveLine: %v", err)
	}
	if got := s.String(); got != "one\nthree\nfour\n" {
		t.Errorf("got %q", got)
	}

	if err := s.RemoveRange(2, 3); err != nil {
		t.Fatalf("RemoveRange: %v", err)
	}
	if got := s.String(); got != "one\n" {
		t.Errorf("got %q", got)
	}

	if err := s.RemoveRange(1, 5); !errors.Is(err, ErrLineOutOfRange) {
		t.Errorf("out of range error = %v", err)
	}
}

func TestSource_CRLFPreserved(t *testing.T) {
	s := NewSource([]byte("one\r\ntwo\r\n"))

	if err := s.SetLine(1, "ONE"); err != nil {
		t.Fatalf("SetLine: %v", err)
	}
	if got := s.String(); got != "ONE\r\ntwo\r\n" {
		t.Errorf("got %q", got)
	}
}

func TestIndentation(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"    return;", "    "},
		{"\t\tfoo", "\t\t"},
		{"none", ""},
		{"   ", "   "},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Indentation(tt.line); got != tt.want {
			t.Errorf("Indentation(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestClampWindow(t *testing.T) {
	tests := []struct {
		name              string
		line, radius, max int
		wantLo, wantHi    int
	}{
		{"middle", 10, 2, 100, 8, 12},
		{"near start", 2, 5, 100, 1, 7},
		{"near end", 99, 5, 100, 94, 100},
		{"tiny file", 1, 10, 3, 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := ClampWindow(tt.line, tt.radius, tt.max)
			if lo != tt.wantLo || hi != tt.wantHi {
				t.Errorf("got [%d,%d], want [%d,%d]", lo, hi, tt.wantLo, tt.wantHi)
			}
		})
	}
}
