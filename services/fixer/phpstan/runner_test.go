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
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name string
		opts RunOptions
		want []string
	}{
		{
			name: "basic",
			opts: RunOptions{Paths: []string{"src"}, Level: 6},
			want: []string{"analyse", "--error-format=json", "--no-progress", "--level=6", "src"},
		},
		{
			name: "multiple paths",
			opts: RunOptions{Paths: []string{"src", "tests"}, Level: 0},
			want: []string{"analyse", "--error-format=json", "--no-progress", "--level=0", "src", "tests"},
		},
		{
			name: "extra options sorted",
			opts: RunOptions{
				Paths: []string{"src"},
				Level: 8,
				Extra: map[string]string{
					"memory-limit":  "1G",
					"configuration": "phpstan.neon",
					"debug":         "",
				},
			},
			want: []string{
				"analyse", "--error-format=json", "--no-progress", "--level=8",
				"--configuration=phpstan.neon", "--debug", "--memory-limit=1G",
				"src",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildArgs(tt.opts)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("arg %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNewRunner_ExplicitBinary(t *testing.T) {
	r, err := NewRunner("/tmp", WithBinary("/usr/local/bin/phpstan"))
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	if r.Binary() != "/usr/local/bin/phpstan" {
		t.Errorf("binary = %q", r.Binary())
	}
	if r.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", r.timeout, DefaultTimeout)
	}
}

func TestNewRunner_NotFound(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PATH", dir)

	_, err := NewRunner(dir)
	if !errors.Is(err, ErrAnalyzerNotFound) {
		t.Errorf("expected ErrAnalyzerNotFound, got %v", err)
	}
}

func TestNewRunner_Options(t *testing.T) {
	r, err := NewRunner("/tmp",
		WithBinary("phpstan"),
		WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	if r.timeout != 5*time.Second {
		t.Errorf("timeout = %v", r.timeout)
	}

	// Zero timeout is ignored.
	r2, _ := NewRunner("/tmp", WithBinary("phpstan"), WithTimeout(0))
	if r2.timeout != DefaultTimeout {
		t.Errorf("zero timeout should keep default, got %v", r2.timeout)
	}
}

// writeStubAnalyzer creates a shell script that mimics phpstan output.
func writeStubAnalyzer(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub analyzer requires a unix shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "phpstan")
	script := "#!/bin/sh\n" + body
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("writing stub: %v", err)
	}
	return path
}

func TestAnalyze_StubSuccess(t *testing.T) {
	stub := writeStubAnalyzer(t, `printf '%s\n' '`+sampleReport+`'`+"\nexit 1\n")

	r, err := NewRunner(t.TempDir(), WithBinary(stub))
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	out, err := r.Analyze(context.Background(), RunOptions{Paths: []string{"src"}, Level: 6})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	// Exit 1 with a report on stdout is a successful run.
	if out.ExitCode != 1 {
		t.Errorf("exit code = %d, want 1", out.ExitCode)
	}

	diags, err := Parse(out.Stdout, out.Stderr)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(diags) != 3 {
		t.Errorf("expected 3 diagnostics, got %d", len(diags))
	}
}

func TestAnalyze_StubFailure(t *testing.T) {
	stub := writeStubAnalyzer(t, "echo 'PHP Fatal error' >&2\nexit 255\n")

	r, err := NewRunner(t.TempDir(), WithBinary(stub))
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	_, err = r.Analyze(context.Background(), RunOptions{Paths: []string{"src"}, Level: 6})
	if err == nil {
		t.Fatal("expected error for stderr-only failure")
	}

	var analyzerErr *AnalyzerError
	if !errors.As(err, &analyzerErr) {
		t.Fatalf("expected AnalyzerError, got %T", err)
	}
	if !strings.Contains(analyzerErr.Output, "PHP Fatal error") {
		t.Errorf("stderr not captured: %q", analyzerErr.Output)
	}
	if !errors.Is(err, ErrAnalyzerFailed) {
		t.Errorf("expected ErrAnalyzerFailed in chain, got %v", err)
	}
}

func TestAnalyze_Timeout(t *testing.T) {
	stub := writeStubAnalyzer(t, "sleep 10\n")

	r, err := NewRunner(t.TempDir(), WithBinary(stub), WithTimeout(100*time.Millisecond))
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	_, err = r.Analyze(context.Background(), RunOptions{Paths: []string{"src"}, Level: 6})
	if !errors.Is(err, ErrAnalyzerTimeout) {
		t.Errorf("expected ErrAnalyzerTimeout, got %v", err)
	}
}

func TestAnalyze_NoPaths(t *testing.T) {
	r, err := NewRunner("/tmp", WithBinary("phpstan"))
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	_, err = r.Analyze(context.Background(), RunOptions{Level: 6})
	if !errors.Is(err, ErrNoPaths) {
		t.Errorf("expected ErrNoPaths, got %v", err)
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"not found", ErrAnalyzerNotFound, true},
		{"timeout", ErrAnalyzerTimeout, true},
		{"failed", ErrAnalyzerFailed, true},
		{"no paths", ErrNoPaths, true},
		{"no output", ErrNoAnalyzerOutput, false},
		{"wrapped timeout", NewAnalyzerError("phpstan", "/tmp", ErrAnalyzerTimeout), true},
		{"other", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.want {
				t.Errorf("IsFatal(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestAnalyzerError(t *testing.T) {
	err := NewAnalyzerError("phpstan", "/proj", ErrAnalyzerFailed).WithOutput("boom")
	if !errors.Is(err, ErrAnalyzerFailed) {
		t.Error("Unwrap chain broken")
	}
	msg := err.Error()
	if !strings.Contains(msg, "phpstan") || !strings.Contains(msg, "/proj") || !strings.Contains(msg, "boom") {
		t.Errorf("error message missing context: %q", msg)
	}
}

func TestAnalyze_UnlaunchableBinary(t *testing.T) {
	// A start failure produces an error with both streams empty; that
	// must surface as a process failure, not a clean run.
	r, err := NewRunner(t.TempDir(), WithBinary(filepath.Join(t.TempDir(), "no-such-phpstan")))
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	_, err = r.Analyze(context.Background(), RunOptions{Paths: []string{"src"}, Level: 6})
	if err == nil {
		t.Fatal("expected error for unlaunchable binary")
	}

	var analyzerErr *AnalyzerError
	if !errors.As(err, &analyzerErr) {
		t.Fatalf("expected AnalyzerError, got %T", err)
	}
	if !errors.Is(err, ErrAnalyzerFailed) {
		t.Errorf("expected ErrAnalyzerFailed in chain, got %v", err)
	}
}
