// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package project

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func setupTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := []string{
		"index.php",
		"src/User.php",
		"src/Models/Order.php",
		"tests/UserTest.php",
		"vendor/autoload.php",
		"vendor/lib/Thing.php",
		"resources/views/home.blade.php",
		"README.md",
	}
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		writeFile(t, path, "<?php")
	}

	return root
}

func TestScan(t *testing.T) {
	root := setupTree(t)

	result, err := NewScanner().Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	want := []string{
		"index.php",
		"src/Models/Order.php",
		"src/User.php",
		"tests/UserTest.php",
	}
	if len(result.Files) != len(want) {
		t.Fatalf("files = %v, want %v", result.Files, want)
	}
	for i := range want {
		if result.Files[i] != want[i] {
			t.Errorf("file %d = %q, want %q", i, result.Files[i], want[i])
		}
	}
	if result.Incomplete {
		t.Error("scan should be complete")
	}
}

func TestScan_CustomPatterns(t *testing.T) {
	root := setupTree(t)

	scanner := NewScanner(
		WithIncludes("src/**"),
		WithExcludes("**/Models/**"),
	)
	result, err := scanner.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(result.Files) != 1 || result.Files[0] != "src/User.php" {
		t.Errorf("files = %v", result.Files)
	}
}

func TestScan_InvalidRoot(t *testing.T) {
	_, err := NewScanner().Scan(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrInvalidRoot) {
		t.Errorf("expected ErrInvalidRoot, got %v", err)
	}

	file := filepath.Join(t.TempDir(), "plain.php")
	writeFile(t, file, "<?php")
	_, err = NewScanner().Scan(context.Background(), file)
	if !errors.Is(err, ErrInvalidRoot) {
		t.Errorf("expected ErrInvalidRoot for file root, got %v", err)
	}
}

func TestScan_Canceled(t *testing.T) {
	root := setupTree(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewScanner().Scan(ctx, root)
	if err != nil {
		t.Fatalf("canceled scan should return partial result, got %v", err)
	}
	if !result.Incomplete {
		t.Error("Incomplete not set")
	}
}

func TestGlobMatcher(t *testing.T) {
	tests := []struct {
		name string
		path string
		want bool
	}{
		{"top level php", "index.php", true},
		{"nested php", "src/Deep/Nest/File.php", true},
		{"vendor excluded", "vendor/autoload.php", false},
		{"deep vendor excluded", "vendor/a/b/c.php", false},
		{"git excluded", ".git/hooks/pre-commit.php", false},
		{"blade excluded", "resources/views/home.blade.php", false},
		{"non php", "README.md", false},
	}

	m := NewGlobMatcher(DefaultIncludes, DefaultExcludes)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Match(tt.path); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	root := t.TempDir()

	if err := ValidatePath(root, "src/User.php"); err != nil {
		t.Errorf("relative inside: %v", err)
	}
	if err := ValidatePath(root, filepath.Join(root, "src", "User.php")); err != nil {
		t.Errorf("absolute inside: %v", err)
	}
	if err := ValidatePath(root, "../outside.php"); !errors.Is(err, ErrPathTraversal) {
		t.Errorf("expected ErrPathTraversal, got %v", err)
	}
	if err := ValidatePath(root, "src/../../outside.php"); !errors.Is(err, ErrPathTraversal) {
		t.Errorf("expected ErrPathTraversal, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	root := t.TempDir()

	got, err := Resolve(root, "src/User.php")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != filepath.Join(root, "src", "User.php") {
		t.Errorf("resolved = %q", got)
	}

	if _, err := Resolve(root, "../escape.php"); !errors.Is(err, ErrPathTraversal) {
		t.Errorf("expected ErrPathTraversal, got %v", err)
	}
}
