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
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScanError records a non-fatal discovery problem.
type ScanError struct {
	Path string
	Err  error
}

// ScanResult holds discovered PHP files and any non-fatal errors.
type ScanResult struct {
	// Root is the absolute root the scan ran from.
	Root string

	// Files are root-relative paths with forward slashes, sorted.
	Files []string

	// Errors lists directories or files that could not be visited.
	Errors []ScanError

	// Incomplete is set when the context was canceled mid-scan.
	Incomplete bool
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithIncludes sets the include glob patterns.
func WithIncludes(patterns ...string) ScannerOption {
	return func(s *Scanner) {
		s.includes = patterns
	}
}

// WithExcludes sets the exclude glob patterns.
func WithExcludes(patterns ...string) ScannerOption {
	return func(s *Scanner) {
		s.excludes = patterns
	}
}

// Scanner discovers fixable PHP files under a project root.
//
// Thread Safety: Scanner is safe for concurrent use.
type Scanner struct {
	includes []string
	excludes []string
}

// NewScanner creates a Scanner with the given options.
//
// Default configuration:
//   - includes: DefaultIncludes
//   - excludes: DefaultExcludes
func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{
		includes: DefaultIncludes,
		excludes: DefaultExcludes,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Scan walks a project directory collecting PHP files.
//
// Description:
//
//	Recursively walks the root applying include/exclude patterns.
//	Non-fatal errors (permission denied) are recorded in the result's
//	Errors field. Symlinks are never followed; the fixer must not write
//	through links that could escape the project.
//
// Inputs:
//   - ctx: Context for cancellation. If canceled, returns a partial
//     result with Incomplete set.
//   - root: Absolute path to the project root directory.
//
// Outputs:
//   - *ScanResult: The discovery result. Never nil.
//   - error: Non-nil if root is invalid or cannot be accessed.
func (s *Scanner) Scan(ctx context.Context, root string) (*ScanResult, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: not a directory", ErrInvalidRoot)
	}

	result := &ScanResult{Root: absRoot}
	matcher := NewGlobMatcher(s.includes, s.excludes)

	if err := s.scanDir(ctx, absRoot, absRoot, matcher, result); err != nil {
		if ctx.Err() != nil {
			result.Incomplete = true
			return result, nil
		}
		return result, err
	}

	sort.Strings(result.Files)
	return result, nil
}

// scanDir recursively scans a directory.
func (s *Scanner) scanDir(ctx context.Context, root, dir string, matcher *GlobMatcher, result *ScanResult) error {
	select {
	case <-ctx.Done():
		result.Incomplete = true
		return ctx.Err()
	default:
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		relPath, _ := filepath.Rel(root, dir)
		result.Errors = append(result.Errors, ScanError{Path: relPath, Err: err})
		return nil // Continue scanning other directories
	}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			result.Incomplete = true
			return ctx.Err()
		default:
		}

		path := filepath.Join(dir, entry.Name())
		relPath, err := filepath.Rel(root, path)
		if err != nil {
			result.Errors = append(result.Errors, ScanError{Path: path, Err: err})
			continue
		}
		relPathSlash := filepath.ToSlash(relPath)

		info, err := os.Lstat(path)
		if err != nil {
			result.Errors = append(result.Errors, ScanError{Path: relPath, Err: err})
			continue
		}

		// Skip symlinks entirely.
		if info.Mode()&os.ModeSymlink != 0 {
			continue
		}

		if info.IsDir() {
			// Recurse unless the directory itself is excluded.
			isExcluded := false
			for _, pattern := range matcher.excludes {
				if matchGlob(pattern, relPathSlash) || matchGlob(pattern, relPathSlash+"/") {
					isExcluded = true
					break
				}
			}
			if !isExcluded {
				if err := s.scanDir(ctx, root, path, matcher, result); err != nil {
					return err
				}
			}
			continue
		}

		if matcher.Match(relPathSlash) {
			result.Files = append(result.Files, relPathSlash)
		}
	}

	return nil
}

// ValidatePath ensures a path is within the project root.
//
// Returns ErrPathTraversal if the path escapes the root.
func ValidatePath(projectRoot, path string) error {
	var absPath string
	if filepath.IsAbs(path) {
		absPath = filepath.Clean(path)
	} else {
		absPath = filepath.Clean(filepath.Join(projectRoot, path))
	}

	rel, err := filepath.Rel(projectRoot, absPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPathTraversal, err)
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s escapes root", ErrPathTraversal, path)
	}

	return nil
}

// Resolve converts a possibly relative path to an absolute path under the
// project root, validating it stays inside.
func Resolve(projectRoot, path string) (string, error) {
	if err := ValidatePath(projectRoot, path); err != nil {
		return "", err
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	return filepath.Clean(filepath.Join(projectRoot, path)), nil
}
