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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultPHPVersion is assumed when composer.json carries no usable PHP
// constraint.
const DefaultPHPVersion = "8.3"

// Info describes a located PHP project.
//
// Thread Safety: Immutable after Discover returns.
type Info struct {
	// Root is the absolute project root directory.
	Root string

	// ComposerPath is the absolute path of composer.json, "" when the root
	// was located via .git only.
	ComposerPath string

	// PHPVersion is the normalized minimum PHP version ("8.1"), derived
	// from the composer require constraint or DefaultPHPVersion.
	PHPVersion string

	// Autoload maps PSR-4 namespace prefixes to source directories.
	Autoload map[string]string
}

// composerFile matches the subset of composer.json the fixer reads.
type composerFile struct {
	Require  map[string]string `json:"require"`
	Autoload struct {
		PSR4 map[string]string `json:"psr-4"`
	} `json:"autoload"`
}

// FindRoot walks up from start looking for a project marker.
//
// Description:
//
//	composer.json marks a PHP project root; a .git directory is accepted
//	as a fallback so the fixer still works in projects that vendor their
//	dependencies elsewhere. When no marker exists anywhere on the path
//	upward, the starting directory itself is the root: a bare directory
//	of PHP files is a valid fixer target.
//
// Inputs:
//   - start: File or directory to begin from. A file starts from its
//     directory.
//
// Outputs:
//   - string: Absolute root directory
//   - error: ErrInvalidRoot when start cannot be resolved
func FindRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}

	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		abs = filepath.Dir(abs)
	}

	dir := abs
	for {
		if _, err := os.Stat(filepath.Join(dir, "composer.json")); err == nil {
			return dir, nil
		}
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// No marker anywhere above: the starting directory is the
			// project root.
			return abs, nil
		}
		dir = parent
	}
}

// Discover locates the project root for start and loads its composer
// metadata.
//
// Description:
//
//	Combines FindRoot with composer.json parsing. A missing or malformed
//	composer.json is not an error; the Info falls back to
//	DefaultPHPVersion with no autoload map.
//
// Inputs:
//   - start: File or directory inside the project
//
// Outputs:
//   - *Info: Located project, never nil on success
//   - error: ErrInvalidRoot when start cannot be resolved
func Discover(start string) (*Info, error) {
	root, err := FindRoot(start)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Root:       root,
		PHPVersion: DefaultPHPVersion,
	}

	composerPath := filepath.Join(root, "composer.json")
	data, err := os.ReadFile(composerPath)
	if err != nil {
		return info, nil
	}
	info.ComposerPath = composerPath

	var composer composerFile
	if err := json.Unmarshal(data, &composer); err != nil {
		// A broken composer.json should not stop the fixer.
		return info, nil
	}

	if constraint, ok := composer.Require["php"]; ok {
		if v := VersionFromConstraint(constraint); v != "" {
			info.PHPVersion = v
		}
	}
	if len(composer.Autoload.PSR4) > 0 {
		info.Autoload = composer.Autoload.PSR4
	}

	return info, nil
}

// VersionFromConstraint extracts the minimum version from a composer PHP
// constraint.
//
// "^8.1", "~8.1.3", ">=8.1 <8.4", and "8.1.*" all yield "8.1". Returns ""
// for constraints with no leading version number.
func VersionFromConstraint(constraint string) string {
	// First alternative of an || constraint is the floor.
	if idx := strings.Index(constraint, "||"); idx >= 0 {
		constraint = constraint[:idx]
	}
	// First clause of a space-separated range.
	constraint = strings.TrimSpace(constraint)
	if idx := strings.IndexAny(constraint, " ,"); idx >= 0 {
		constraint = constraint[:idx]
	}

	constraint = strings.TrimLeft(constraint, "^~>=<v")

	var major, minor string
	parts := strings.Split(constraint, ".")
	if len(parts) == 0 || !isDigits(parts[0]) {
		return ""
	}
	major = parts[0]

	if len(parts) > 1 && isDigits(parts[1]) {
		minor = parts[1]
	} else {
		minor = "0"
	}

	return major + "." + minor
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
