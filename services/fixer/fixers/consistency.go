// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fixers

import (
	"regexp"
	"strings"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpast"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpstan"
)

var varTagMismatchRe = regexp.MustCompile(`PHPDoc tag (@\w+)[^.]*with type ([\w|\\\[\]<>, ]+?) (?:is incompatible with|does not match) native type ([\w|\\?]+)`)

// TypeConsistency reconciles a phpdoc tag that disagrees with the native
// type, rewriting the tag to the analyzer's expectation.
type TypeConsistency struct{}

func NewTypeConsistency() *TypeConsistency {
	return &TypeConsistency{}
}

func (f *TypeConsistency) Name() string { return "type_consistency" }

func (f *TypeConsistency) Kinds() []string { return []string{KindTypeConsistency} }

func (f *TypeConsistency) CanFix(d phpstan.Diagnostic) bool {
	return varTagMismatchRe.MatchString(d.Message)
}

func (f *TypeConsistency) Fix(source string, d phpstan.Diagnostic) (string, error) {
	m := varTagMismatchRe.FindStringSubmatch(d.Message)
	if m == nil {
		return source, nil
	}
	tag, docType, nativeType := m[1], strings.TrimSpace(m[2]), m[3]

	src := phpast.NewSource([]byte(source))

	// The tag sits on the diagnostic line or within a few lines above it.
	for n := d.Line; n >= 1 && n >= d.Line-6; n-- {
		text, err := src.Line(n)
		if err != nil {
			continue
		}
		if !strings.Contains(text, tag) || !strings.Contains(text, docType) {
			continue
		}
		src.SetLine(n, strings.Replace(text, docType, nativeType, 1))
		return src.String(), nil
	}
	return source, nil
}

// StrictTypesDeclare inserts declare(strict_types=1) after the opening
// tag.
type StrictTypesDeclare struct{}

func NewStrictTypesDeclare() *StrictTypesDeclare {
	return &StrictTypesDeclare{}
}

func (f *StrictTypesDeclare) Name() string { return "strict_types" }

func (f *StrictTypesDeclare) Kinds() []string { return []string{KindStrictTypes} }

func (f *StrictTypesDeclare) CanFix(d phpstan.Diagnostic) bool {
	return strings.Contains(d.Message, "strict_types")
}

func (f *StrictTypesDeclare) Fix(source string, d phpstan.Diagnostic) (string, error) {
	file := parseModel(source)
	if file == nil {
		return source, nil
	}
	if file.StrictTypes || file.OpenTagLine == 0 {
		return source, nil
	}

	src := phpast.NewSource([]byte(source))
	if err := src.InsertAfter(file.OpenTagLine, "", "declare(strict_types=1);"); err != nil {
		return source, nil
	}
	return src.String(), nil
}
