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

// StrictComparison upgrades loose comparisons on the diagnostic line to
// their strict forms and rewrites empty() guards.
type StrictComparison struct{}

func NewStrictComparison() *StrictComparison {
	return &StrictComparison{}
}

func (f *StrictComparison) Name() string { return "strict_comparison" }

func (f *StrictComparison) Kinds() []string { return []string{KindStrictComparison} }

func (f *StrictComparison) CanFix(d phpstan.Diagnostic) bool {
	return strings.Contains(d.Message, `Loose comparison via "=="`) ||
		strings.Contains(d.Message, `Loose comparison via "!="`) ||
		strings.Contains(d.Message, "Construct empty() is not allowed")
}

func (f *StrictComparison) Fix(source string, d phpstan.Diagnostic) (string, error) {
	src := phpast.NewSource([]byte(source))
	text, err := src.Line(d.Line)
	if err != nil {
		return source, nil
	}

	rewritten := text
	if strings.Contains(d.Message, "empty()") {
		rewritten = rewriteEmptyGuards(rewritten)
	} else {
		rewritten = strictenComparisons(rewritten)
	}
	if rewritten == text {
		return source, nil
	}

	src.SetLine(d.Line, rewritten)
	return src.String(), nil
}

// strictenComparisons replaces == with === and != with !== outside of
// string literals, leaving already-strict operators and <= >= => alone.
func strictenComparisons(text string) string {
	var out strings.Builder
	var quote byte

	for i := 0; i < len(text); i++ {
		c := text[i]

		if quote != 0 {
			out.WriteByte(c)
			if c == '\\' && i+1 < len(text) {
				i++
				out.WriteByte(text[i])
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '\'' || c == '"' {
			quote = c
			out.WriteByte(c)
			continue
		}

		if c == '=' && i+1 < len(text) && text[i+1] == '=' {
			prev := byte(0)
			if i > 0 {
				prev = text[i-1]
			}
			next := byte(0)
			if i+2 < len(text) {
				next = text[i+2]
			}
			if prev != '=' && prev != '!' && prev != '<' && prev != '>' && next != '=' {
				out.WriteString("===")
				i++
				continue
			}
		}
		if c == '!' && i+1 < len(text) && text[i+1] == '=' {
			next := byte(0)
			if i+2 < len(text) {
				next = text[i+2]
			}
			if next != '=' {
				out.WriteString("!==")
				i++
				continue
			}
		}

		out.WriteByte(c)
	}
	return out.String()
}

var (
	notEmptyRe = regexp.MustCompile(`!\s*empty\(\s*([^()]+?)\s*\)`)
	emptyRe    = regexp.MustCompile(`empty\(\s*([^()]+?)\s*\)`)
)

// rewriteEmptyGuards replaces empty() constructs with explicit null
// comparisons. The negated form must go first or its inner empty() gets
// rewritten out from under it.
func rewriteEmptyGuards(text string) string {
	text = notEmptyRe.ReplaceAllString(text, "$1 !== null")
	text = emptyRe.ReplaceAllString(text, "$1 === null")
	return text
}

var (
	issetTernaryRe = regexp.MustCompile(`isset\(\s*([^()]+?)\s*\)\s*\?\s*([^:?]+?)\s*:\s*`)
	shortTernaryRe = regexp.MustCompile(`\?\s*:`)
)

// NullCoalescing rewrites isset-ternaries and short ternaries on the
// diagnostic line into the null coalescing operator.
type NullCoalescing struct{}

func NewNullCoalescing() *NullCoalescing {
	return &NullCoalescing{}
}

func (f *NullCoalescing) Name() string { return "null_coalescing" }

func (f *NullCoalescing) Kinds() []string { return []string{KindNullCoalescing} }

func (f *NullCoalescing) CanFix(d phpstan.Diagnostic) bool {
	return strings.Contains(d.Message, "Short ternary operator is not allowed") ||
		strings.Contains(d.Message, "null coalescing operator")
}

func (f *NullCoalescing) Fix(source string, d phpstan.Diagnostic) (string, error) {
	src := phpast.NewSource([]byte(source))
	text, err := src.Line(d.Line)
	if err != nil {
		return source, nil
	}

	rewritten := text
	if m := issetTernaryRe.FindStringSubmatch(rewritten); m != nil {
		// isset(X) ? X : Y collapses only when both sides agree.
		if strings.TrimSpace(m[1]) == strings.TrimSpace(m[2]) {
			rewritten = issetTernaryRe.ReplaceAllString(rewritten, "$1 ?? ")
		}
	}
	rewritten = shortTernaryRe.ReplaceAllString(rewritten, "??")

	if rewritten == text {
		return source, nil
	}
	src.SetLine(d.Line, rewritten)
	return src.String(), nil
}
