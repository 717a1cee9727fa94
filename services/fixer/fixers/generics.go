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
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpast"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpstan"
)

// genericsMaxAttempts caps the re-analysis loop per diagnostic.
const genericsMaxAttempts = 5

// genericsAttemptTimeout bounds each verification run.
const genericsAttemptTimeout = 120 * time.Second

var genericsRe = regexp.MustCompile(`(extends|implements) generic (?:class|interface) ([\w\\]+)[^:]*its types: (.+)$`)

// MissingGenerics adds an @extends/@implements docblock with template
// arguments, discovering a working combination by re-analyzing a temp
// copy of the file.
type MissingGenerics struct {
	deps Deps
}

func NewMissingGenerics(deps Deps) *MissingGenerics {
	return &MissingGenerics{deps: deps}
}

func (f *MissingGenerics) Name() string { return "generic_type" }

func (f *MissingGenerics) Kinds() []string { return []string{KindGenericType} }

func (f *MissingGenerics) CanFix(d phpstan.Diagnostic) bool {
	return genericsRe.MatchString(d.Message)
}

func (f *MissingGenerics) Fix(source string, d phpstan.Diagnostic) (string, error) {
	m := genericsRe.FindStringSubmatch(d.Message)
	if m == nil {
		return source, nil
	}
	relation, base, templates := m[1], m[2], m[3]
	arity := len(strings.Split(templates, ","))

	file := parseModel(source)
	if file == nil {
		return source, nil
	}
	class := file.ClassAt(d.Line)
	if class == nil {
		return source, nil
	}
	if docblockHasTag(classDocComment(source, class), "@"+relation, "") {
		return source, nil
	}

	for _, args := range templateCandidates(arity) {
		candidate, ok := f.withDocblock(source, class, relation, base, args)
		if !ok {
			continue
		}
		verified, err := f.verify(candidate, d)
		if err != nil {
			return source, &InferenceError{Member: class.Name, Err: err}
		}
		if verified {
			return candidate, nil
		}
	}

	return source, &InferenceError{Member: class.Name, Err: ErrNoInference}
}

// templateCandidates lists the argument combinations to try, widest
// last. Capped at genericsMaxAttempts.
func templateCandidates(arity int) []string {
	single := []string{"int", "string", "mixed"}
	var out []string
	switch arity {
	case 1:
		out = single
	case 2:
		out = []string{"int, mixed", "string, mixed", "int, string", "string, string", "mixed, mixed"}
	default:
		all := make([]string, arity)
		for i := range all {
			all[i] = "mixed"
		}
		out = []string{strings.Join(all, ", ")}
	}
	if len(out) > genericsMaxAttempts {
		out = out[:genericsMaxAttempts]
	}
	return out
}

// withDocblock produces source with the @extends/@implements tag above
// the class declaration.
func (f *MissingGenerics) withDocblock(source string, class *phpast.Class, relation, base, args string) (string, bool) {
	src := phpast.NewSource([]byte(source))
	tag := "@" + relation + " " + shortName(base) + "<" + args + ">"
	if !insertDocblock(src, class.StartLine, []string{tag}) {
		return "", false
	}
	return src.String(), true
}

// verify re-analyzes a temp copy of the candidate and reports whether the
// generics diagnostic is gone. Without a runner no candidate can be
// verified.
func (f *MissingGenerics) verify(candidate string, d phpstan.Diagnostic) (bool, error) {
	if f.deps.Runner == nil {
		return false, ErrNoInference
	}

	tmpDir, err := os.MkdirTemp("", "phpfixer-generics-*")
	if err != nil {
		return false, err
	}
	defer os.RemoveAll(tmpDir)

	name := filepath.Base(d.File)
	if name == "." || name == string(filepath.Separator) {
		name = "candidate.php"
	}
	tmpPath := filepath.Join(tmpDir, name)
	if err := os.WriteFile(tmpPath, []byte(candidate), 0644); err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), genericsAttemptTimeout)
	defer cancel()

	raw, err := f.deps.Runner.Analyze(ctx, phpstan.RunOptions{Paths: []string{tmpPath}})
	if err != nil {
		return false, err
	}
	diags, err := phpstan.Parse(raw.Stdout, raw.Stderr)
	if err != nil {
		// No parseable output proves nothing; treat as unverified.
		return false, nil
	}

	for _, diag := range diags {
		if genericsRe.MatchString(diag.Message) {
			return false, nil
		}
	}
	return true, nil
}

// classDocComment pulls the docblock directly above a class declaration.
func classDocComment(source string, class *phpast.Class) string {
	lines := strings.Split(source, "\n")
	if class.StartLine-2 < 0 || class.StartLine-2 >= len(lines) {
		return ""
	}
	if strings.HasSuffix(strings.TrimSpace(lines[class.StartLine-2]), "*/") {
		var doc []string
		for n := class.StartLine - 2; n >= 0; n-- {
			doc = append([]string{lines[n]}, doc...)
			if strings.Contains(lines[n], "/**") {
				return strings.Join(doc, "\n")
			}
		}
	}
	return ""
}
