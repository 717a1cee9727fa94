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
	"errors"
	"testing"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpstan"
)

// scriptedRunner replays canned analyzer outputs, one per call.
type scriptedRunner struct {
	outputs []string
	calls   int
}

func (r *scriptedRunner) Analyze(ctx context.Context, opts phpstan.RunOptions) (*phpstan.RawOutput, error) {
	out := r.outputs[len(r.outputs)-1]
	if r.calls < len(r.outputs) {
		out = r.outputs[r.calls]
	}
	r.calls++
	return &phpstan.RawOutput{Stdout: []byte(out)}, nil
}

const cleanReport = `{"totals":{"errors":0,"file_errors":0},"files":{},"errors":[]}`

func genericsReport(message string) string {
	return `{"totals":{"errors":0,"file_errors":1},"files":{"list.php":{"errors":1,"messages":[{"message":"` + message + `","line":2,"ignorable":true}]}},"errors":[]}`
}

const genericsSource = `<?php
class ItemList extends Collection {
}
`

var genericsDiag = phpstan.Diagnostic{
	File:    "list.php",
	Line:    2,
	Message: "Class ItemList extends generic class Collection but does not specify its types: TKey, TValue",
}

func TestMissingGenerics_FirstCandidateVerifies(t *testing.T) {
	runner := &scriptedRunner{outputs: []string{cleanReport}}
	f := NewMissingGenerics(Deps{Runner: runner})

	got := mustFix(t, f, genericsSource, genericsDiag)
	wantContains(t, got, "* @extends Collection<int, mixed>")
	if runner.calls != 1 {
		t.Errorf("runner calls = %d, want 1", runner.calls)
	}
}

func TestMissingGenerics_RetriesUntilClean(t *testing.T) {
	still := genericsReport("Class ItemList extends generic class Collection but does not specify its types: TKey, TValue")
	runner := &scriptedRunner{outputs: []string{still, still, cleanReport}}
	f := NewMissingGenerics(Deps{Runner: runner})

	got := mustFix(t, f, genericsSource, genericsDiag)
	wantContains(t, got, "* @extends Collection<int, string>")
	if runner.calls != 3 {
		t.Errorf("runner calls = %d, want 3", runner.calls)
	}
}

func TestMissingGenerics_NoCandidateVerifies(t *testing.T) {
	still := genericsReport("Class ItemList extends generic class Collection but does not specify its types: TKey, TValue")
	runner := &scriptedRunner{outputs: []string{still}}
	f := NewMissingGenerics(Deps{Runner: runner})

	_, err := f.Fix(genericsSource, genericsDiag)
	if !errors.Is(err, ErrNoInference) {
		t.Errorf("err = %v, want ErrNoInference", err)
	}
	if runner.calls != 5 {
		t.Errorf("runner calls = %d, want 5", runner.calls)
	}
}

func TestMissingGenerics_NoRunner(t *testing.T) {
	f := NewMissingGenerics(Deps{})
	_, err := f.Fix(genericsSource, genericsDiag)
	if !errors.Is(err, ErrNoInference) {
		t.Errorf("err = %v, want ErrNoInference", err)
	}
}

func TestMissingGenerics_ExistingTagIdempotent(t *testing.T) {
	source := `<?php
/**
 * @extends Collection<int, mixed>
 */
class ItemList extends Collection {
}
`
	f := NewMissingGenerics(Deps{})
	d := genericsDiag
	d.Line = 5
	mustNotChange(t, f, source, d)
}
