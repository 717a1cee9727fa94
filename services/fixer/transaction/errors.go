// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transaction

import (
	"errors"
	"fmt"
)

var (
	// ErrTransactionActive is returned by Begin when a transaction is
	// already open. Nested transactions are not supported.
	ErrTransactionActive = errors.New("transaction already active")

	// ErrNoTransaction is returned by Apply, Commit, and Rollback when no
	// transaction is open.
	ErrNoTransaction = errors.New("no active transaction")

	// ErrEmptyResult is returned by Apply when a fixer produces empty
	// output for a non-empty input. An empty rewrite is never a fix.
	ErrEmptyResult = errors.New("fixer produced empty output")

	// ErrSourceChanged is returned by Commit when the file on disk was
	// modified after Begin snapshotted it. Committing would clobber the
	// external edit, so the transaction is rolled back instead.
	ErrSourceChanged = errors.New("source file changed since transaction began")
)

// FixError wraps a failure from a single fixer application.
//
// The transaction stays open after a FixError: one failing fixer must not
// discard changes already applied by earlier fixers in the same file.
type FixError struct {
	Fixer string
	Path  string
	Line  int
	Err   error
}

func (e *FixError) Error() string {
	return fmt.Sprintf("fixer %q failed at %s:%d: %v", e.Fixer, e.Path, e.Line, e.Err)
}

func (e *FixError) Unwrap() error {
	return e.Err
}

// CommitError wraps a failure while writing the transaction result to disk.
type CommitError struct {
	Path string
	Err  error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("committing %s: %v", e.Path, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}
