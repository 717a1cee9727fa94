// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package transaction applies diagnostic fixes to a single file as an
// atomic unit: either the accumulated result of all successful fixes is
// written, or the file on disk stays untouched.
package transaction

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpstan"
)

// DefaultBackupSuffix is appended to the original file name when Commit
// is asked to keep a pre-fix copy.
const DefaultBackupSuffix = ".fixer-bak"

// State is the applicator lifecycle position.
type State string

const (
	StateIdle       State = "idle"
	StateOpen       State = "open"
	StateCommitted  State = "committed"
	StateRolledBack State = "rolled_back"
)

// Fixer is the minimal contract the applicator needs from a fix
// implementation. The full registry contract lives in the fixers package.
type Fixer interface {
	// Name identifies the fixer in logs and reports.
	Name() string

	// Fix rewrites source to resolve the diagnostic. It must return the
	// complete new file content, or an error when the diagnostic cannot
	// be resolved.
	Fix(source string, diag phpstan.Diagnostic) (string, error)
}

// Tx is one open file transaction.
type Tx struct {
	// ID is a unique identifier for logs and history records.
	ID string

	// Path is the file under transaction.
	Path string

	// StartedAt is when Begin snapshotted the file.
	StartedAt time.Time

	// Applied counts fixes merged into the working content.
	Applied int

	// Failed counts fixer applications that errored or panicked.
	Failed int

	original string
	current  string
	mtime    time.Time
}

// Changed reports whether the working content differs from the snapshot.
func (t *Tx) Changed() bool {
	return t.current != t.original
}

// Result describes a completed transaction.
type Result struct {
	// TxID is the transaction identifier.
	TxID string

	// Path is the file the transaction covered.
	Path string

	// Applied and Failed are the per-fix counters at close.
	Applied int
	Failed  int

	// Written is true when Commit wrote the file.
	Written bool

	// BackupPath is the pre-fix copy location, empty when no backup was
	// written.
	BackupPath string

	// Duration is the time from Begin to close.
	Duration time.Duration
}

// Applicator runs fix transactions over one file at a time.
//
// # Description
//
// Begin snapshots a file into memory. Apply runs fixers against the
// in-memory content only, so a failing or panicking fixer can never leave
// a half-rewritten file on disk. Commit writes the accumulated content
// atomically via a temp file and rename; Rollback discards it.
//
// # Thread Safety
//
// Not safe for concurrent use. The fix pipeline is single-threaded and
// holds one applicator per run.
//
// # Nested Transactions
//
// Not supported. Begin while a transaction is open returns
// ErrTransactionActive.
type Applicator struct {
	backupSuffix string
	state        State
	tx           *Tx
	logger       *slog.Logger
}

// Option configures an Applicator.
type Option func(*Applicator)

// WithBackupSuffix overrides the backup file suffix.
func WithBackupSuffix(suffix string) Option {
	return func(a *Applicator) {
		if suffix != "" {
			a.backupSuffix = suffix
		}
	}
}

// NewApplicator creates an idle applicator.
func NewApplicator(opts ...Option) *Applicator {
	a := &Applicator{
		backupSuffix: DefaultBackupSuffix,
		state:        StateIdle,
		logger:       slog.Default().With("component", "transaction.Applicator"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// State returns the current lifecycle position.
func (a *Applicator) State() State {
	return a.state
}

// Begin opens a transaction on path.
//
// # Description
//
// Reads the file into memory and records its modification time. All
// subsequent Apply calls operate on the in-memory copy.
//
// # Outputs
//
//   - *Tx: the open transaction.
//   - error: ErrTransactionActive when one is already open, or the read
//     error.
func (a *Applicator) Begin(path string) (*Tx, error) {
	if a.state == StateOpen {
		return nil, ErrTransactionActive
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("reading file info: %w", err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	content := string(data)
	a.tx = &Tx{
		ID:        uuid.New().String(),
		Path:      abs,
		StartedAt: time.Now(),
		original:  content,
		current:   content,
		mtime:     info.ModTime(),
	}
	a.state = StateOpen

	a.logger.Debug("transaction started",
		"tx_id", a.tx.ID,
		"path", abs,
		"bytes", len(data))
	return a.tx, nil
}

// Apply runs one fixer against the transaction's working content.
//
// # Description
//
// On success the fixer's output becomes the new working content. On error
// or panic the working content is unchanged and the transaction remains
// open, so later fixes for the same file still apply. Returns false with
// a nil error when the fixer made no change.
//
// # Outputs
//
//   - bool: true when the working content changed.
//   - error: ErrNoTransaction, or a *FixError wrapping the failure.
func (a *Applicator) Apply(ctx context.Context, fixer Fixer, diag phpstan.Diagnostic) (changed bool, err error) {
	if a.state != StateOpen {
		return false, ErrNoTransaction
	}

	_, span := tracer.Start(ctx, "transaction.Apply")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			a.tx.Failed++
			err = &FixError{
				Fixer: fixer.Name(),
				Path:  a.tx.Path,
				Line:  diag.Line,
				Err:   fmt.Errorf("panic: %v", r),
			}
			a.logger.Error("fixer panicked",
				"tx_id", a.tx.ID,
				"fixer", fixer.Name(),
				"line", diag.Line,
				"panic", r)
		}
		recordApply(ctx, fixer.Name(), err == nil)
	}()

	fixed, fixErr := fixer.Fix(a.tx.current, diag)
	if fixErr != nil {
		a.tx.Failed++
		return false, &FixError{
			Fixer: fixer.Name(),
			Path:  a.tx.Path,
			Line:  diag.Line,
			Err:   fixErr,
		}
	}
	if fixed == "" && a.tx.current != "" {
		a.tx.Failed++
		return false, &FixError{
			Fixer: fixer.Name(),
			Path:  a.tx.Path,
			Line:  diag.Line,
			Err:   ErrEmptyResult,
		}
	}
	if fixed == a.tx.current {
		return false, nil
	}

	a.tx.current = fixed
	a.tx.Applied++
	a.logger.Debug("fix applied",
		"tx_id", a.tx.ID,
		"fixer", fixer.Name(),
		"line", diag.Line)
	return true, nil
}

// Content returns the transaction's working content. Used for dry-run
// diff generation before Rollback.
func (a *Applicator) Content() (string, error) {
	if a.state != StateOpen {
		return "", ErrNoTransaction
	}
	return a.tx.current, nil
}

// Original returns the snapshot taken at Begin.
func (a *Applicator) Original() (string, error) {
	if a.state != StateOpen {
		return "", ErrNoTransaction
	}
	return a.tx.original, nil
}

// Commit closes the transaction and writes the result.
//
// # Description
//
// When no fix changed the content, nothing is written and the file on
// disk stays byte-identical. Otherwise the working content is written via
// a temp file and atomic rename, optionally preserving the original as a
// sibling backup. Commit refuses to write when the file on disk changed
// after Begin.
//
// # Inputs
//
//   - backup: write the pre-fix content to Path + backup suffix first.
//
// # Outputs
//
//   - *Result: counters and write outcome.
//   - error: ErrNoTransaction, ErrSourceChanged, or a *CommitError.
func (a *Applicator) Commit(ctx context.Context, backup bool) (*Result, error) {
	if a.state != StateOpen {
		return nil, ErrNoTransaction
	}

	_, span := tracer.Start(ctx, "transaction.Commit")
	defer span.End()

	tx := a.tx
	result := &Result{
		TxID:    tx.ID,
		Path:    tx.Path,
		Applied: tx.Applied,
		Failed:  tx.Failed,
	}

	if !tx.Changed() {
		a.close(StateCommitted)
		result.Duration = time.Since(tx.StartedAt)
		recordCommit(ctx, false, true)
		a.logger.Debug("transaction committed without changes", "tx_id", tx.ID)
		return result, nil
	}

	// Refuse to clobber an edit made outside the transaction.
	info, err := os.Stat(tx.Path)
	if err != nil {
		a.close(StateRolledBack)
		recordCommit(ctx, true, false)
		return nil, &CommitError{Path: tx.Path, Err: err}
	}
	if !info.ModTime().Equal(tx.mtime) {
		a.close(StateRolledBack)
		recordCommit(ctx, true, false)
		a.logger.Warn("source file changed during transaction, rolling back",
			"tx_id", tx.ID,
			"path", tx.Path)
		return nil, ErrSourceChanged
	}

	if backup {
		backupPath := tx.Path + a.backupSuffix
		if err := os.WriteFile(backupPath, []byte(tx.original), info.Mode().Perm()); err != nil {
			a.close(StateRolledBack)
			recordCommit(ctx, true, false)
			return nil, &CommitError{Path: backupPath, Err: err}
		}
		result.BackupPath = backupPath
	}

	if err := a.writeAtomic(tx.Path, []byte(tx.current), info.Mode().Perm()); err != nil {
		a.close(StateRolledBack)
		recordCommit(ctx, true, false)
		return nil, &CommitError{Path: tx.Path, Err: err}
	}

	a.close(StateCommitted)
	result.Written = true
	result.Duration = time.Since(tx.StartedAt)
	recordCommit(ctx, true, true)

	a.logger.Info("transaction committed",
		"tx_id", tx.ID,
		"path", tx.Path,
		"applied", result.Applied,
		"failed", result.Failed,
		"backup", result.BackupPath != "")
	return result, nil
}

// Rollback discards the transaction. The file on disk was never touched,
// so discarding the in-memory content is the whole operation.
func (a *Applicator) Rollback(ctx context.Context, reason string) (*Result, error) {
	if a.state != StateOpen {
		return nil, ErrNoTransaction
	}

	tx := a.tx
	result := &Result{
		TxID:     tx.ID,
		Path:     tx.Path,
		Applied:  tx.Applied,
		Failed:   tx.Failed,
		Duration: time.Since(tx.StartedAt),
	}

	a.close(StateRolledBack)
	recordRollback(ctx, reason)
	a.logger.Info("transaction rolled back",
		"tx_id", tx.ID,
		"path", tx.Path,
		"reason", reason)
	return result, nil
}

func (a *Applicator) close(final State) {
	a.state = final
	a.tx = nil
}

// writeAtomic writes data next to path and renames it into place.
func (a *Applicator) writeAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tx-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}
