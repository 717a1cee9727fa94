// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fixer orchestrates the fix pipeline: analyze, resolve fixers,
// apply them under per-file transactions, and converge over multiple
// passes in smart mode.
package fixer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/analyzer"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/cache"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/fixers"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/lock"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpstan"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/transaction"
)

// DefaultMaxPasses caps the smart-mode convergence loop.
const DefaultMaxPasses = 3

// AnalyzeRunner runs the analyzer and captures its output. *phpstan.Runner
// satisfies it; tests substitute a fake.
type AnalyzeRunner interface {
	Analyze(ctx context.Context, opts phpstan.RunOptions) (*phpstan.RawOutput, error)
}

// Options configures one run.
type Options struct {
	// Paths are the files or directories to fix. Must not be empty.
	Paths []string

	// Level is the analyzer rule level.
	Level int

	// Smart enables multi-pass convergence with cache-backed inference.
	Smart bool

	// MaxPasses overrides the smart-mode pass cap; zero means
	// DefaultMaxPasses. Ignored when Smart is false.
	MaxPasses int

	// DryRun applies fixes in memory and reports diffs without writing.
	DryRun bool

	// Backup writes a pre-fix copy of each touched file.
	Backup bool

	// Legacy disables the per-file transaction: the file is rewritten
	// after every successful fix, so a later failure cannot roll back
	// earlier writes. Ignored in dry-run mode.
	Legacy bool

	// Extra is passed through to the analyzer command line.
	Extra map[string]string
}

// Service drives the fix pipeline.
//
// # Description
//
// One Run analyzes the target paths, groups the diagnostics by file, and
// fixes each file inside its own transaction. Smart mode repeats the
// analyze-fix cycle until the project is clean, the diagnostic count stops
// falling, or the pass cap is hit — whichever comes first.
//
// # Thread Safety
//
// A Service runs one fix pipeline at a time. Callers wanting concurrency
// control serialize Run themselves (the HTTP server holds a single-flight
// guard).
type Service struct {
	runner   AnalyzeRunner
	registry *fixers.Registry
	analyzer *analyzer.Analyzer
	types    *cache.TypeCache
	flows    *cache.FlowCache
	locks    *lock.FileLockManager
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithAnalyzer wires the smart type analyzer used to pre-populate caches
// before fixing each file.
func WithAnalyzer(a *analyzer.Analyzer) Option {
	return func(s *Service) { s.analyzer = a }
}

// WithCaches wires the type and flow caches persisted between passes.
func WithCaches(types *cache.TypeCache, flows *cache.FlowCache) Option {
	return func(s *Service) {
		s.types = types
		s.flows = flows
	}
}

// WithLockManager wires cross-process file locking.
func WithLockManager(m *lock.FileLockManager) Option {
	return func(s *Service) { s.locks = m }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a fix service over the given analyzer runner and
// fixer registry.
func NewService(runner AnalyzeRunner, registry *fixers.Registry, opts ...Option) *Service {
	s := &Service{
		runner:   runner,
		registry: registry,
		logger:   slog.Default().With("component", "fixer.Service"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the fix pipeline.
//
// # Description
//
// Analyzer invocation failures are fatal and surface as an AnalyzerError;
// everything downstream of a successful invocation — unparsable output,
// unresolvable diagnostics, fixer errors, transaction failures — is
// recorded in the result and never aborts the run.
//
// # Inputs
//
//   - ctx: cancels the analyzer subprocess and in-flight fixes.
//   - opts: run configuration; Paths must not be empty.
//
// # Outputs
//
//   - *FixResult: the full account of the run; non-nil whenever the
//     analyzer could be invoked at all.
//   - error: ErrNoPaths, ErrNoRunner, or an AnalyzerError.
func (s *Service) Run(ctx context.Context, opts Options) (*FixResult, error) {
	if s.runner == nil {
		return nil, ErrNoRunner
	}
	if len(opts.Paths) == 0 {
		return nil, ErrNoPaths
	}

	ctx, span := tracer.Start(ctx, "fixer.Run")
	defer span.End()

	start := s.now()
	result := newFixResult(start, opts.DryRun)
	logger := s.logger.With("run_id", result.RunID)

	maxPasses := 1
	if opts.Smart {
		maxPasses = opts.MaxPasses
		if maxPasses <= 0 {
			maxPasses = DefaultMaxPasses
		}
	}

	prev := -1
	for pass := 1; pass <= maxPasses; pass++ {
		diags, err := s.analyzeOnce(ctx, opts, pass)
		if err != nil {
			var aerr *AnalyzerError
			if errors.As(err, &aerr) {
				result.Duration = s.now().Sub(start)
				return result, err
			}
			// Output that decoded badly (or not at all) proves nothing
			// about the project; report honestly and stop.
			result.AnalysisFailed = true
			result.message("pass %d: no parseable analyzer output: %v", pass, err)
			break
		}

		result.PassCounts = append(result.PassCounts, len(diags))
		if len(diags) == 0 {
			if pass == 1 {
				result.message("nothing to fix")
			} else {
				result.message("all diagnostics resolved after %d pass(es)", pass-1)
			}
			break
		}
		if prev >= 0 && len(diags) >= prev {
			result.message("no further improvement after pass %d", pass-1)
			break
		}

		logger.Info("fix pass",
			"pass", pass,
			"diagnostics", len(diags),
			"smart", opts.Smart)

		result.Passes++
		s.fixPass(ctx, diags, opts, result)
		prev = len(diags)

		if opts.Smart {
			// Pass-boundary persist keeps earlier passes' learning on
			// disk even if a later pass is interrupted.
			s.persistCaches(ctx, result)
		}
	}

	// Teardown persist: write-through entries recorded by fixers land on
	// disk in every mode, not just at smart pass boundaries.
	s.persistCaches(ctx, result)

	result.Duration = s.now().Sub(start)
	recordRun(ctx, result.Duration, result.Passes)

	logger.Info("run complete",
		"fixed", len(result.Fixed),
		"unfixable", len(result.Unfixable),
		"passes", result.Passes,
		"duration", result.Duration)
	return result, nil
}

func (s *Service) analyzeOnce(ctx context.Context, opts Options, pass int) ([]phpstan.Diagnostic, error) {
	ctx, span := tracer.Start(ctx, "fixer.analyze")
	defer span.End()

	raw, err := s.runner.Analyze(ctx, phpstan.RunOptions{
		Paths: opts.Paths,
		Level: opts.Level,
		Extra: opts.Extra,
	})
	if err != nil {
		return nil, &AnalyzerError{Pass: pass, Err: err}
	}
	return phpstan.Parse(raw.Stdout, raw.Stderr)
}

// fixPass fixes one batch of diagnostics, file by file in path order.
func (s *Service) fixPass(ctx context.Context, diags []phpstan.Diagnostic, opts Options, result *FixResult) {
	ctx, span := tracer.Start(ctx, "fixer.pass")
	defer span.End()

	order, groups := groupByFile(diags)
	for _, path := range order {
		if path == "" {
			// Not-file-bound analyzer errors carry information but
			// nothing to fix.
			for _, d := range groups[path] {
				result.message("analyzer: %s", d.Message)
			}
			continue
		}
		s.fixFile(ctx, path, groups[path], opts, result)
	}
}

func (s *Service) fixFile(ctx context.Context, path string, batch []phpstan.Diagnostic, opts Options, result *FixResult) {
	ctx, span := tracer.Start(ctx, "fixer.file")
	defer span.End()

	if s.locks != nil {
		if err := s.locks.AcquireLock(path, "phpstan-fixer"); err != nil {
			result.message("%s: held by another process: %v", path, err)
			result.Unfixable = append(result.Unfixable, batch...)
			return
		}
		defer s.locks.ReleaseLock(path)
	}

	if opts.Legacy && !opts.DryRun {
		s.fixFileLegacy(ctx, path, batch, opts, result)
		return
	}

	app := transaction.NewApplicator()
	tx, err := app.Begin(path)
	if err != nil {
		result.message("%s: %v", path, err)
		result.Unfixable = append(result.Unfixable, batch...)
		return
	}

	// Feed the type analyzer before fixing so cache-aware fixers see
	// fresh evidence from this very file.
	if s.analyzer != nil && opts.Smart {
		if content, err := app.Original(); err == nil {
			if _, err := s.analyzer.Analyze(ctx, []byte(content), path); err != nil {
				s.logger.Debug("type analysis failed",
					"file", path,
					"error", err)
			}
		}
	}

	var fixed []phpstan.Diagnostic
	for _, d := range batch {
		f, ok := s.registry.Resolve(d)
		if !ok {
			result.Unfixable = append(result.Unfixable, d)
			recordFix(ctx, "", false)
			continue
		}

		changed, err := app.Apply(ctx, f, d)
		if err != nil {
			result.message("%s:%d: %s: %v", d.File, d.Line, f.Name(), err)
			result.Unfixable = append(result.Unfixable, d)
			recordFix(ctx, f.Name(), false)
			continue
		}
		if !changed {
			result.Unfixable = append(result.Unfixable, d)
			recordFix(ctx, f.Name(), false)
			continue
		}
		fixed = append(fixed, d)
		recordFix(ctx, f.Name(), true)
	}

	if opts.DryRun {
		if tx.Changed() {
			before, berr := app.Original()
			after, aerr := app.Content()
			if berr == nil && aerr == nil {
				if diff, derr := unifiedDiff(path, before, after); derr == nil {
					if result.Diffs == nil {
						result.Diffs = make(map[string]string)
					}
					result.Diffs[path] = diff
				}
			}
		}
		if _, err := app.Rollback(ctx, "dry run"); err != nil {
			result.message("%s: rollback failed: %v", path, err)
		}
		result.Fixed = append(result.Fixed, fixed...)
		return
	}

	res, err := app.Commit(ctx, opts.Backup)
	if err != nil {
		// Commit closed the transaction itself; the whole batch is lost.
		result.message("%s: commit failed: %v", path, err)
		result.Unfixable = append(result.Unfixable, fixed...)
		return
	}
	if res.Written {
		result.TouchedFiles[path] = res.BackupPath
	}
	result.Fixed = append(result.Fixed, fixed...)
}

// fixFileLegacy applies the batch sequentially, writing the file after
// every successful fix.
func (s *Service) fixFileLegacy(ctx context.Context, path string, batch []phpstan.Diagnostic, opts Options, result *FixResult) {
	info, err := os.Stat(path)
	if err != nil {
		result.message("%s: %v", path, err)
		result.Unfixable = append(result.Unfixable, batch...)
		return
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		result.message("%s: %v", path, err)
		result.Unfixable = append(result.Unfixable, batch...)
		return
	}
	content := string(raw)

	if s.analyzer != nil && opts.Smart {
		if _, err := s.analyzer.Analyze(ctx, raw, path); err != nil {
			s.logger.Debug("type analysis failed",
				"file", path,
				"error", err)
		}
	}

	touched := false
	for _, d := range batch {
		f, ok := s.registry.Resolve(d)
		if !ok {
			result.Unfixable = append(result.Unfixable, d)
			recordFix(ctx, "", false)
			continue
		}

		out, err := f.Fix(content, d)
		if err != nil || out == content {
			if err != nil {
				result.message("%s:%d: %s: %v", d.File, d.Line, f.Name(), err)
			}
			result.Unfixable = append(result.Unfixable, d)
			recordFix(ctx, f.Name(), false)
			continue
		}

		if err := os.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
			result.message("%s: write failed: %v", path, err)
			result.Unfixable = append(result.Unfixable, d)
			recordFix(ctx, f.Name(), false)
			continue
		}
		content = out
		touched = true
		result.Fixed = append(result.Fixed, d)
		recordFix(ctx, f.Name(), true)
	}

	if touched {
		result.TouchedFiles[path] = ""
	}
}

func (s *Service) persistCaches(ctx context.Context, result *FixResult) {
	if s.types != nil {
		if err := s.types.Persist(ctx); err != nil {
			result.message("type cache persist: %v", err)
		}
	}
	if s.flows != nil {
		if err := s.flows.Persist(ctx); err != nil {
			result.message("flow cache persist: %v", err)
		}
	}
}

// groupByFile buckets diagnostics by path, preserving the parser's path
// order and each file's message order.
func groupByFile(diags []phpstan.Diagnostic) ([]string, map[string][]phpstan.Diagnostic) {
	groups := make(map[string][]phpstan.Diagnostic)
	var order []string
	for _, d := range diags {
		if _, seen := groups[d.File]; !seen {
			order = append(order, d.File)
		}
		groups[d.File] = append(groups[d.File], d)
	}
	return order, groups
}
