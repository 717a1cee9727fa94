// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package phpstan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	// DefaultTimeout bounds a single analyzer invocation.
	DefaultTimeout = 300 * time.Second

	// DefaultLevel is the PHPStan rule level used when the caller does not
	// choose one.
	DefaultLevel = 6

	// vendorBinary is the composer-installed analyzer location relative to
	// the project root.
	vendorBinary = "vendor/bin/phpstan"
)

// Runner executes the PHPStan analyzer and captures its report.
//
// Description:
//
//	The runner shells out to the phpstan binary with JSON output forced on
//	and progress output forced off. PHPStan exits non-zero whenever it
//	finds errors, so a non-zero exit with a report on stdout is a
//	successful run; only a non-zero exit with an empty stdout and a
//	populated stderr is treated as a process failure.
//
// Thread Safety: Safe for concurrent use; the runner holds no mutable state.
type Runner struct {
	binary     string
	workingDir string
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithBinary overrides analyzer binary discovery with an explicit path.
func WithBinary(path string) Option {
	return func(r *Runner) {
		r.binary = path
	}
}

// WithTimeout sets the per-invocation time limit.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a Runner rooted at workingDir.
//
// # Description
//
// Locates the analyzer binary unless one was supplied via WithBinary: the
// composer vendor directory under workingDir is preferred, then PATH.
//
// # Inputs
//
//   - workingDir: project directory the analyzer runs in
//   - opts: functional options
//
// # Outputs
//
//   - *Runner: configured runner
//   - error: ErrAnalyzerNotFound when no binary could be located
func NewRunner(workingDir string, opts ...Option) (*Runner, error) {
	r := &Runner{
		workingDir: workingDir,
		timeout:    DefaultTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.binary == "" {
		binary, err := locateBinary(workingDir)
		if err != nil {
			return nil, err
		}
		r.binary = binary
	}

	return r, nil
}

// locateBinary finds the phpstan executable for a project directory.
func locateBinary(workingDir string) (string, error) {
	vendored := filepath.Join(workingDir, filepath.FromSlash(vendorBinary))
	if _, err := exec.LookPath(vendored); err == nil {
		return vendored, nil
	}
	if path, err := exec.LookPath("phpstan"); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("%w: checked %s and PATH", ErrAnalyzerNotFound, vendored)
}

// Binary returns the analyzer executable path the runner resolved.
func (r *Runner) Binary() string {
	return r.binary
}

// Analyze runs the analyzer over the requested paths.
//
// # Description
//
// Builds the analyse command line, executes it with a timeout, and returns
// the captured streams. The caller parses the report via Parse; splitting
// execution from parsing lets the orchestrator distinguish "analyzer would
// not run" (fatal) from "analyzer ran but produced garbage" (recoverable).
//
// # Inputs
//
//   - ctx: context for cancellation
//   - opts: paths, level, and extra options
//
// # Outputs
//
//   - *RawOutput: captured streams, exit code, and duration
//   - error: ErrNoPaths, ErrAnalyzerTimeout, or an AnalyzerError on
//     process failure
func (r *Runner) Analyze(ctx context.Context, opts RunOptions) (*RawOutput, error) {
	ctx, span := tracer.Start(ctx, "phpstan.Analyze")
	defer span.End()

	if len(opts.Paths) == 0 {
		span.SetStatus(codes.Error, "no paths")
		return nil, ErrNoPaths
	}

	args := buildArgs(opts)
	span.SetAttributes(
		attribute.Int("phpstan.level", opts.Level),
		attribute.Int("phpstan.path_count", len(opts.Paths)),
	)

	r.logger.Debug("running phpstan",
		"binary", r.binary,
		"args", strings.Join(args, " "),
		"working_dir", r.workingDir)

	execCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(execCtx, r.binary, args...)
	cmd.Dir = r.workingDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start)

	out := &RawOutput{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: cmd.ProcessState.ExitCode(),
		Duration: duration,
	}

	if execCtx.Err() == context.DeadlineExceeded {
		span.SetStatus(codes.Error, "timeout")
		recordRunMetrics(ctx, duration, out.ExitCode, false)
		return nil, NewAnalyzerError(r.binary, r.workingDir, ErrAnalyzerTimeout).
			WithOutput(stderr.String())
	}

	// PHPStan exits 1 when it found errors. Treat that as success as long
	// as a report landed on stdout. A failure with nothing on stdout is a
	// process failure — including start errors, which leave both streams
	// empty.
	if err != nil && stdout.Len() == 0 {
		span.SetStatus(codes.Error, "execution failed")
		recordRunMetrics(ctx, duration, out.ExitCode, false)
		return nil, NewAnalyzerError(r.binary, r.workingDir,
			fmt.Errorf("%w: %v", ErrAnalyzerFailed, err)).
			WithOutput(stderr.String())
	}

	r.logger.Debug("phpstan finished",
		"exit_code", out.ExitCode,
		"duration_ms", duration.Milliseconds(),
		"stdout_bytes", stdout.Len())

	recordRunMetrics(ctx, duration, out.ExitCode, true)
	return out, nil
}

// Version reports the analyzer's version string.
func (r *Runner) Version(ctx context.Context) (string, error) {
	execCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(execCtx, r.binary, "--version")
	cmd.Dir = r.workingDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", NewAnalyzerError(r.binary, r.workingDir, err).
			WithOutput(stderr.String())
	}
	return strings.TrimSpace(stdout.String()), nil
}

// buildArgs renders the analyse command line for a RunOptions.
//
// Extra options are emitted in sorted key order so repeated runs produce
// identical command lines.
func buildArgs(opts RunOptions) []string {
	args := []string{
		"analyse",
		"--error-format=json",
		"--no-progress",
		fmt.Sprintf("--level=%d", opts.Level),
	}

	if len(opts.Extra) > 0 {
		keys := make([]string, 0, len(opts.Extra))
		for k := range opts.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := opts.Extra[k]
			if v == "" {
				args = append(args, "--"+k)
			} else {
				args = append(args, fmt.Sprintf("--%s=%s", k, v))
			}
		}
	}

	args = append(args, opts.Paths...)
	return args
}

// IsFatal reports whether an analyzer error means the pipeline cannot
// continue. Launch failures and timeouts are fatal; a malformed report is
// not, because the orchestrator can still roll back and report.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAnalyzerNotFound) ||
		errors.Is(err, ErrAnalyzerTimeout) ||
		errors.Is(err, ErrAnalyzerFailed) ||
		errors.Is(err, ErrNoPaths)
}
