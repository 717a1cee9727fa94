// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/analyzer"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/cache"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/fixers"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/history"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/lock"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpstan"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/project"
)

// env bundles the wired-up fix pipeline for one project.
type env struct {
	info     *project.Info
	runner   *phpstan.Runner
	types    *cache.TypeCache
	flows    *cache.FlowCache
	analyzer *analyzer.Analyzer
	registry *fixers.Registry
	locks    *lock.FileLockManager
	service  *fixer.Service
}

// newEnv discovers the project around start and wires the pipeline.
// phpVersion overrides composer.json detection when non-empty; withLocks
// adds the cross-process file lock manager.
func newEnv(start, phpVersion string, withLocks bool) (*env, error) {
	if start == "" {
		start = "."
	}

	info, err := project.Discover(start)
	if err != nil {
		return nil, fmt.Errorf("locating project root: %w", err)
	}

	if phpVersion == "" {
		phpVersion = config.PHPVersion
	}
	if phpVersion == "" {
		phpVersion = info.PHPVersion
	}

	var runnerOpts []phpstan.Option
	if config.Analyzer.Binary != "" {
		runnerOpts = append(runnerOpts, phpstan.WithBinary(config.Analyzer.Binary))
	}
	if config.Analyzer.Timeout > 0 {
		runnerOpts = append(runnerOpts, phpstan.WithTimeout(config.Analyzer.Timeout))
	}
	runner, err := phpstan.NewRunner(info.Root, runnerOpts...)
	if err != nil {
		return nil, err
	}

	var cacheOpts []cache.Option
	if config.Cache.Capacity > 0 {
		cacheOpts = append(cacheOpts, cache.WithCapacity(config.Cache.Capacity))
	}
	types := cache.NewTypeCache(info.Root, cacheOpts...)
	flows := cache.NewFlowCache(info.Root, cacheOpts...)
	an := analyzer.NewAnalyzer(types, flows)

	registry := fixers.NewDefaultRegistry(fixers.Deps{
		Analyzer:   an,
		Runner:     runner,
		PHPVersion: phpVersion,
	})

	e := &env{
		info:     info,
		runner:   runner,
		types:    types,
		flows:    flows,
		analyzer: an,
		registry: registry,
	}

	svcOpts := []fixer.Option{
		fixer.WithAnalyzer(an),
		fixer.WithCaches(types, flows),
	}
	if withLocks {
		locks, err := lock.NewFileLockManager(lock.ManagerConfig{
			LockDir:       filepath.Join(info.Root, lock.DefaultLockDir),
			CleanupOnInit: true,
		})
		if err != nil {
			slog.Warn("file locking disabled", "error", err)
		} else {
			e.locks = locks
			svcOpts = append(svcOpts, fixer.WithLockManager(locks))
		}
	}

	e.service = fixer.NewService(runner, registry, svcOpts...)
	return e, nil
}

// close releases resources held by the environment.
func (e *env) close() {
	if e.locks != nil {
		if err := e.locks.Close(); err != nil {
			slog.Warn("closing lock manager", "error", err)
		}
	}
}

// openHistory opens the run history store for the project. Failures are
// logged, never fatal: history is a convenience, fixing must proceed.
func (e *env) openHistory() *history.Store {
	store, err := history.Open(history.DefaultConfig(e.info.Root))
	if err != nil {
		slog.Warn("run history unavailable", "error", err)
		return nil
	}
	return store
}

// saveHistory records a completed run best-effort.
func saveHistory(ctx context.Context, store *history.Store, res *fixer.FixResult) {
	if store == nil {
		return
	}
	defer store.Close()
	if err := store.Save(ctx, history.RecordOf(res)); err != nil {
		slog.Warn("recording run history", "error", err)
	}
}
