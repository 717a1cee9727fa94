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
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/project"
)

var (
	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the type and flow caches",
	}

	cacheStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show cache entry counts and hit rates",
		RunE:  runCacheStats,
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete both caches",
		RunE:  runCacheClear,
	}

	cacheWarmWorkers int

	cacheWarmCmd = &cobra.Command{
		Use:   "warm [paths...]",
		Short: "Pre-populate the caches by analyzing project files",
		Long: `Runs the type analyzer over every PHP file under the given paths
(default: the whole project) and persists the resulting type and flow
knowledge, so the first smart fix run starts warm.`,
		RunE: runCacheWarm,
	}
)

func init() {
	cacheWarmCmd.Flags().IntVar(&cacheWarmWorkers, "workers", 0, "concurrent analysis workers (default: CPU count)")

	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cacheWarmCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	e, err := newEnv(".", "", false)
	if err != nil {
		return err
	}
	defer e.close()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CACHE\tENTRIES\tCAPACITY\tHITS\tMISSES\tEVICTIONS\tPATH")
	for _, row := range []struct {
		name  string
		stats func() (entries, capacity int, hits, misses, evictions int64)
		path  string
	}{
		{"type", func() (int, int, int64, int64, int64) {
			s := e.types.Stats()
			return s.Entries, s.Capacity, s.Hits, s.Misses, s.Evictions
		}, e.types.Path()},
		{"flow", func() (int, int, int64, int64, int64) {
			s := e.flows.Stats()
			return s.Entries, s.Capacity, s.Hits, s.Misses, s.Evictions
		}, e.flows.Path()},
	} {
		entries, capacity, hits, misses, evictions := row.stats()
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			row.name, entries, capacity, hits, misses, evictions, row.path)
	}
	return w.Flush()
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	e, err := newEnv(".", "", false)
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.types.Clear(); err != nil {
		return fmt.Errorf("clearing type cache: %w", err)
	}
	if err := e.flows.Clear(); err != nil {
		return fmt.Errorf("clearing flow cache: %w", err)
	}
	fmt.Println("caches cleared")
	return nil
}

func runCacheWarm(cmd *cobra.Command, args []string) error {
	start := "."
	if len(args) > 0 {
		start = args[0]
	}
	e, err := newEnv(start, "", false)
	if err != nil {
		return err
	}
	defer e.close()

	ctx := cmd.Context()
	scan, err := project.NewScanner().Scan(ctx, e.info.Root)
	if err != nil {
		return fmt.Errorf("scanning project: %w", err)
	}

	files := scan.Files
	if len(args) > 0 {
		files = filterUnderPaths(e.info.Root, files, args)
	}

	workers := cacheWarmWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	analyzed := 0
	for _, rel := range files {
		abs := filepath.Join(e.info.Root, filepath.FromSlash(rel))
		g.Go(func() error {
			source, err := os.ReadFile(abs)
			if err != nil {
				// Files can vanish mid-scan; skip, don't abort the warm.
				return nil
			}
			_, _ = e.analyzer.Analyze(gctx, source, abs)
			return nil
		})
		analyzed++
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := e.types.Persist(ctx); err != nil {
		return fmt.Errorf("persisting type cache: %w", err)
	}
	if err := e.flows.Persist(ctx); err != nil {
		return fmt.Errorf("persisting flow cache: %w", err)
	}

	fmt.Printf("warmed caches from %d file(s): %d type entries, %d flow edges\n",
		analyzed, e.types.Len(), e.flows.Len())
	return nil
}

// filterUnderPaths keeps root-relative files located under any of the
// given paths.
func filterUnderPaths(root string, files, paths []string) []string {
	var prefixes []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		if rel, err := filepath.Rel(root, abs); err == nil {
			prefixes = append(prefixes, filepath.ToSlash(rel))
		}
	}

	var kept []string
	for _, f := range files {
		for _, p := range prefixes {
			if p == "." || f == p || len(f) > len(p) && f[:len(p)] == p && f[len(p)] == '/' {
				kept = append(kept, f)
				break
			}
		}
	}
	return kept
}
