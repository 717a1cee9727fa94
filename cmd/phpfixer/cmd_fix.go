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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer"
)

var (
	fixLevel      int
	fixSmart      bool
	fixMaxPasses  int
	fixBackup     bool
	fixDryRun     bool
	fixAtomic     bool
	fixPHPVersion string
	fixJSON       bool

	fixCmd = &cobra.Command{
		Use:   "fix [paths...]",
		Short: "Analyze and automatically fix PHPStan diagnostics",
		Long: `Runs PHPStan over the given paths and rewrites the source to resolve
every diagnostic a registered fixer accepts. With --smart the
analyze-fix cycle repeats until the project is clean or stops
improving. Exit code 0 means clean, 1 means unfixable diagnostics
remain, 2 means the analyzer could not run.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runFix,
	}
)

func init() {
	fixCmd.Flags().IntVarP(&fixLevel, "level", "l", -1, "PHPStan rule level (default from config)")
	fixCmd.Flags().BoolVar(&fixSmart, "smart", false, "multi-pass mode with type inference")
	fixCmd.Flags().IntVar(&fixMaxPasses, "max-passes", 0, "smart-mode pass cap (default 3)")
	fixCmd.Flags().BoolVar(&fixBackup, "backup", false, "keep a pre-fix copy of each touched file")
	fixCmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "show diffs without writing files")
	fixCmd.Flags().BoolVar(&fixAtomic, "atomic", true, "apply each file's fixes as one transaction (--atomic=false writes after every fix)")
	fixCmd.Flags().StringVar(&fixPHPVersion, "php-version", "", "target PHP version, e.g. 8.3 (default from composer.json)")
	fixCmd.Flags().BoolVar(&fixJSON, "json", false, "emit the run result as JSON")

	rootCmd.AddCommand(fixCmd)
}

func runFix(cmd *cobra.Command, args []string) error {
	e, err := newEnv(args[0], fixPHPVersion, true)
	if err != nil {
		return err
	}
	defer e.close()

	level := fixLevel
	if level < 0 {
		level = config.Analyzer.Level
	}

	opts := fixer.Options{
		Paths:     args,
		Level:     level,
		Smart:     fixSmart || config.Fix.Smart,
		MaxPasses: fixMaxPasses,
		DryRun:    fixDryRun,
		Backup:    fixBackup || config.Fix.Backup,
		Legacy:    !fixAtomic,
	}
	if opts.MaxPasses == 0 {
		opts.MaxPasses = config.Fix.MaxPasses
	}

	ctx := cmd.Context()
	result, err := e.service.Run(ctx, opts)
	if err != nil {
		return &exitError{code: 2, msg: fmt.Sprintf("fix failed: %v", err)}
	}

	if !fixDryRun {
		saveHistory(ctx, e.openHistory(), result)
	}

	if fixJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		fixer.Render(os.Stdout, result)
		for path, diff := range result.Diffs {
			fmt.Fprintf(os.Stdout, "\n--- %s ---\n%s", path, diff)
		}
	}

	if result.AnalysisFailed || len(result.Unfixable) > 0 {
		return exitCode(1)
	}
	return nil
}
