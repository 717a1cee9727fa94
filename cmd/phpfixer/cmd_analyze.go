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

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpstan"
)

var (
	analyzeLevel int
	analyzeJSON  bool

	analyzeCmd = &cobra.Command{
		Use:   "analyze [paths...]",
		Short: "Run PHPStan and report diagnostics without fixing",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAnalyze,
	}
)

func init() {
	analyzeCmd.Flags().IntVarP(&analyzeLevel, "level", "l", -1, "PHPStan rule level (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "emit diagnostics as JSON")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	e, err := newEnv(args[0], "", false)
	if err != nil {
		return err
	}
	defer e.close()

	level := analyzeLevel
	if level < 0 {
		level = config.Analyzer.Level
	}

	raw, err := e.runner.Analyze(cmd.Context(), phpstan.RunOptions{
		Paths: args,
		Level: level,
	})
	if err != nil {
		return &exitError{code: 2, msg: fmt.Sprintf("analyzer failed: %v", err)}
	}

	diags, err := phpstan.Parse(raw.Stdout, raw.Stderr)
	if err != nil {
		return &exitError{code: 2, msg: fmt.Sprintf("unparsable analyzer output: %v", err)}
	}

	if analyzeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(diags); err != nil {
			return err
		}
	} else {
		for _, d := range diags {
			if d.File == "" {
				fmt.Printf("%s %s\n", yellow("analyzer:"), d.Message)
				continue
			}
			fmt.Printf("%s:%d: %s\n", d.File, d.Line, d.Message)
		}
		if len(diags) == 0 {
			fmt.Println(green("no errors found"))
		} else {
			fmt.Printf("\n%s\n", red(fmt.Sprintf("%d error(s) found", len(diags))))
		}
	}

	if len(diags) > 0 {
		return exitCode(1)
	}
	return nil
}
