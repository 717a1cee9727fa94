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

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/kenaths/phpstan-fixer-sub000/pkg/logging"
)

var (
	config Config

	flagConfig   string
	flagLogLevel string
	flagLogJSON  bool
	flagQuiet    bool
	flagNoColor  bool

	rootCmd = &cobra.Command{
		Use:   "phpfixer",
		Short: "Automatically fix PHPStan diagnostics in a PHP project",
		Long: `phpfixer runs PHPStan over a PHP source tree, matches each diagnostic
against a registry of fixers, and rewrites the source to resolve what it
can. Smart mode repeats the analyze-fix cycle until the project is clean
or no further progress is made.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (default "+defaultConfigName+")")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&flagLogJSON, "log-json", false, "emit logs as JSON")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "suppress log output below error")
	pf.BoolVar(&flagNoColor, "no-color", false, "disable colored output")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		path := flagConfig
		explicit := path != ""
		if !explicit {
			path = defaultConfigName
		}

		var err error
		config, err = loadConfig(path, explicit)
		if err != nil {
			return err
		}

		level := config.Log.Level
		if flagLogLevel != "" {
			level = flagLogLevel
		}
		if flagQuiet {
			level = "error"
		}

		logging.Setup(logging.Config{
			Level:    logging.ParseLevel(level),
			JSON:     flagLogJSON || config.Log.JSON,
			FilePath: config.Log.File,
		})
		return nil
	}
}

// colorize wraps s in an ANSI escape when color output is enabled.
func colorize(code, s string) string {
	if !colorEnabled() {
		return s
	}
	return fmt.Sprintf("\033[%sm%s\033[0m", code, s)
}

func colorEnabled() bool {
	if flagNoColor {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func green(s string) string  { return colorize("32", s) }
func red(s string) string    { return colorize("31", s) }
func yellow(s string) string { return colorize("33", s) }
