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
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/fixers"
)

var fixersCmd = &cobra.Command{
	Use:   "fixers",
	Short: "List registered fixers in priority order",
	RunE:  runFixers,
}

func init() {
	rootCmd.AddCommand(fixersCmd)
}

func runFixers(cmd *cobra.Command, args []string) error {
	registry := fixers.NewDefaultRegistry(fixers.Deps{PHPVersion: config.PHPVersion})

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRIORITY\tNAME\tKINDS\tMIN PHP")
	for i, f := range registry.List() {
		floor := fixers.VersionFloor(f.Name())
		if floor == "" {
			floor = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			i+1, f.Name(), strings.Join(f.Kinds(), ","), floor)
	}
	return w.Flush()
}
