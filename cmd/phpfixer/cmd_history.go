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
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/history"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/project"
)

var (
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Inspect past fix runs",
	}

	historyLimit int

	historyListCmd = &cobra.Command{
		Use:   "list",
		Short: "List past runs, newest first",
		RunE:  runHistoryList,
	}

	historyShowCmd = &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run in full",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShow,
	}

	historyMaxAge time.Duration

	historyPruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than --max-age",
		RunE:  runHistoryPrune,
	}
)

func init() {
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum runs to list (0 = all)")
	historyPruneCmd.Flags().DurationVar(&historyMaxAge, "max-age", 30*24*time.Hour, "delete runs older than this")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

func openProjectHistory() (*history.Store, error) {
	info, err := project.Discover(".")
	if err != nil {
		return nil, fmt.Errorf("locating project root: %w", err)
	}
	store, err := history.Open(history.DefaultConfig(info.Root))
	if err != nil {
		return nil, fmt.Errorf("opening run history: %w", err)
	}
	return store, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openProjectHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tSTARTED\tDURATION\tPASSES\tFIXED\tUNFIXABLE\tDRY RUN")
	for _, rec := range records {
		dry := ""
		if rec.DryRun {
			dry = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			rec.RunID,
			rec.StartedAt.Format(time.RFC3339),
			rec.Duration.Round(time.Millisecond),
			rec.Passes,
			rec.FixedCount,
			rec.UnfixableCount,
			dry)
	}
	return w.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openProjectHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	store, err := openProjectHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	pruned, err := store.Prune(cmd.Context(), historyMaxAge, time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("pruned %d run(s)\n", pruned)
	return nil
}
