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
	"time"

	"github.com/spf13/cobra"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/fixers"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/server"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/telemetry"
)

var (
	servePort int

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the fixer as an HTTP service",
		Long: `Exposes the fixer over HTTP: POST /v1/fix runs one fix, GET /v1/fixers
lists the registry, GET /v1/health reports liveness, and GET /metrics
serves Prometheus metrics. One fix run at a time; concurrent requests
get 409.`,
		RunE: runServe,
	}
)

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default 8095)")

	rootCmd.AddCommand(serveCmd)
}

// cliFixRunner executes HTTP fix requests through a freshly wired
// pipeline per request, so each run picks up the project state on disk.
type cliFixRunner struct{}

func (cliFixRunner) Fix(ctx context.Context, req server.FixRequest) (*fixer.FixResult, error) {
	e, err := newEnv(req.Paths[0], req.PHPVersion, true)
	if err != nil {
		return nil, err
	}
	defer e.close()

	level := req.Level
	if level == 0 && config.Analyzer.Level > 0 {
		level = config.Analyzer.Level
	}

	result, err := e.service.Run(ctx, fixer.Options{
		Paths:  req.Paths,
		Level:  level,
		Smart:  req.Smart,
		DryRun: req.DryRun,
	})
	if err != nil {
		return nil, err
	}

	if !req.DryRun {
		saveHistory(ctx, e.openHistory(), result)
	}
	return result, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	shutdown, err := telemetry.Init(cmd.Context(), telemetry.ServerConfig(appVersion))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			slog.Warn("telemetry shutdown", "error", err)
		}
	}()

	port := servePort
	if port == 0 {
		port = config.Server.Port
	}

	registry := fixers.NewDefaultRegistry(fixers.Deps{PHPVersion: config.PHPVersion})
	srv := server.New(server.Config{
		Port:    port,
		Version: appVersion,
	}, cliFixRunner{}, registry)

	return srv.Run()
}
