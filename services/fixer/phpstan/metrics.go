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
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"time"
)

var (
	tracer = otel.Tracer("phpfixer.phpstan")
	meter  = otel.Meter("phpfixer.phpstan")

	runsTotal   metric.Int64Counter
	runDuration metric.Float64Histogram

	metricsOnce sync.Once
)

// initMetrics creates the analyzer instruments. Called lazily so the global
// meter provider is installed first.
func initMetrics() {
	var err error

	runsTotal, err = meter.Int64Counter(
		"phpfixer.phpstan.runs",
		metric.WithDescription("Total PHPStan invocations"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		otel.Handle(err)
	}

	runDuration, err = meter.Float64Histogram(
		"phpfixer.phpstan.duration",
		metric.WithDescription("PHPStan invocation duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
	}
}

// recordRunMetrics records one analyzer invocation.
func recordRunMetrics(ctx context.Context, duration time.Duration, exitCode int, success bool) {
	metricsOnce.Do(initMetrics)

	attrs := metric.WithAttributes(
		attribute.Int("exit_code", exitCode),
		attribute.Bool("success", success),
	)

	if runsTotal != nil {
		runsTotal.Add(ctx, 1, attrs)
	}
	if runDuration != nil {
		runDuration.Record(ctx, duration.Seconds(), attrs)
	}
}
