// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fixer

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("phpfixer.service")
	meter  = otel.Meter("phpfixer.service")

	runDuration metric.Float64Histogram
	passTotal   metric.Int64Counter
	fixTotal    metric.Int64Counter

	metricsOnce sync.Once
)

// initMetrics creates the service instruments. Called lazily so the
// global meter provider is installed first.
func initMetrics() {
	var err error

	runDuration, err = meter.Float64Histogram(
		"phpfixer.run.duration",
		metric.WithDescription("Whole-run duration including analyzer time"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
	}

	passTotal, err = meter.Int64Counter(
		"phpfixer.run.passes",
		metric.WithDescription("Fix passes executed"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		otel.Handle(err)
	}

	fixTotal, err = meter.Int64Counter(
		"phpfixer.fix.outcomes",
		metric.WithDescription("Per-diagnostic fix outcomes"),
		metric.WithUnit("{diagnostic}"),
	)
	if err != nil {
		otel.Handle(err)
	}
}

func recordRun(ctx context.Context, d time.Duration, passes int) {
	metricsOnce.Do(initMetrics)
	if runDuration != nil {
		runDuration.Record(ctx, d.Seconds())
	}
	if passTotal != nil {
		passTotal.Add(ctx, int64(passes))
	}
}

func recordFix(ctx context.Context, fixer string, fixed bool) {
	metricsOnce.Do(initMetrics)
	if fixTotal != nil {
		fixTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("fixer", fixer),
			attribute.Bool("fixed", fixed)))
	}
}
