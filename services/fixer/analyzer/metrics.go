// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyzer

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("phpfixer.analyzer")
	meter  = otel.Meter("phpfixer.analyzer")

	analyzeTotal metric.Int64Counter

	metricsOnce sync.Once
)

func initMetrics() {
	var err error

	analyzeTotal, err = meter.Int64Counter(
		"phpfixer.analyzer.files",
		metric.WithDescription("Files walked for type inference"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		otel.Handle(err)
	}
}

func recordAnalyze(ctx context.Context, classes, functions int) {
	metricsOnce.Do(initMetrics)
	if analyzeTotal != nil {
		analyzeTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.Int("classes", classes),
			attribute.Int("functions", functions)))
	}
}
