// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package phpast

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for PHP parsing.
var (
	tracer = otel.Tracer("phpfixer.phpast")
	meter  = otel.Meter("phpfixer.phpast")

	parseLatency metric.Float64Histogram
	parseTotal   metric.Int64Counter

	metricsOnce sync.Once
)

func initMetrics() {
	var err error

	parseLatency, err = meter.Float64Histogram(
		"phpfixer.phpast.parse.duration",
		metric.WithDescription("PHP parse duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
	}

	parseTotal, err = meter.Int64Counter(
		"phpfixer.phpast.parse.total",
		metric.WithDescription("Total PHP parse operations"),
		metric.WithUnit("{parse}"),
	)
	if err != nil {
		otel.Handle(err)
	}
}

func recordParseMetrics(ctx context.Context, duration time.Duration, success bool) {
	metricsOnce.Do(initMetrics)

	attrs := metric.WithAttributes(attribute.Bool("success", success))

	if parseTotal != nil {
		parseTotal.Add(ctx, 1, attrs)
	}
	if parseLatency != nil {
		parseLatency.Record(ctx, duration.Seconds(), attrs)
	}
}

func startParseSpan(ctx context.Context, filePath string, contentSize int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Parser.Parse",
		trace.WithAttributes(
			attribute.String("file.path", filePath),
			attribute.Int("file.size_bytes", contentSize),
		))
}

func setParseSpanResult(span trace.Span, classCount int, hasErrors bool) {
	span.SetAttributes(
		attribute.Int("parse.class_count", classCount),
		attribute.Bool("parse.has_errors", hasErrors),
	)
}
