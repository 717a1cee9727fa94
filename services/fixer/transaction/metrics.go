// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transaction

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("phpfixer.transaction")
	meter  = otel.Meter("phpfixer.transaction")

	applyTotal    metric.Int64Counter
	commitTotal   metric.Int64Counter
	rollbackTotal metric.Int64Counter

	metricsOnce sync.Once
)

// initMetrics creates the transaction instruments. Called lazily so the
// global meter provider is installed first.
func initMetrics() {
	var err error

	applyTotal, err = meter.Int64Counter(
		"phpfixer.transaction.applies",
		metric.WithDescription("Fixer applications inside transactions"),
		metric.WithUnit("{apply}"),
	)
	if err != nil {
		otel.Handle(err)
	}

	commitTotal, err = meter.Int64Counter(
		"phpfixer.transaction.commits",
		metric.WithDescription("Transaction commits"),
		metric.WithUnit("{commit}"),
	)
	if err != nil {
		otel.Handle(err)
	}

	rollbackTotal, err = meter.Int64Counter(
		"phpfixer.transaction.rollbacks",
		metric.WithDescription("Transaction rollbacks"),
		metric.WithUnit("{rollback}"),
	)
	if err != nil {
		otel.Handle(err)
	}
}

func recordApply(ctx context.Context, fixer string, success bool) {
	metricsOnce.Do(initMetrics)
	if applyTotal != nil {
		applyTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("fixer", fixer),
			attribute.Bool("success", success)))
	}
}

func recordCommit(ctx context.Context, written, success bool) {
	metricsOnce.Do(initMetrics)
	if commitTotal != nil {
		commitTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.Bool("written", written),
			attribute.Bool("success", success)))
	}
}

func recordRollback(ctx context.Context, reason string) {
	metricsOnce.Do(initMetrics)
	if rollbackTotal != nil {
		rollbackTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("reason", reason)))
	}
}
