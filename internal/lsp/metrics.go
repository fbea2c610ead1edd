package lsp

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for server operations.
var (
	tracer = otel.Tracer("todols.lsp")
	meter  = otel.Meter("todols.lsp")
)

// Metrics for server operations.
var (
	operationLatency metric.Float64Histogram
	operationTotal   metric.Int64Counter
	indexedFiles     metric.Int64Gauge
	colorResults     metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		operationLatency, err = meter.Float64Histogram(
			"todols_operation_duration_seconds",
			metric.WithDescription("Duration of language server operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		operationTotal, err = meter.Int64Counter(
			"todols_operation_total",
			metric.WithDescription("Total number of language server operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		indexedFiles, err = meter.Int64Gauge(
			"todols_indexed_files",
			metric.WithDescription("Files with at least one keyword match"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		colorResults, err = meter.Int64Histogram(
			"todols_document_color_results",
			metric.WithDescription("Colored ranges returned per documentColor request"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startOperationSpan creates a span for a server operation.
func startOperationSpan(ctx context.Context, operation, path string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Backend."+operation,
		trace.WithAttributes(
			attribute.String("todols.operation", operation),
			attribute.String("todols.path", path),
		),
	)
}

// setOperationSpanResult sets the result attributes on an operation span.
func setOperationSpanResult(span trace.Span, resultCnt int, success bool) {
	span.SetAttributes(
		attribute.Int("todols.result_count", resultCnt),
		attribute.Bool("todols.success", success),
	)
}

// recordOperationMetrics records metrics for a server operation.
func recordOperationMetrics(ctx context.Context, operation string, duration time.Duration, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("success", success),
	)
	operationLatency.Record(ctx, duration.Seconds(), attrs)
	operationTotal.Add(ctx, 1, attrs)
}

// recordIndexSize records the number of indexed files.
func recordIndexSize(ctx context.Context, n int) {
	if err := initMetrics(); err != nil {
		return
	}
	indexedFiles.Record(ctx, int64(n))
}

// recordColorResults records the size of a documentColor response.
func recordColorResults(ctx context.Context, n int) {
	if err := initMetrics(); err != nil {
		return
	}
	colorResults.Record(ctx, int64(n))
}
