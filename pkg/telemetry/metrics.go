package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// StageOutcome classifies how a pipeline stage finished.
type StageOutcome string

const (
	OutcomeOK          StageOutcome = "ok"
	OutcomeError       StageOutcome = "error"
	OutcomeFrozen      StageOutcome = "frozen"
	OutcomeRateLimited StageOutcome = "rate_limited"
)

var (
	metricsOnce           sync.Once
	metricsInitErr        error
	stageExecutionCounter metric.Int64Counter
	stageLatencyHistogram metric.Float64Histogram
	frozenBatchCounter    metric.Int64Counter
	rejectedCounter       metric.Int64Counter
)

// StageMetrics captures the fields needed to record pipeline stage telemetry.
type StageMetrics struct {
	BatchID  string
	Stage    string
	Outcome  StageOutcome
	Duration time.Duration
	Rejected int
}

// RecordStageMetrics emits counters and histograms describing one pipeline
// stage execution.
func RecordStageMetrics(ctx context.Context, metrics StageMetrics) {
	if err := ensureMetrics(); err != nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("batch.id", metrics.BatchID),
		attribute.String("stage.name", metrics.Stage),
		attribute.String("stage.outcome", string(metrics.Outcome)),
	}

	stageExecutionCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	if metrics.Duration > 0 {
		stageLatencyHistogram.Record(ctx, float64(metrics.Duration)/float64(time.Millisecond), metric.WithAttributes(attrs...))
	}

	if metrics.Rejected > 0 {
		rejectedCounter.Add(ctx, int64(metrics.Rejected), metric.WithAttributes(attrs...))
	}

	if metrics.Outcome == OutcomeFrozen {
		frozenBatchCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("solace.pipeline")

		stageExecutionCounter, metricsInitErr = meter.Int64Counter(
			"solace.stage.executions_total",
			metric.WithDescription("Pipeline stage executions partitioned by outcome"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		stageLatencyHistogram, metricsInitErr = meter.Float64Histogram(
			"solace.stage.duration_ms",
			metric.WithDescription("Observed pipeline stage latency"),
			metric.WithUnit("ms"),
		)
		if metricsInitErr != nil {
			return
		}

		frozenBatchCounter, metricsInitErr = meter.Int64Counter(
			"solace.batch.frozen_total",
			metric.WithDescription("Batches refused because the drift breaker was open"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		rejectedCounter, metricsInitErr = meter.Int64Counter(
			"solace.pattern.rejected_total",
			metric.WithDescription("Patterns rejected by the integrity chamber"),
			metric.WithUnit("{count}"),
		)
	})

	return metricsInitErr
}

// ResetMetricsForTest clears cached instruments so tests can install their
// own meter provider.
func ResetMetricsForTest() {
	metricsOnce = sync.Once{}
	metricsInitErr = nil
	stageExecutionCounter = nil
	stageLatencyHistogram = nil
	frozenBatchCounter = nil
	rejectedCounter = nil
}

// RecordDriftEvent attaches a drift alarm to the provided span without
// leaking pattern contents.
func RecordDriftEvent(span trace.Span, status bool, driftRatio float64) {
	if span == nil || !span.IsRecording() {
		return
	}

	span.AddEvent("epasa.drift", trace.WithAttributes(
		attribute.Bool("epasa.compliant", status),
		attribute.Float64("epasa.drift_ratio", driftRatio),
	))
}
