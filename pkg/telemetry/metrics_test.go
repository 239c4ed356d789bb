package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestRecordStageMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		otel.SetMeterProvider(prev)
	})

	ResetMetricsForTest()

	RecordStageMetrics(ctx, StageMetrics{
		BatchID:  "batch-123",
		Stage:    "evaluate",
		Outcome:  OutcomeOK,
		Duration: 150 * time.Millisecond,
		Rejected: 2,
	})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}

	metrics := map[string]metricdata.Metrics{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			metrics[m.Name] = m
		}
	}

	sumExec, ok := metrics["solace.stage.executions_total"]
	if !ok {
		t.Fatalf("missing stage executions metric")
	}
	execData, ok := sumExec.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type for executions metric")
	}
	if len(execData.DataPoints) != 1 {
		t.Fatalf("expected 1 datapoint, got %d", len(execData.DataPoints))
	}
	if execData.DataPoints[0].Value != 1 {
		t.Fatalf("expected executions count 1, got %d", execData.DataPoints[0].Value)
	}
	if value, ok := execData.DataPoints[0].Attributes.Value(attribute.Key("stage.name")); !ok || value.AsString() != "evaluate" {
		t.Fatalf("expected stage.name attribute to be evaluate, got %v", value)
	}

	hist, ok := metrics["solace.stage.duration_ms"]
	if !ok {
		t.Fatalf("missing stage duration metric")
	}
	histData := hist.Data.(metricdata.Histogram[float64])
	if histData.DataPoints[0].Count != 1 {
		t.Fatalf("expected histogram count 1, got %d", histData.DataPoints[0].Count)
	}
	if histData.DataPoints[0].Sum != 150 {
		t.Fatalf("expected histogram sum 150, got %v", histData.DataPoints[0].Sum)
	}

	rejected, ok := metrics["solace.pattern.rejected_total"]
	if !ok {
		t.Fatalf("missing rejected patterns metric")
	}
	rejectedData := rejected.Data.(metricdata.Sum[int64])
	if rejectedData.DataPoints[0].Value != 2 {
		t.Fatalf("expected rejected count 2, got %d", rejectedData.DataPoints[0].Value)
	}
}

func TestRecordStageMetricsFrozen(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		otel.SetMeterProvider(prev)
	})

	ResetMetricsForTest()

	RecordStageMetrics(ctx, StageMetrics{
		BatchID: "batch-456",
		Stage:   "admission",
		Outcome: OutcomeFrozen,
	})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}

	found := false
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == "solace.batch.frozen_total" {
				found = true
				data := m.Data.(metricdata.Sum[int64])
				if data.DataPoints[0].Value != 1 {
					t.Fatalf("expected frozen count 1, got %d", data.DataPoints[0].Value)
				}
			}
		}
	}
	if !found {
		t.Fatal("missing frozen batches metric")
	}
}

func TestRecordDriftEvent(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := provider.Tracer("test").Start(context.Background(), "batch")
	RecordDriftEvent(span, false, 0.42)
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	events := spans[0].Events()
	if len(events) != 1 || events[0].Name != "epasa.drift" {
		t.Fatalf("expected one epasa.drift event, got %+v", events)
	}

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range events[0].Attributes {
		attrs[kv.Key] = kv.Value
	}
	if v, ok := attrs["epasa.compliant"]; !ok || v.AsBool() {
		t.Fatalf("expected epasa.compliant=false, got %v", v)
	}
	if v, ok := attrs["epasa.drift_ratio"]; !ok || v.AsFloat64() != 0.42 {
		t.Fatalf("expected drift ratio 0.42, got %v", v)
	}
}

func TestRecordDriftEventNilSpan(t *testing.T) {
	// Must not panic.
	RecordDriftEvent(nil, true, 0.0)
}
