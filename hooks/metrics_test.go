package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/jeanmolossi/querytrace"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect failed: %v", err)
	}

	if len(rm.ScopeMetrics) == 0 {
		t.Fatalf("expected scope metrics")
	}

	out := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		out[m.Name] = m
	}

	return out
}

func TestMetricsHookRecordsValues(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	hook := &MetricsHook{Meter: provider.Meter("test"), Unit: querytrace.Millisecond}

	event := querytrace.QueryEvent{
		Query:      querytrace.Literal("SELECT 1"),
		Result:     querytrace.Success{NumRows: 7},
		QueueTime:  0,
		QueryTime:  15,
		DecodeTime: 2,
	}

	if _, err := hook.HandleQuery(context.Background(), event, "shop.repo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	metrics := collect(t, reader)

	duration, ok := metrics["querytrace.query.phase.duration_ms"].Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("duration metric not found")
	}

	if len(duration.DataPoints) != 2 {
		t.Fatalf("expected 2 phase datapoints, got %d", len(duration.DataPoints))
	}

	sums := map[string]float64{}

	for _, dp := range duration.DataPoints {
		phase, _ := dp.Attributes.Value(attribute.Key("phase"))
		sums[phase.AsString()] = dp.Sum
	}

	if sums[SpanRunQuery] != 15 || sums[SpanDecode] != 2 {
		t.Fatalf("unexpected phase sums: %v", sums)
	}

	if _, ok := sums[SpanQueue]; ok {
		t.Fatalf("zero queue time should not be recorded")
	}

	rows, ok := metrics["querytrace.query.rows"].Data.(metricdata.Sum[int64])
	if !ok || len(rows.DataPoints) != 1 || rows.DataPoints[0].Value != 7 {
		t.Fatalf("unexpected rows metric: %+v", metrics["querytrace.query.rows"])
	}
}

func TestMetricsHookCountsFailures(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	hook := &MetricsHook{Meter: provider.Meter("test")}

	event := querytrace.QueryEvent{Result: querytrace.Failure{Err: errors.New("timeout")}}

	for i := 0; i < 2; i++ {
		if _, err := hook.HandleQuery(context.Background(), event, "shop.repo"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	metrics := collect(t, reader)

	failures, ok := metrics["querytrace.query.errors"].Data.(metricdata.Sum[int64])
	if !ok || len(failures.DataPoints) != 1 || failures.DataPoints[0].Value != 2 {
		t.Fatalf("unexpected errors metric: %+v", metrics["querytrace.query.errors"])
	}

	if _, ok := metrics["querytrace.query.rows"]; ok {
		t.Fatalf("failed queries should not report rows")
	}
}
