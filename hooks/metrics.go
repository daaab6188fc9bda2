package hooks

import (
	"context"
	"sync"

	"github.com/jeanmolossi/querytrace"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsHook reports query phase timings and row counts to OpenTelemetry metrics.
//
// Provide a Meter to bind the instruments to a specific MeterProvider. When not
// provided, the global MeterProvider is used.
type MetricsHook struct {
	Meter metric.Meter
	// Unit is the native unit of the event durations. Defaults to nanoseconds.
	Unit querytrace.Unit

	once     sync.Once
	duration metric.Float64Histogram
	rows     metric.Int64Counter
	errors   metric.Int64Counter
	initErr  error
}

func (h *MetricsHook) meter() metric.Meter {
	if h.Meter != nil {
		return h.Meter
	}

	return otel.Meter("github.com/jeanmolossi/querytrace/hooks/metrics")
}

func (h *MetricsHook) unit() querytrace.Unit {
	if h.Unit > 0 {
		return h.Unit
	}

	return querytrace.Nanosecond
}

func (h *MetricsHook) initInstruments() {
	h.once.Do(func() {
		h.duration, h.initErr = h.meter().Float64Histogram("querytrace.query.phase.duration_ms",
			metric.WithUnit("ms"),
			metric.WithDescription("Duration of the queue, run_query and decode phases of database queries"),
		)
		if h.initErr != nil {
			return
		}

		h.rows, h.initErr = h.meter().Int64Counter("querytrace.query.rows",
			metric.WithUnit("{rows}"),
			metric.WithDescription("Rows returned or affected by successful queries"),
		)
		if h.initErr != nil {
			return
		}

		h.errors, h.initErr = h.meter().Int64Counter("querytrace.query.errors",
			metric.WithUnit("{queries}"),
			metric.WithDescription("Queries that completed with an error"),
		)
	})
}

// HandleQuery records the event's metrics and returns it unchanged.
func (h *MetricsHook) HandleQuery(ctx context.Context, event querytrace.QueryEvent, target string) (querytrace.QueryEvent, error) {
	h.initInstruments()

	if h.initErr != nil {
		return event, h.initErr
	}

	targetAttr := AttrTarget.String(target)
	unit := h.unit()

	phases := []struct {
		name  string
		value any
	}{
		{SpanQueue, event.QueueTime},
		{SpanRunQuery, event.QueryTime},
		{SpanDecode, event.DecodeTime},
	}

	for _, p := range phases {
		d := unit.Duration(p.value)
		if d <= 0 {
			continue
		}

		h.duration.Record(ctx, float64(d.Microseconds())/1000,
			metric.WithAttributes(targetAttr, attribute.String("phase", p.name)),
		)
	}

	if event.Err() != nil {
		h.errors.Add(ctx, 1, metric.WithAttributes(targetAttr))

		return event, nil
	}

	h.rows.Add(ctx, int64(event.Rows()), metric.WithAttributes(targetAttr))

	return event, nil
}
