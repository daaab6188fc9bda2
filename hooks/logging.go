package hooks

import (
	"context"
	"log/slog"

	"github.com/jeanmolossi/querytrace"
	"go.opentelemetry.io/otel/trace"
)

// LoggingHook emits one structured log record per completed query using log/slog.
//
// When Logger is nil, slog.Default is used. Level defaults to slog.LevelInfo;
// failed queries are always logged at slog.LevelError. Enable IncludeSQL to attach
// the query text. The ids of the active span, if any, are attached as trace_id
// and span_id.
type LoggingHook struct {
	Logger     *slog.Logger
	Level      slog.Level
	IncludeSQL bool
	// Unit is the native unit of the event durations. Defaults to nanoseconds.
	Unit querytrace.Unit
}

func (h LoggingHook) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}

	return slog.Default()
}

func (h LoggingHook) level() slog.Level {
	if h.Level != 0 {
		return h.Level
	}

	return slog.LevelInfo
}

func (h LoggingHook) unit() querytrace.Unit {
	if h.Unit > 0 {
		return h.Unit
	}

	return querytrace.Nanosecond
}

// HandleQuery logs the query outcome and timings and returns event unchanged.
func (h LoggingHook) HandleQuery(ctx context.Context, event querytrace.QueryEvent, target string) (querytrace.QueryEvent, error) {
	unit := h.unit()
	attrs := []slog.Attr{
		slog.String("target", target),
		slog.Int("rows", event.Rows()),
		slog.Duration("queue_time", unit.Duration(event.QueueTime)),
		slog.Duration("query_time", unit.Duration(event.QueryTime)),
		slog.Duration("decode_time", unit.Duration(event.DecodeTime)),
	}

	if h.IncludeSQL {
		attrs = append(attrs, slog.String("sql", event.Text()))
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String(FieldTraceID, sc.TraceID().String()),
			slog.String(FieldSpanID, sc.SpanID().String()),
		)
	}

	level, msg := h.level(), "query completed"
	if err := event.Err(); err != nil {
		level, msg = slog.LevelError, "query failed"
		attrs = append(attrs, slog.String("error", event.ErrorMessage()))
	}

	h.logger().LogAttrs(ctx, level, msg, attrs...)

	return event, nil
}
