package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jeanmolossi/querytrace"
	"github.com/zoobzio/clockz"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names emitted by TracingHook.
const (
	SpanQuery    = "query"
	SpanQueue    = "queue"
	SpanRunQuery = "run_query"
	SpanDecode   = "decode"
)

// SpanTypeDB is the span.type of every span emitted by TracingHook.
const SpanTypeDB = "db"

// Attribute keys set by TracingHook.
const (
	AttrService   = attribute.Key("service.name")
	AttrResource  = attribute.Key("resource.name")
	AttrSpanType  = attribute.Key("span.type")
	AttrStatement = attribute.Key("db.statement")
	AttrRows      = attribute.Key("db.rows")
	AttrTarget    = attribute.Key("db.target")
)

// TracingHook turns a completed query into a "query" span with up to three
// children: "queue", "run_query" and "decode".
//
// All timestamps are derived from a single clock reading taken when the hook
// runs: the parent span covers the sum of the event's phase durations and ends
// at that instant, and the children tile it in order. Phases with a zero
// duration are not emitted.
//
// Nothing is emitted unless ctx carries a valid span context and the configured
// tracer is not disabled. The disabled flag is only consulted once a span is
// known to be active. Spans are started and ended within the call, so work
// running on other goroutines is never attached to the trace.
//
// A missing required configuration key is returned as an error on every call.
type TracingHook struct {
	// Config supplies the tracing configuration. Required.
	Config querytrace.ConfigSource
	// Provider resolves the configured tracer. Defaults to the global provider.
	Provider trace.TracerProvider
	// Clock defaults to clockz.RealClock.
	Clock clockz.Clock
	// Unit is the native unit of the event durations. Defaults to nanoseconds.
	Unit querytrace.Unit
	// Propagator receives the ids of the parent span. Defaults to ContextPropagator.
	Propagator LogPropagator
	// Logger reports propagation failures at debug level. Defaults to slog.Default.
	Logger *slog.Logger
}

func (h TracingHook) provider() trace.TracerProvider {
	if h.Provider != nil {
		return h.Provider
	}

	return otel.GetTracerProvider()
}

func (h TracingHook) clock() clockz.Clock {
	if h.Clock != nil {
		return h.Clock
	}

	return clockz.RealClock
}

func (h TracingHook) unit() querytrace.Unit {
	if h.Unit > 0 {
		return h.Unit
	}

	return querytrace.Nanosecond
}

func (h TracingHook) propagator() LogPropagator {
	if h.Propagator != nil {
		return h.Propagator
	}

	return ContextPropagator{}
}

func (h TracingHook) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}

	return slog.Default()
}

// HandleQuery emits the span tree for event and returns event unchanged.
func (h TracingHook) HandleQuery(ctx context.Context, event querytrace.QueryEvent, target string) (querytrace.QueryEvent, error) {
	if h.Config == nil {
		return event, fmt.Errorf("%w: config source", querytrace.ErrMissingConfig)
	}

	snap, err := h.Config.Load()
	if err != nil {
		return event, err
	}

	cfg := snap.Config
	if err := cfg.Validate(); err != nil {
		return event, err
	}

	if !trace.SpanContextFromContext(ctx).IsValid() {
		return event, nil
	}

	if snap.IsDisabled(cfg.OwningApplication, cfg.Tracer) {
		return event, nil
	}

	h.emit(ctx, cfg, event, target)

	return event, nil
}

func (h TracingHook) emit(ctx context.Context, cfg querytrace.Config, event querytrace.QueryEvent, target string) {
	unit := h.unit()
	now := h.clock().Now()

	queue := unit.Duration(event.QueueTime)
	query := unit.Duration(event.QueryTime)
	decode := unit.Duration(event.DecodeTime)
	start := now.Add(-(queue + query + decode))

	service := cfg.Service()
	text := event.Text()
	tracer := h.provider().Tracer(cfg.Tracer)

	ctx, span := tracer.Start(
		ctx,
		SpanQuery,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithTimestamp(start),
	)
	span.SetAttributes(
		AttrService.String(service),
		AttrResource.String(text),
		AttrSpanType.String(SpanTypeDB),
		AttrStatement.String(text),
		AttrRows.String(strconv.Itoa(event.Rows())),
		AttrTarget.String(target),
	)

	h.propagate(ctx, span.SpanContext())

	reportError(span, event)

	queueEnd := start.Add(queue)
	queryEnd := queueEnd.Add(query)

	if queue > 0 {
		child(ctx, tracer, SpanQueue, service, start, queueEnd)
	}

	if query > 0 {
		child(ctx, tracer, SpanRunQuery, service, queueEnd, queryEnd)
	}

	if decode > 0 {
		child(ctx, tracer, SpanDecode, service, queryEnd, now)
	}

	span.End(trace.WithTimestamp(now))
}

// propagate hands the span ids to the propagator. Errors and panics are logged
// at debug level and swallowed.
func (h TracingHook) propagate(ctx context.Context, sc trace.SpanContext) {
	defer func() {
		if r := recover(); r != nil {
			h.logger().LogAttrs(ctx, slog.LevelDebug, "trace context propagation panicked",
				slog.Any("panic", r),
			)
		}
	}()

	if err := h.propagator().Propagate(ctx, sc); err != nil {
		h.logger().LogAttrs(ctx, slog.LevelDebug, "trace context propagation failed",
			slog.String("error", err.Error()),
		)
	}
}

func child(ctx context.Context, tracer trace.Tracer, name, service string, start, end time.Time) {
	_, span := tracer.Start(
		ctx,
		name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(start),
		trace.WithAttributes(
			AttrService.String(service),
			AttrSpanType.String(SpanTypeDB),
		),
	)
	span.End(trace.WithTimestamp(end))
}

func reportError(span trace.Span, event querytrace.QueryEvent) {
	err := event.Err()
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, event.ErrorMessage())
}
