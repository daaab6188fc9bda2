package hooks

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jeanmolossi/querytrace/logctx"
	"go.opentelemetry.io/otel/trace"
)

// Log field keys written by ContextPropagator.
const (
	FieldTraceID = "trace_id"
	FieldSpanID  = "span_id"
)

// LogPropagator exposes the ids of a span to subsequent log statements.
// Propagation is best effort: a returned error never aborts span emission.
type LogPropagator interface {
	Propagate(ctx context.Context, sc trace.SpanContext) error
}

// NopPropagator discards span ids.
type NopPropagator struct{}

// Propagate implements LogPropagator.
func (NopPropagator) Propagate(context.Context, trace.SpanContext) error { return nil }

// ContextPropagator stores trace_id and span_id in the logctx bag carried by ctx.
// Contexts without a bag are left alone.
type ContextPropagator struct {
	// Strict reports a missing bag as an error.
	Strict bool
}

// Propagate implements LogPropagator.
func (p ContextPropagator) Propagate(ctx context.Context, sc trace.SpanContext) error {
	err := logctx.Set(ctx,
		slog.String(FieldTraceID, sc.TraceID().String()),
		slog.String(FieldSpanID, sc.SpanID().String()),
	)
	if errors.Is(err, logctx.ErrNoFields) && !p.Strict {
		return nil
	}

	return err
}
