// Package logctx carries a mutable set of log fields in a context.Context.
//
// Fields set on the bag are appended by Handler to every record logged with a
// context derived from the one the bag was attached to.
package logctx

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrNoFields is returned by Set when the context carries no field bag.
var ErrNoFields = errors.New("logctx: no fields in context")

type fieldsKey struct{}

// Fields is a goroutine-safe key/value bag.
type Fields struct {
	mu    sync.RWMutex
	keys  []string
	attrs map[string]slog.Attr
}

// NewContext attaches a new, empty bag to ctx. An existing bag is reused.
func NewContext(ctx context.Context) (context.Context, *Fields) {
	if f := FromContext(ctx); f != nil {
		return ctx, f
	}

	f := &Fields{attrs: map[string]slog.Attr{}}

	return context.WithValue(ctx, fieldsKey{}, f), f
}

// FromContext returns the bag attached to ctx, or nil.
func FromContext(ctx context.Context) *Fields {
	if ctx == nil {
		return nil
	}

	f, _ := ctx.Value(fieldsKey{}).(*Fields)

	return f
}

// Set stores attrs on the bag carried by ctx, replacing values with the same key.
func Set(ctx context.Context, attrs ...slog.Attr) error {
	f := FromContext(ctx)
	if f == nil {
		return ErrNoFields
	}

	f.Set(attrs...)

	return nil
}

// Set stores attrs, replacing values with the same key.
func (f *Fields) Set(attrs ...slog.Attr) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, a := range attrs {
		if _, ok := f.attrs[a.Key]; !ok {
			f.keys = append(f.keys, a.Key)
		}

		f.attrs[a.Key] = a
	}
}

// Get returns the attribute stored under key.
func (f *Fields) Get(key string) (slog.Attr, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	a, ok := f.attrs[key]

	return a, ok
}

// Attrs returns the stored attributes in insertion order.
func (f *Fields) Attrs() []slog.Attr {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]slog.Attr, 0, len(f.keys))
	for _, k := range f.keys {
		out = append(out, f.attrs[k])
	}

	return out
}

// Handler decorates an slog.Handler with the fields of the record's context.
type Handler struct {
	next slog.Handler
}

// NewHandler wraps next.
func NewHandler(next slog.Handler) *Handler {
	return &Handler{next: next}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if f := FromContext(ctx); f != nil {
		if attrs := f.Attrs(); len(attrs) > 0 {
			r = r.Clone()
			r.AddAttrs(attrs...)
		}
	}

	return h.next.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{next: h.next.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name)}
}
