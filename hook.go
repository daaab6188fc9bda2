// Package querytrace turns completed database query events into trace spans.
//
// A database client reports each finished query as a QueryEvent to one or more
// Hook implementations (see the hooks package). Hooks are pass-through: they
// return the event they received so the caller's pipeline can continue.
package querytrace

import "context"

// Hook is invoked once per completed query with the event and the identifier of
// the store that executed it.
type Hook interface {
	HandleQuery(ctx context.Context, event QueryEvent, target string) (QueryEvent, error)
}

// HookFunc adapts a function to the Hook interface.
type HookFunc func(ctx context.Context, event QueryEvent, target string) (QueryEvent, error)

// HandleQuery calls f.
func (f HookFunc) HandleQuery(ctx context.Context, event QueryEvent, target string) (QueryEvent, error) {
	return f(ctx, event, target)
}

// Chain runs hooks in order, feeding each the event returned by the previous one.
// The first error stops the chain and is returned with the last good event.
//
// A Thunk query is memoized before the first hook runs, so it is evaluated at
// most once for the whole chain.
type Chain []Hook

// HandleQuery implements Hook.
func (c Chain) HandleQuery(ctx context.Context, event QueryEvent, target string) (QueryEvent, error) {
	event = event.Memoize()

	for _, h := range c {
		if h == nil {
			continue
		}

		next, err := h.HandleQuery(ctx, event, target)
		if err != nil {
			return event, err
		}

		event = next
	}

	return event, nil
}
