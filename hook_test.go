package querytrace

import (
	"context"
	"errors"
	"testing"
)

func TestChainPassesEventThrough(t *testing.T) {
	var seen []string

	record := func(name string) Hook {
		return HookFunc(func(_ context.Context, event QueryEvent, target string) (QueryEvent, error) {
			seen = append(seen, name+":"+target+":"+event.Text())

			return event, nil
		})
	}

	event := QueryEvent{Query: Literal("SELECT 1")}

	got, err := Chain{record("a"), nil, record("b")}.HandleQuery(context.Background(), event, "repo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Query != event.Query {
		t.Fatalf("expected the event to be returned unchanged")
	}

	if len(seen) != 2 || seen[0] != "a:repo:SELECT 1" || seen[1] != "b:repo:SELECT 1" {
		t.Fatalf("unexpected calls: %v", seen)
	}
}

func TestChainStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	called := false

	chain := Chain{
		HookFunc(func(context.Context, QueryEvent, string) (QueryEvent, error) {
			return QueryEvent{}, boom
		}),
		HookFunc(func(_ context.Context, event QueryEvent, _ string) (QueryEvent, error) {
			called = true

			return event, nil
		}),
	}

	event := QueryEvent{Query: Literal("SELECT 1")}

	got, err := chain.HandleQuery(context.Background(), event, "repo")
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if called {
		t.Fatalf("expected the chain to stop")
	}

	if got.Query != event.Query {
		t.Fatalf("expected the last good event")
	}
}

func TestChainEvaluatesThunkOnce(t *testing.T) {
	calls := 0
	event := QueryEvent{Query: Thunk(func() (string, bool) {
		calls++

		return "SELECT 1", true
	})}

	readText := HookFunc(func(_ context.Context, event QueryEvent, _ string) (QueryEvent, error) {
		if got := event.Text(); got != "SELECT 1" {
			t.Fatalf("unexpected text: %q", got)
		}

		return event, nil
	})

	got, err := Chain{readText, readText, readText}.HandleQuery(context.Background(), event, "repo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Text() != "SELECT 1" {
		t.Fatalf("unexpected returned text: %q", got.Text())
	}

	if calls != 1 {
		t.Fatalf("expected the thunk to be evaluated once, got %d", calls)
	}
}
