package core

import (
	"context"
	"testing"
)

func TestRecordingEmitterSkipsChunksInTypes(t *testing.T) {
	rec := &RecordingEmitter{}
	ctx := context.Background()
	rec.Emit(ctx, NewEvent(EventRoleStarted, "researcher", nil))
	rec.Emit(ctx, NewEvent(EventRoleChunk, "researcher", map[string]any{"content": "a"}))
	rec.Emit(ctx, NewEvent(EventRoleCompleted, "researcher", nil))

	if got := len(rec.Events()); got != 3 {
		t.Fatalf("expected 3 events, got %d", got)
	}
	types := rec.Types()
	if len(types) != 2 || types[0] != EventRoleStarted || types[1] != EventRoleCompleted {
		t.Fatalf("unexpected types: %v", types)
	}
}

func TestMultiEmitter(t *testing.T) {
	a, b := &RecordingEmitter{}, &RecordingEmitter{}
	count := 0
	m := MultiEmitter{a, nil, b, EmitterFunc(func(context.Context, Event) { count++ })}
	m.Emit(context.Background(), NewEvent(EventRunStarted, "", nil))
	if len(a.Events()) != 1 || len(b.Events()) != 1 || count != 1 {
		t.Fatalf("expected every emitter to receive the event")
	}
}

func TestEnsureRunID(t *testing.T) {
	ctx, id := EnsureRunID(context.Background())
	if id == "" {
		t.Fatal("expected generated run id")
	}
	ctx2, id2 := EnsureRunID(ctx)
	if id2 != id || ctx2 != ctx {
		t.Fatal("expected existing run id to be reused")
	}
	if _, ok := RunID(WithRunID(context.Background(), "")); ok {
		t.Fatal("empty run id should not count")
	}
}

func TestRoleFrom(t *testing.T) {
	if _, ok := RoleFrom(context.Background()); ok {
		t.Fatal("bare context carries no role")
	}
	ctx := WithRole(WithRunID(context.Background(), "run-1"), "designer")
	if role, ok := RoleFrom(ctx); !ok || role != "designer" {
		t.Fatalf("RoleFrom = %q, %v", role, ok)
	}
	if id, _ := RunID(ctx); id != "run-1" {
		t.Fatalf("run id lost, got %q", id)
	}
}
