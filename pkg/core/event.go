package core

import (
	"context"
	"sync"
	"time"
)

// EventType identifies a semantic event emitted during a run.
type EventType string

const (
	EventRunStarted    EventType = "run.started"
	EventRunCompleted  EventType = "run.completed"
	EventRoleStarted   EventType = "role.started"
	EventRoleChunk     EventType = "role.chunk"
	EventRoleCompleted EventType = "role.completed"
	EventRoleFailed    EventType = "role.failed"
)

// Event captures a semantic progress/logging event.
type Event struct {
	Type      EventType
	RunID     string
	Role      string
	Step      int
	Total     int
	Timestamp time.Time
	Payload   map[string]any
}

// EventEmitter receives semantic events.
type EventEmitter interface {
	Emit(ctx context.Context, event Event)
}

// NoopEventEmitter is a default no-op implementation.
type NoopEventEmitter struct{}

// Emit implements EventEmitter.
func (NoopEventEmitter) Emit(_ context.Context, _ Event) {}

// EmitterFunc adapts a function into an EventEmitter.
type EmitterFunc func(ctx context.Context, event Event)

// Emit implements EventEmitter.
func (f EmitterFunc) Emit(ctx context.Context, event Event) { f(ctx, event) }

// MultiEmitter fans an event out to several emitters in order.
type MultiEmitter []EventEmitter

// Emit implements EventEmitter.
func (m MultiEmitter) Emit(ctx context.Context, event Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(ctx, event)
		}
	}
}

// RecordingEmitter keeps every event it receives. Safe for concurrent use.
type RecordingEmitter struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements EventEmitter.
func (r *RecordingEmitter) Emit(_ context.Context, event Event) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *RecordingEmitter) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types, skipping chunks.
func (r *RecordingEmitter) Types() []EventType {
	var out []EventType
	for _, e := range r.Events() {
		if e.Type == EventRoleChunk {
			continue
		}
		out = append(out, e.Type)
	}
	return out
}

// NewEvent builds a default event with timestamp.
func NewEvent(eventType EventType, role string, payload map[string]any) Event {
	return Event{
		Type:      eventType,
		Role:      role,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
