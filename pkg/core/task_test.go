package core

import "testing"

func TestTaskLifecycle(t *testing.T) {
	task := NewTask("researcher")
	if task.Status != TaskStatusPending {
		t.Fatalf("expected pending status")
	}
	if task.ID == "" {
		t.Fatalf("expected generated id")
	}
	if task.Complete("too early") {
		t.Fatalf("pending task must not complete")
	}
	if !task.Start() {
		t.Fatalf("expected start to succeed")
	}
	if task.Start() {
		t.Fatalf("running task must not start twice")
	}
	if !task.Complete("done") {
		t.Fatalf("expected completion to succeed")
	}
	if task.Status != TaskStatusCompleted || task.Output != "done" {
		t.Fatalf("unexpected task state: %+v", task)
	}
	if task.Fail("late", "placeholder") {
		t.Fatalf("completed task must not fail")
	}
	if !task.Done() {
		t.Fatalf("expected task to be done")
	}
	if task.Duration() < 0 {
		t.Fatalf("negative duration")
	}
}

func TestTaskFailStoresPlaceholder(t *testing.T) {
	task := NewTask("designer")
	task.Start()
	if !task.Fail("timeout", "role designer failed: timeout") {
		t.Fatalf("expected failure transition")
	}
	if task.Status != TaskStatusFailed {
		t.Fatalf("expected failed status")
	}
	if task.Error != "timeout" {
		t.Fatalf("expected reason, got %q", task.Error)
	}
	if task.Output != "role designer failed: timeout" {
		t.Fatalf("expected placeholder output, got %q", task.Output)
	}
}
