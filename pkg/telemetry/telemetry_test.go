package telemetry

import (
	"bytes"
	"context"
	"testing"
)

func TestInitNone(t *testing.T) {
	for _, exporter := range []string{"", "none"} {
		shutdown, err := InitWithConfig("specforge-test", "v0.0.1", Config{Exporter: exporter})
		if err != nil {
			t.Fatalf("InitWithConfig(%q) failed: %v", exporter, err)
		}
		if err := shutdown(context.Background()); err != nil {
			t.Errorf("shutdown failed: %v", err)
		}
	}
}

func TestInitStdout(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitWithConfig("specforge-test", "v0.0.1", Config{Exporter: "stdout", Output: &buf})
	if err != nil {
		t.Fatalf("InitWithConfig failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestInitErrors(t *testing.T) {
	if _, err := InitWithConfig("s", "v", Config{Exporter: "otlp"}); err == nil {
		t.Error("expected error for otlp without endpoint")
	}
	if _, err := InitWithConfig("s", "v", Config{Exporter: "zipkin"}); err == nil {
		t.Error("expected error for unknown exporter")
	}
}
