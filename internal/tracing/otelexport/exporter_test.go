package otelexport

import (
	"context"
	"testing"
)

func TestNew_EmptyEndpoint(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil {
		t.Error("expected error for empty endpoint")
	}
}

func TestExporter_NilSafe(t *testing.T) {
	var exp *Exporter
	exp.Install()
	if err := exp.Shutdown(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConfig_DefaultServiceName(t *testing.T) {
	if got := (Config{}).serviceName(); got != "mcpgate" {
		t.Errorf("serviceName() = %q, want mcpgate", got)
	}
	if got := (Config{ServiceName: "edge"}).serviceName(); got != "edge" {
		t.Errorf("serviceName() = %q, want edge", got)
	}
}

func TestNew_HTTPProtocol(t *testing.T) {
	exp, err := New(context.Background(), Config{Endpoint: "localhost:4318", Protocol: "http", Insecure: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := exp.Shutdown(context.Background()); err != nil {
		t.Logf("shutdown: %v", err)
	}
}
