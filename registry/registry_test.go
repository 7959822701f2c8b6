package registry

import (
	"context"
	"testing"
)

func TestKeyLayout(t *testing.T) {
	if got := RunStatusKey("abc"); got != "run/abc/status" {
		t.Errorf("RunStatusKey = %q", got)
	}
	if got := RunResultKey("abc"); got != "run/abc/result" {
		t.Errorf("RunResultKey = %q", got)
	}
	if got := WorkerKey(3); got != "worker/3" {
		t.Errorf("WorkerKey = %q", got)
	}
}

func TestNilRegistryIsNoOp(t *testing.T) {
	var r *Registry

	ctx := context.Background()
	if err := r.PutRunStatus(ctx, "id", "ready"); err != nil {
		t.Errorf("nil PutRunStatus: %v", err)
	}
	if err := r.PutRunResult(ctx, "id", "/results/results.jtl"); err != nil {
		t.Errorf("nil PutRunResult: %v", err)
	}
	if err := r.RegisterWorker(ctx, 0, "host:50000"); err != nil {
		t.Errorf("nil RegisterWorker: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}

func TestNewWithoutEndpoints(t *testing.T) {
	r, err := New(nil)
	if err != nil {
		t.Fatalf("New(nil) failed: %v", err)
	}
	if r != nil {
		t.Fatal("empty endpoints must disable the registry")
	}
}
