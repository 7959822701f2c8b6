package trigger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGateInitiallyAbsent(t *testing.T) {
	g := New(filepath.Join(t.TempDir(), "run_test"))
	if g.Present() {
		t.Fatal("new gate must be absent")
	}
}

func TestSetIsMonotonicAndIdempotent(t *testing.T) {
	g := New(filepath.Join(t.TempDir(), "run_test"))

	if err := g.Set(); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := g.Set(); err != nil {
		t.Fatalf("second Set failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if !g.Present() {
			t.Fatal("gate reverted after Set")
		}
	}
}

func TestExternalFileRaisesGate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run_test")
	g := New(path)

	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("creating trigger file: %v", err)
	}
	if !g.Present() {
		t.Fatal("externally created trigger file not observed")
	}
}

func TestSignalPersistsForLateObserver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run_test")

	if err := New(path).Set(); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// A restarted observer sees the signal: it is state, not an event.
	if !New(path).Present() {
		t.Fatal("trigger did not persist across gates")
	}
}

func TestWaitReturnsAfterSet(t *testing.T) {
	g := New(filepath.Join(t.TempDir(), "run_test"))

	done := make(chan error, 1)
	go func() {
		done <- g.Wait(context.Background(), time.Millisecond)
	}()

	time.Sleep(10 * time.Millisecond)
	if err := g.Set(); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not observe the trigger")
	}
}

func TestWaitHonorsCancellation(t *testing.T) {
	g := New(filepath.Join(t.TempDir(), "run_test"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- g.Wait(ctx, time.Millisecond)
	}()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Wait returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait ignored cancellation")
	}
}

func TestWaitReturnsImmediatelyWhenPresent(t *testing.T) {
	g := New(filepath.Join(t.TempDir(), "run_test"))
	if err := g.Set(); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := g.Wait(context.Background(), time.Hour); err != nil {
		t.Fatalf("Wait on present gate failed: %v", err)
	}
}
