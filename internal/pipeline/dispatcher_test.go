package pipeline_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"ferry/internal/logging"
	"ferry/internal/pipeline"
	"ferry/internal/services"
)

func TestDispatcherReturnsImmediately(t *testing.T) {
	d := pipeline.NewDispatcher(2, time.Minute, logging.NewNop(), nil)
	release := make(chan struct{})
	done := make(chan string, 1)

	start := time.Now()
	id, ok := d.Dispatch(context.Background(), "migration", "asset-1", func(ctx context.Context) {
		<-release
		got, _ := services.DispatchIDFromContext(ctx)
		done <- got
	})
	if !ok {
		t.Fatal("dispatch should be accepted")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("dispatch blocked for %s", elapsed)
	}
	if id == "" {
		t.Fatal("dispatch id must be set")
	}

	close(release)
	select {
	case got := <-done:
		if got != id {
			t.Fatalf("worker saw dispatch id %q, want %q", got, id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("worker never ran")
	}
	d.Close()
}

func TestDispatcherDropsWhenSaturated(t *testing.T) {
	d := pipeline.NewDispatcher(1, time.Minute, logging.NewNop(), nil)
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	if _, ok := d.Dispatch(context.Background(), "migration", "asset-1", func(ctx context.Context) {
		defer wg.Done()
		<-release
	}); !ok {
		t.Fatal("first dispatch should be accepted")
	}

	if _, ok := d.Dispatch(context.Background(), "migration", "asset-2", func(ctx context.Context) {
		t.Error("dropped dispatch must not run")
	}); ok {
		t.Fatal("second dispatch should be dropped while the pool is saturated")
	}

	close(release)
	wg.Wait()
	d.Close()
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := pipeline.NewDispatcher(1, time.Minute, logging.NewNop(), nil)
	d.Close()
	if _, ok := d.Dispatch(context.Background(), "migration", "asset-1", func(context.Context) {
		t.Error("dispatch after close must not run")
	}); ok {
		t.Fatal("dispatch after close should be rejected")
	}
}
