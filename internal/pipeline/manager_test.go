package pipeline_test

import (
	"context"
	"testing"
	"time"

	"ferry/internal/assets"
	"ferry/internal/logging"
	"ferry/internal/pipeline"
	"ferry/internal/testsupport"
)

func TestManagerDispatchesOnCreate(t *testing.T) {
	f := newFixture(t)
	mgr := pipeline.NewManager(f.cfg, f.store, logging.NewNop())
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()

	ctx := context.Background()
	rec, err := f.store.Create(ctx, f.sourceURL("auto.mp4"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	waitFor(t, 5*time.Second, func() bool {
		got, err := f.store.GetByID(ctx, rec.ID)
		return err == nil &&
			got.MigrationState == assets.MigrationCompleted &&
			got.ThumbnailState == assets.ThumbnailReady
	}, "creation should trigger both migration and thumbnail dispatch")
}

func TestManagerDispatchesOnRequeue(t *testing.T) {
	f := newFixture(t)
	mgr := pipeline.NewManager(f.cfg, f.store, logging.NewNop())
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()

	ctx := context.Background()

	// Exhaust the retry budget while the upload target is down.
	f.storage.setFail(true)
	rec := testsupport.NewAsset(t, f.store, f.sourceURL("manual.mp4"))
	waitFor(t, 5*time.Second, func() bool {
		got, err := f.store.GetByID(ctx, rec.ID)
		return err == nil && got.MigrationState == assets.MigrationFailed
	}, "initial dispatch should fail at the upload stage")
	for i := 1; i < f.cfg.Pipeline.MaxAttempts; i++ {
		if _, err := f.store.RecordAttempt(ctx, rec.ID); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}

	// Operator override bypasses backoff and the attempt cap.
	f.storage.setFail(false)
	dispatchID, err := mgr.Requeue(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Requeue: %v", err)
	}
	if dispatchID == "" {
		t.Fatal("requeue should report its dispatch id")
	}

	waitFor(t, 5*time.Second, func() bool {
		got, err := f.store.GetByID(ctx, rec.ID)
		return err == nil && got.MigrationState == assets.MigrationCompleted
	}, "requeue should re-dispatch the migration worker")

	got, _ := f.store.GetByID(ctx, rec.ID)
	if got.MigrationAttempts <= f.cfg.Pipeline.MaxAttempts {
		t.Fatalf("attempts = %d, requeue must preserve attempt history", got.MigrationAttempts)
	}
}

func TestManagerStartStop(t *testing.T) {
	f := newFixture(t)
	mgr := pipeline.NewManager(f.cfg, f.store, logging.NewNop())

	if _, ok := mgr.DispatchMigration("nope"); ok {
		t.Fatal("dispatch before Start should be refused")
	}
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := mgr.Start(context.Background()); err == nil {
		t.Fatal("second Start should fail while running")
	}
	mgr.Stop()
	mgr.Stop()

	if _, ok := mgr.DispatchMigration("nope"); ok {
		t.Fatal("dispatch after Stop should be refused")
	}
}
