package pipeline_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"ferry/internal/assets"
	"ferry/internal/logging"
	"ferry/internal/pipeline"
	"ferry/internal/testsupport"
)

func TestStuckSweepReclaimsStalledUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	detector := pipeline.NewStuckDetector(f.store, 10*time.Minute, nil, nil, logging.NewNop())

	rec := testsupport.NewAsset(t, f.store, f.sourceURL("stalled.mp4"))
	mustTransition(t, f.store, rec.ID, assets.MigrationPending, assets.MigrationDownloading)
	if _, err := f.store.RecordAttempt(ctx, rec.ID); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	mustTransition(t, f.store, rec.ID, assets.MigrationDownloading, assets.MigrationUploading)
	testsupport.BackdateAttempt(t, f.store, rec.ID, 11*time.Minute)

	reclaimed, err := detector.Sweep(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("reclaimed = %d, want 1", reclaimed)
	}

	got, _ := f.store.GetByID(ctx, rec.ID)
	if got.MigrationState != assets.MigrationFailed {
		t.Fatalf("state = %s, want failed", got.MigrationState)
	}
	if !strings.Contains(got.MigrationError, "stuck timeout") {
		t.Fatalf("error %q does not mention the stuck timeout", got.MigrationError)
	}

	// The reclaimed record is now retry-scheduler territory.
	retryable, _, err := f.store.FindRetryable(ctx, time.Now().UTC().Add(10*time.Minute))
	if err != nil {
		t.Fatalf("FindRetryable: %v", err)
	}
	found := false
	for _, r := range retryable {
		if r.ID == rec.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("reclaimed record should become retryable once its backoff elapses")
	}
}

func TestStuckSweepLeavesFreshTransfersAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	detector := pipeline.NewStuckDetector(f.store, 10*time.Minute, nil, nil, logging.NewNop())

	rec := testsupport.NewAsset(t, f.store, f.sourceURL("in-progress.mp4"))
	mustTransition(t, f.store, rec.ID, assets.MigrationPending, assets.MigrationDownloading)
	if _, err := f.store.RecordAttempt(ctx, rec.ID); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	reclaimed, err := detector.Sweep(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if reclaimed != 0 {
		t.Fatalf("reclaimed = %d, want 0", reclaimed)
	}

	got, _ := f.store.GetByID(ctx, rec.ID)
	if got.MigrationState != assets.MigrationDownloading {
		t.Fatalf("fresh transfer must keep its state, got %s", got.MigrationState)
	}
}

func mustTransition(t *testing.T, store *assets.Store, id string, from, to assets.MigrationState) {
	t.Helper()
	ok, err := store.MarkTransition(context.Background(), id, []assets.MigrationState{from}, to)
	if err != nil || !ok {
		t.Fatalf("MarkTransition %s->%s: ok=%v err=%v", from, to, ok, err)
	}
}
