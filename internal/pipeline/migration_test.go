package pipeline_test

import (
	"context"
	"strings"
	"testing"

	"ferry/internal/assets"
	"ferry/internal/storage"
	"ferry/internal/testsupport"
)

func TestMigrationWorkerCompletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := testsupport.NewAsset(t, f.store, f.sourceURL("ok.mp4"))

	f.migration.Run(ctx, rec.ID)

	got, err := f.store.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.MigrationState != assets.MigrationCompleted {
		t.Fatalf("state = %s, want completed", got.MigrationState)
	}
	if got.MigrationAttempts != 1 {
		t.Fatalf("attempts = %d, want 1", got.MigrationAttempts)
	}
	if got.MigrationError != "" {
		t.Fatalf("unexpected error message: %q", got.MigrationError)
	}
	if !strings.HasSuffix(got.DurableURL, storage.VideoKey(rec.ID)) {
		t.Fatalf("durable URL %q does not target the deterministic key", got.DurableURL)
	}

	uploads := f.storage.uploads()
	if len(uploads) != 1 || !strings.HasSuffix(uploads[0], storage.VideoKey(rec.ID)) {
		t.Fatalf("unexpected uploads: %v", uploads)
	}
}

func TestMigrationWorkerRecordsUploadFailure(t *testing.T) {
	f := newFixture(t)
	f.storage.setFail(true)
	ctx := context.Background()
	rec := testsupport.NewAsset(t, f.store, f.sourceURL("bad-upload.mp4"))

	f.migration.Run(ctx, rec.ID)

	got, err := f.store.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.MigrationState != assets.MigrationFailed {
		t.Fatalf("state = %s, want failed", got.MigrationState)
	}
	if got.MigrationAttempts != 1 {
		t.Fatalf("attempts = %d, want 1", got.MigrationAttempts)
	}
	if !strings.Contains(got.MigrationError, "upload failed") {
		t.Fatalf("error %q does not mention the upload stage", got.MigrationError)
	}
	if got.DurableURL != "" {
		t.Fatalf("durable URL must stay empty on failure, got %q", got.DurableURL)
	}
}

func TestMigrationWorkerRecordsDownloadFailure(t *testing.T) {
	f := newFixture(t)
	f.provider.setFail(true)
	ctx := context.Background()
	rec := testsupport.NewAsset(t, f.store, f.sourceURL("bad-download.mp4"))

	f.migration.Run(ctx, rec.ID)

	got, _ := f.store.GetByID(ctx, rec.ID)
	if got.MigrationState != assets.MigrationFailed {
		t.Fatalf("state = %s, want failed", got.MigrationState)
	}
	if !strings.Contains(got.MigrationError, "download failed") {
		t.Fatalf("error %q does not mention the download stage", got.MigrationError)
	}
	if len(f.storage.uploads()) != 0 {
		t.Fatal("upload must not run after a failed download")
	}
}

func TestMigrationWorkerIdempotentOnCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := testsupport.NewAsset(t, f.store, f.sourceURL("once.mp4"))

	f.migration.Run(ctx, rec.ID)
	before, _ := f.store.GetByID(ctx, rec.ID)
	if before.MigrationState != assets.MigrationCompleted {
		t.Fatalf("setup: state = %s, want completed", before.MigrationState)
	}
	fetches := f.provider.requests()

	// A duplicate dispatch loses the claim and must cause no side effects.
	f.migration.Run(ctx, rec.ID)

	after, _ := f.store.GetByID(ctx, rec.ID)
	if after.MigrationState != assets.MigrationCompleted || after.MigrationAttempts != before.MigrationAttempts {
		t.Fatalf("duplicate dispatch changed state: %+v", after)
	}
	if f.provider.requests() != fetches {
		t.Fatal("duplicate dispatch must not refetch source bytes")
	}
	if len(f.storage.uploads()) != 1 {
		t.Fatalf("duplicate dispatch must not re-upload, got %v", f.storage.uploads())
	}
}

func TestMigrationWorkerAttemptsNeverDecrease(t *testing.T) {
	f := newFixture(t)
	f.storage.setFail(true)
	ctx := context.Background()
	rec := testsupport.NewAsset(t, f.store, f.sourceURL("counting.mp4"))

	f.migration.Run(ctx, rec.ID)
	f.migration.Run(ctx, rec.ID)

	got, _ := f.store.GetByID(ctx, rec.ID)
	if got.MigrationAttempts != 2 {
		t.Fatalf("attempts = %d, want exactly one increment per dispatched attempt", got.MigrationAttempts)
	}
}
