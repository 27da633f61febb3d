package testsupport

import (
	"context"
	"testing"
	"time"

	"ferry/internal/assets"
	"ferry/internal/config"
)

// MustOpenStore opens an assets.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *assets.Store {
	t.Helper()

	store, err := assets.Open(cfg)
	if err != nil {
		t.Fatalf("assets.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewAsset creates a pending record for tests using the provided store.
func NewAsset(t testing.TB, store *assets.Store, sourceURL string) *assets.AssetRecord {
	t.Helper()

	rec, err := store.Create(context.Background(), sourceURL)
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return rec
}

// BackdateAttempt rewrites a record's last attempt timestamp so backoff and
// stuck-timeout windows can be crossed without sleeping.
func BackdateAttempt(t testing.TB, store *assets.Store, id string, age time.Duration) {
	t.Helper()

	ctx := context.Background()
	rec, err := store.GetByID(ctx, id)
	if err != nil || rec == nil {
		t.Fatalf("GetByID %s: rec=%v err=%v", id, rec, err)
	}
	past := time.Now().UTC().Add(-age)
	rec.MigrationLastAttemptAt = &past
	if err := store.Update(ctx, rec); err != nil {
		t.Fatalf("Update: %v", err)
	}
}
