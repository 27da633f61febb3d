// Package assets persists per-video AssetRecords in SQLite and exposes the
// atomic transition primitives the migration and thumbnail workers rely on.
//
// The compare-and-swap transition is the single serialization point per
// asset id: whichever caller's UPDATE matches the expected state wins, every
// other caller loses silently. The store also owns the sweep queries
// (retryable and stuck records), aggregate health reporting, and an explicit
// transition callback registered on the write path that the pipeline uses to
// trigger dispatches.
//
// Records are never deleted here; the database is the durable system of
// record for migration and thumbnail lifecycles. Schema changes bump the
// version in schema.go.
package assets
