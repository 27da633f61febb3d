package api

import (
	"ferry/internal/assets"
)

// FromAssetRecord converts a store record into its wire representation.
func FromAssetRecord(rec *assets.AssetRecord) Asset {
	if rec == nil {
		return Asset{}
	}
	out := Asset{
		ID:                   rec.ID,
		SourceURL:            rec.SourceURL,
		DurableURL:           rec.DurableURL,
		MigrationState:       string(rec.MigrationState),
		MigrationAttempts:    rec.MigrationAttempts,
		MigrationError:       rec.MigrationError,
		ThumbnailURL:         rec.ThumbnailURL,
		ThumbnailState:       string(rec.ThumbnailState),
		ThumbnailPlaceholder: rec.ThumbnailPlaceholder,
		ThumbnailError:       rec.ThumbnailError,
	}
	if rec.MigrationLastAttemptAt != nil {
		out.MigrationLastAttemptAt = rec.MigrationLastAttemptAt.Format(dateTimeFormat)
	}
	if rec.ThumbnailGeneratedAt != nil {
		out.ThumbnailGeneratedAt = rec.ThumbnailGeneratedAt.Format(dateTimeFormat)
	}
	if !rec.CreatedAt.IsZero() {
		out.CreatedAt = rec.CreatedAt.Format(dateTimeFormat)
	}
	if !rec.UpdatedAt.IsZero() {
		out.UpdatedAt = rec.UpdatedAt.Format(dateTimeFormat)
	}
	return out
}

// FromAssetRecords converts a record slice, preserving order.
func FromAssetRecords(recs []*assets.AssetRecord) []Asset {
	if len(recs) == 0 {
		return nil
	}
	out := make([]Asset, 0, len(recs))
	for _, rec := range recs {
		out = append(out, FromAssetRecord(rec))
	}
	return out
}

// FromHealthSummary converts the store's health aggregate to wire form.
func FromHealthSummary(summary assets.HealthSummary) HealthResponse {
	out := HealthResponse{
		Total:       summary.Total,
		Migration:   make(map[string]int, len(summary.Migration)),
		Thumbnails:  make(map[string]int, len(summary.Thumbnails)),
		SuccessRate: summary.SuccessRate,
	}
	for state, count := range summary.Migration {
		out.Migration[string(state)] = count
	}
	for state, count := range summary.Thumbnails {
		out.Thumbnails[string(state)] = count
	}
	for _, failure := range summary.PermanentlyFailed {
		entry := PermanentFailure{
			ID:        failure.ID,
			SourceURL: failure.SourceURL,
			Attempts:  failure.Attempts,
			LastError: failure.LastError,
		}
		if failure.LastAttemptAt != nil {
			entry.LastAttemptAt = failure.LastAttemptAt.Format(dateTimeFormat)
		}
		out.PermanentlyFailed = append(out.PermanentlyFailed, entry)
	}
	return out
}

// MergeStats flattens typed state counts into string keys for transport.
func MergeStats(stats map[assets.MigrationState]int) map[string]int {
	if len(stats) == 0 {
		return nil
	}
	out := make(map[string]int, len(stats))
	for state, count := range stats {
		out[string(state)] = count
	}
	return out
}
