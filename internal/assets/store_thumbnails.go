package assets

import (
	"context"
	"fmt"
	"time"
)

// ClaimThumbnail is the thumbnail worker's idempotency guard: a CAS that
// moves absent, failed, or placeholder-only records into generating. A ready
// non-placeholder thumbnail can never be claimed again.
func (s *Store) ClaimThumbnail(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE asset_records SET thumbnail_state = ?, thumbnail_error = NULL, updated_at = ?
         WHERE id = ?
           AND (thumbnail_state IN (?, ?)
                OR (thumbnail_state = ? AND thumbnail_placeholder = 1))`,
		ThumbnailGenerating,
		formatTime(time.Now().UTC()),
		id,
		ThumbnailAbsent,
		ThumbnailFailed,
		ThumbnailReady,
	)
	if err != nil {
		return false, fmt.Errorf("claim thumbnail: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim thumbnail rows: %w", err)
	}
	return affected == 1, nil
}

// RecordThumbnail marks thumbnail generation successful.
func (s *Store) RecordThumbnail(ctx context.Context, id, thumbnailURL string, placeholder bool) error {
	now := formatTime(time.Now().UTC())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE asset_records
         SET thumbnail_url = ?, thumbnail_state = ?, thumbnail_placeholder = ?,
             thumbnail_error = NULL, thumbnail_generated_at = ?, updated_at = ?
         WHERE id = ?`,
		thumbnailURL,
		ThumbnailReady,
		boolToInt(placeholder),
		now,
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("record thumbnail: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record thumbnail rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("record thumbnail: asset %s not found", id)
	}
	return nil
}

// RecordThumbnailFailure marks thumbnail generation failed with a truncated
// error message. Migration state is untouched; the two lifecycles stay
// independent.
func (s *Store) RecordThumbnailFailure(ctx context.Context, id, message string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE asset_records SET thumbnail_state = ?, thumbnail_error = ?, updated_at = ?
         WHERE id = ?`,
		ThumbnailFailed,
		truncateError(message),
		formatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("record thumbnail failure: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record thumbnail failure rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("record thumbnail failure: asset %s not found", id)
	}
	return nil
}
