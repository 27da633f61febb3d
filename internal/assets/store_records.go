package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"ferry/internal/services"
)

// Create inserts a record for an asset the generation provider reported
// ready. The new record starts pending/absent and the transition callback
// fires so the pipeline can dispatch migration and thumbnail work.
func (s *Store) Create(ctx context.Context, sourceURL string) (*AssetRecord, error) {
	trimmed := strings.TrimSpace(sourceURL)
	if trimmed == "" {
		return nil, services.Wrap(services.ErrValidation, "assets", "create", "source url is required", nil)
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, services.Wrap(services.ErrValidation, "assets", "create", "source url", err)
	}

	id := uuid.NewString()
	timestamp := formatTime(time.Now().UTC())

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO asset_records (
            id, source_url, migration_state, thumbnail_state, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		trimmed,
		MigrationPending,
		ThumbnailAbsent,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert asset: %w", err)
	}

	rec, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifyTransition(rec, "", MigrationPending)
	return rec, nil
}

// GetByID fetches a record by identifier. Missing ids return (nil, nil).
func (s *Store) GetByID(ctx context.Context, id string) (*AssetRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM asset_records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return rec, nil
}

// List returns records filtered by migration state (or all records when no
// state is provided), oldest first.
func (s *Store) List(ctx context.Context, states ...MigrationState) ([]*AssetRecord, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + recordColumns + ` FROM asset_records`
	orderClause := ` ORDER BY created_at`

	if len(states) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders, args := statePlaceholders(states)
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE migration_state IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var records []*AssetRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Update persists an existing record wholesale. Intended for tests and
// operator tooling; pipeline code goes through the transition primitives.
func (s *Store) Update(ctx context.Context, rec *AssetRecord) error {
	if rec == nil {
		return errors.New("record is nil")
	}
	rec.UpdatedAt = time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE asset_records
         SET source_url = ?, durable_url = ?, migration_state = ?, migration_attempts = ?,
             migration_last_attempt_at = ?, migration_error = ?, thumbnail_url = ?,
             thumbnail_state = ?, thumbnail_placeholder = ?, thumbnail_error = ?,
             thumbnail_generated_at = ?, updated_at = ?
         WHERE id = ?`,
		rec.SourceURL,
		nullableString(rec.DurableURL),
		rec.MigrationState,
		rec.MigrationAttempts,
		nullableTime(rec.MigrationLastAttemptAt),
		nullableString(rec.MigrationError),
		nullableString(rec.ThumbnailURL),
		rec.ThumbnailState,
		boolToInt(rec.ThumbnailPlaceholder),
		nullableString(rec.ThumbnailError),
		nullableTime(rec.ThumbnailGeneratedAt),
		formatTime(rec.UpdatedAt),
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update asset: %w", err)
	}
	return nil
}
