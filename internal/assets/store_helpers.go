package assets

import (
	"database/sql"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const recordColumns = "id, source_url, durable_url, migration_state, migration_attempts, migration_last_attempt_at, migration_error, thumbnail_url, thumbnail_state, thumbnail_placeholder, thumbnail_error, thumbnail_generated_at, created_at, updated_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*AssetRecord, error) {
	var (
		id             string
		sourceURL      string
		durableURL     sql.NullString
		stateStr       string
		attempts       int
		lastAttemptRaw sql.NullString
		migrationError sql.NullString
		thumbURL       sql.NullString
		thumbStateStr  string
		thumbPlacehold sql.NullInt64
		thumbError     sql.NullString
		thumbGenRaw    sql.NullString
		createdRaw     string
		updatedRaw     string
	)

	if err := scanner.Scan(
		&id,
		&sourceURL,
		&durableURL,
		&stateStr,
		&attempts,
		&lastAttemptRaw,
		&migrationError,
		&thumbURL,
		&thumbStateStr,
		&thumbPlacehold,
		&thumbError,
		&thumbGenRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	rec := &AssetRecord{
		ID:                id,
		SourceURL:         sourceURL,
		DurableURL:        durableURL.String,
		MigrationState:    MigrationState(stateStr),
		MigrationAttempts: attempts,
		MigrationError:    migrationError.String,
		ThumbnailURL:      thumbURL.String,
		ThumbnailState:    ThumbnailState(thumbStateStr),
		ThumbnailError:    thumbError.String,
	}
	if thumbPlacehold.Valid {
		rec.ThumbnailPlaceholder = thumbPlacehold.Int64 != 0
	}
	if lastAttemptRaw.Valid {
		if t, err := parseTimeString(lastAttemptRaw.String); err == nil {
			rec.MigrationLastAttemptAt = &t
		}
	}
	if thumbGenRaw.Valid {
		if t, err := parseTimeString(thumbGenRaw.String); err == nil {
			rec.ThumbnailGeneratedAt = &t
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		rec.UpdatedAt = updated
	}
	return rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// truncateError bounds stored failure messages so one runaway response body
// cannot bloat the record.
func truncateError(msg string) string {
	msg = strings.TrimSpace(msg)
	if len(msg) <= errorMessageLimit {
		return msg
	}
	cut := msg[:errorMessageLimit]
	for !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut + "..."
}

func statePlaceholders(states []MigrationState) (string, []any) {
	placeholders := make([]byte, 0, len(states)*2)
	args := make([]any, 0, len(states))
	for i, state := range states {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, string(state))
	}
	return string(placeholders), args
}
