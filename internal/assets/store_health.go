package assets

import (
	"context"
	"database/sql"
	"fmt"
)

// Stats returns a count of records grouped by migration state.
func (s *Store) Stats(ctx context.Context) (map[MigrationState]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT migration_state, COUNT(1) FROM asset_records GROUP BY migration_state`)
	if err != nil {
		return nil, fmt.Errorf("asset stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[MigrationState]int)
	for rows.Next() {
		var state MigrationState
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		stats[state] = count
	}
	return stats, rows.Err()
}

// Health aggregates record state for the operator health view: counts per
// migration and thumbnail state, the terminal success rate, and the list of
// permanently failed records with their last error.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	summary := HealthSummary{
		Migration:  make(map[MigrationState]int),
		Thumbnails: make(map[ThumbnailState]int),
	}

	migration, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	for state, count := range migration {
		summary.Migration[state] = count
		summary.Total += count
	}

	thumbRows, err := s.db.QueryContext(ctx, `SELECT thumbnail_state, COUNT(1) FROM asset_records GROUP BY thumbnail_state`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("thumbnail stats: %w", err)
	}
	defer thumbRows.Close()
	for thumbRows.Next() {
		var state ThumbnailState
		var count int
		if err := thumbRows.Scan(&state, &count); err != nil {
			return HealthSummary{}, err
		}
		summary.Thumbnails[state] = count
	}
	if err := thumbRows.Err(); err != nil {
		return HealthSummary{}, err
	}

	failRows, err := s.db.QueryContext(
		ctx,
		`SELECT id, source_url, migration_attempts, migration_error, migration_last_attempt_at
         FROM asset_records
         WHERE migration_state = ? AND migration_attempts >= ?
         ORDER BY migration_last_attempt_at`,
		MigrationFailed,
		s.maxAttempts,
	)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("permanent failures: %w", err)
	}
	defer failRows.Close()
	for failRows.Next() {
		var (
			entry   PermanentFailure
			lastErr sql.NullString
			lastRaw sql.NullString
		)
		if err := failRows.Scan(&entry.ID, &entry.SourceURL, &entry.Attempts, &lastErr, &lastRaw); err != nil {
			return HealthSummary{}, err
		}
		entry.LastError = lastErr.String
		if lastRaw.Valid {
			if t, err := parseTimeString(lastRaw.String); err == nil {
				entry.LastAttemptAt = &t
			}
		}
		summary.PermanentlyFailed = append(summary.PermanentlyFailed, entry)
	}
	if err := failRows.Err(); err != nil {
		return HealthSummary{}, err
	}

	completed := summary.Migration[MigrationCompleted]
	terminal := completed + len(summary.PermanentlyFailed)
	if terminal > 0 {
		summary.SuccessRate = float64(completed) / float64(terminal)
	} else {
		summary.SuccessRate = 1
	}
	return summary, nil
}
