package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ferry/internal/services"
)

// MarkTransition performs the compare-and-swap that serializes all migration
// mutations per asset id. It returns true when this caller moved the record
// from one of the expected states into next; false means another caller got
// there first (or the record is missing) and the caller must abort silently.
func (s *Store) MarkTransition(ctx context.Context, id string, expected []MigrationState, next MigrationState) (bool, error) {
	if len(expected) == 0 {
		return false, errors.New("expected states are required")
	}
	for _, from := range expected {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE asset_records SET migration_state = ?, updated_at = ?
             WHERE id = ? AND migration_state = ?`,
			next,
			formatTime(time.Now().UTC()),
			id,
			from,
		)
		if err != nil {
			return false, fmt.Errorf("mark transition: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("mark transition rows: %w", err)
		}
		if affected == 1 {
			rec, err := s.GetByID(ctx, id)
			if err != nil {
				return true, err
			}
			s.notifyTransition(rec, from, next)
			return true, nil
		}
	}
	return false, nil
}

// RecordAttempt atomically increments the attempt counter, stamps the
// attempt time, and returns the new count in one statement.
func (s *Store) RecordAttempt(ctx context.Context, id string) (int, error) {
	ctx = ensureContext(ctx)
	now := formatTime(time.Now().UTC())

	var attempts int
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(
			ctx,
			`UPDATE asset_records
             SET migration_attempts = migration_attempts + 1, migration_last_attempt_at = ?, updated_at = ?
             WHERE id = ?
             RETURNING migration_attempts`,
			now,
			now,
			id,
		)
		return row.Scan(&attempts)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("record attempt: asset %s not found", id)
	}
	if err != nil {
		return 0, fmt.Errorf("record attempt: %w", err)
	}
	return attempts, nil
}

// RecordFailure moves the record to failed and stores a truncated error
// message. The transition callback fires with the state the record held
// before failing.
func (s *Store) RecordFailure(ctx context.Context, id, message string) error {
	rec, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("record failure: asset %s not found", id)
	}

	_, err = s.execWithRetry(
		ctx,
		`UPDATE asset_records SET migration_state = ?, migration_error = ?, updated_at = ?
         WHERE id = ?`,
		MigrationFailed,
		truncateError(message),
		formatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("record failure: %w", err)
	}

	updated, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	s.notifyTransition(updated, rec.MigrationState, MigrationFailed)
	return nil
}

// RecordFailureFrom moves the record to failed only while it still holds one
// of the expected states, using the same compare-and-swap discipline as
// MarkTransition. A false return means the record moved on between the
// caller's snapshot and this write and must be left alone.
func (s *Store) RecordFailureFrom(ctx context.Context, id string, expected []MigrationState, message string) (bool, error) {
	if len(expected) == 0 {
		return false, errors.New("expected states are required")
	}
	for _, from := range expected {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE asset_records SET migration_state = ?, migration_error = ?, updated_at = ?
             WHERE id = ? AND migration_state = ?`,
			MigrationFailed,
			truncateError(message),
			formatTime(time.Now().UTC()),
			id,
			from,
		)
		if err != nil {
			return false, fmt.Errorf("record failure: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("record failure rows: %w", err)
		}
		if affected == 1 {
			updated, err := s.GetByID(ctx, id)
			if err != nil {
				return true, err
			}
			s.notifyTransition(updated, from, MigrationFailed)
			return true, nil
		}
	}
	return false, nil
}

// RecordSuccess completes migration: durable_url set, state completed, error
// cleared. durable_url is non-null iff state is completed, so both columns
// change in one statement.
func (s *Store) RecordSuccess(ctx context.Context, id, durableURL string) error {
	if durableURL == "" {
		return errors.New("durable url is required")
	}
	rec, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("record success: asset %s not found", id)
	}

	_, err = s.execWithRetry(
		ctx,
		`UPDATE asset_records
         SET migration_state = ?, durable_url = ?, migration_error = NULL, updated_at = ?
         WHERE id = ?`,
		MigrationCompleted,
		durableURL,
		formatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("record success: %w", err)
	}

	updated, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	s.notifyTransition(updated, rec.MigrationState, MigrationCompleted)
	return nil
}

// ForceRequeue is the manual operator override: it returns a failed record
// to pending regardless of backoff window or attempt cap. Completed records
// are refused; the attempt counter is preserved.
func (s *Store) ForceRequeue(ctx context.Context, id string) error {
	rec, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return services.Wrap(services.ErrNotFound, "assets", "requeue", "asset "+id, nil)
	}
	if rec.MigrationState == MigrationCompleted {
		return services.Wrap(services.ErrValidation, "assets", "requeue", "asset "+id+" already completed", nil)
	}

	_, err = s.execWithRetry(
		ctx,
		`UPDATE asset_records SET migration_state = ?, migration_error = NULL, updated_at = ?
         WHERE id = ?`,
		MigrationPending,
		formatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("requeue: %w", err)
	}

	updated, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	s.notifyTransition(updated, rec.MigrationState, MigrationPending)
	return nil
}

// FindRetryable returns failed records under the attempt cap whose backoff
// window has elapsed as of now. The second return counts failed records
// examined but rejected, either capped or still inside their window.
func (s *Store) FindRetryable(ctx context.Context, now time.Time) ([]*AssetRecord, int, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recordColumns+` FROM asset_records
         WHERE migration_state = ?
         ORDER BY migration_last_attempt_at`,
		MigrationFailed,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("find retryable: %w", err)
	}
	defer rows.Close()

	var eligible []*AssetRecord
	skipped := 0
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		if rec.MigrationAttempts >= s.maxAttempts {
			skipped++
			continue
		}
		if rec.MigrationLastAttemptAt == nil {
			// Failed before any attempt was recorded; retry immediately.
			eligible = append(eligible, rec)
			continue
		}
		wait := s.BackoffFor(rec.MigrationAttempts)
		if now.Sub(*rec.MigrationLastAttemptAt) < wait {
			skipped++
			continue
		}
		eligible = append(eligible, rec)
	}
	return eligible, skipped, rows.Err()
}

// FindStuck returns records sitting mid-transfer longer than stuckTimeout,
// indicating a lost dispatch or crashed worker.
func (s *Store) FindStuck(ctx context.Context, now time.Time, stuckTimeout time.Duration) ([]*AssetRecord, error) {
	cutoff := formatTime(now.Add(-stuckTimeout))
	placeholders, args := statePlaceholders(TransferStates)
	args = append(args, cutoff)

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recordColumns+` FROM asset_records
         WHERE migration_state IN (`+placeholders+`)
           AND migration_last_attempt_at IS NOT NULL
           AND migration_last_attempt_at < ?
         ORDER BY migration_last_attempt_at`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("find stuck: %w", err)
	}
	defer rows.Close()

	var stuck []*AssetRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		stuck = append(stuck, rec)
	}
	return stuck, rows.Err()
}
