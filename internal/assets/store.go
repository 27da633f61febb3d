package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"ferry/internal/config"
)

// TransitionFunc observes a successful migration-state change. from is empty
// for record creation. Callbacks run synchronously on the mutating caller's
// goroutine; anything slow belongs behind a dispatch.
type TransitionFunc func(rec *AssetRecord, from, to MigrationState)

// Store manages AssetRecord persistence backed by SQLite.
type Store struct {
	db          *sql.DB
	path        string
	maxAttempts int
	backoff     []time.Duration

	mu          sync.RWMutex
	transitions []TransitionFunc
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	errorMessageLimit = 500
)

// Open initializes or connects to the asset database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "assets.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	backoff := make([]time.Duration, 0, len(cfg.Pipeline.BackoffMinutes))
	for _, minutes := range cfg.Pipeline.BackoffMinutes {
		backoff = append(backoff, time.Duration(minutes)*time.Minute)
	}

	store := &Store{
		db:          db,
		path:        dbPath,
		maxAttempts: cfg.Pipeline.MaxAttempts,
		backoff:     backoff,
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// MaxAttempts returns the retry cap applied to migration dispatches.
func (s *Store) MaxAttempts() int {
	return s.maxAttempts
}

// BackoffFor returns the minimum wait after the given failed attempt number
// (1-based) before a retry may run. Attempts past the schedule reuse the
// final window.
func (s *Store) BackoffFor(attempt int) time.Duration {
	if len(s.backoff) == 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(s.backoff) {
		attempt = len(s.backoff)
	}
	return s.backoff[attempt-1]
}

// OnTransition registers a callback fired after every successful
// migration-state change, including record creation.
func (s *Store) OnTransition(fn TransitionFunc) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitions = append(s.transitions, fn)
}

func (s *Store) notifyTransition(rec *AssetRecord, from, to MigrationState) {
	if rec == nil {
		return
	}
	s.mu.RLock()
	callbacks := make([]TransitionFunc, len(s.transitions))
	copy(callbacks, s.transitions)
	s.mu.RUnlock()
	for _, fn := range callbacks {
		fn(rec, from, to)
	}
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}
