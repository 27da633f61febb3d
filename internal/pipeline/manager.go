package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"ferry/internal/assets"
	"ferry/internal/config"
	"ferry/internal/extract"
	"ferry/internal/logging"
	"ferry/internal/metrics"
	"ferry/internal/notifications"
	"ferry/internal/provider"
	"ferry/internal/storage"
)

// Manager owns the pipeline: the dispatcher, both workers, and the two
// periodic sweeps. Creating or requeueing an asset triggers dispatch through
// the store's transition callback.
type Manager struct {
	cfg      *config.Config
	store    *assets.Store
	logger   *slog.Logger
	notifier notifications.Service
	metrics  *metrics.Metrics

	dispatcher *Dispatcher
	migration  *MigrationWorker
	thumbnail  *ThumbnailWorker
	retry      *RetryScheduler
	stuck      *StuckDetector

	retryInterval time.Duration
	stuckInterval time.Duration

	mu      sync.Mutex
	running bool
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a pipeline manager with the default ntfy notifier.
func NewManager(cfg *config.Config, store *assets.Store, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a pipeline manager with a custom notifier
// (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *assets.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := metrics.New()

	providerClient := provider.New(cfg)
	storageClient := storage.New(cfg)
	extractClient := extract.New(cfg)

	dispatcher := NewDispatcher(
		cfg.Pipeline.DispatchSlots,
		time.Duration(cfg.Pipeline.DispatchTimeoutSecs)*time.Second,
		logger.With(logging.String("component", "dispatcher")),
		m,
	)
	migration := NewMigrationWorker(store, providerClient, storageClient, notifier, m,
		logger.With(logging.String("component", "migration")))
	thumbnail := NewThumbnailWorker(cfg, store, extractClient, storageClient, m,
		logger.With(logging.String("component", "thumbnail")))

	mgr := &Manager{
		cfg:      cfg,
		store:    store,
		logger:   logger,
		notifier: notifier,
		metrics:  m,

		dispatcher: dispatcher,
		migration:  migration,
		thumbnail:  thumbnail,

		retryInterval: time.Duration(cfg.Pipeline.RetrySweepMinutes) * time.Minute,
		stuckInterval: time.Duration(cfg.Pipeline.StuckSweepMinutes) * time.Minute,
	}
	mgr.retry = NewRetryScheduler(store, dispatcher, migration, m,
		logger.With(logging.String("component", "retry-scheduler")))
	mgr.stuck = NewStuckDetector(store,
		time.Duration(cfg.Pipeline.StuckTimeoutMinutes)*time.Minute,
		notifier, m,
		logger.With(logging.String("component", "stuck-detector")))

	store.OnTransition(mgr.onTransition)
	return mgr
}

// Metrics exposes the pipeline collectors for the admin endpoint.
func (m *Manager) Metrics() *metrics.Metrics {
	return m.metrics
}

// Start launches the periodic sweeps and enables dispatching.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("pipeline already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.runCtx = runCtx
	m.cancel = cancel
	m.running = true

	m.wg.Add(2)
	go m.sweepLoop(runCtx, "retry", m.retryInterval, func(now time.Time) {
		if _, err := m.retry.Sweep(runCtx, now); err != nil {
			m.logger.Error("retry sweep failed", logging.Error(err))
		}
	})
	go m.sweepLoop(runCtx, "stuck", m.stuckInterval, func(now time.Time) {
		if _, err := m.stuck.Sweep(runCtx, now); err != nil {
			m.logger.Error("stuck sweep failed", logging.Error(err))
		}
		m.updateStateGauge(runCtx)
	})

	m.logger.Info("pipeline started",
		logging.Duration("retry_sweep", m.retryInterval),
		logging.Duration("stuck_sweep", m.stuckInterval),
		logging.Int("dispatch_slots", m.cfg.Pipeline.DispatchSlots),
	)
	return nil
}

// Stop terminates the sweeps and drains in-flight dispatches.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.runCtx = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.dispatcher.Close()
	m.logger.Info("pipeline stopped")
}

func (m *Manager) sweepLoop(ctx context.Context, name string, interval time.Duration, sweep func(now time.Time)) {
	defer m.wg.Done()
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sweep(now)
		}
	}
}

// onTransition reacts to store writes. A fresh record triggers both workers
// at once; requeues dispatch explicitly through Requeue so the caller gets
// the dispatch id back.
func (m *Manager) onTransition(rec *assets.AssetRecord, from, to assets.MigrationState) {
	if from != "" || to != assets.MigrationPending {
		return
	}
	m.DispatchMigration(rec.ID)
	m.DispatchThumbnail(rec.ID)
}

// Requeue forces an asset back to pending regardless of backoff window or
// attempt cap, then dispatches a migration immediately. The returned
// dispatch id is empty when the pool refused the dispatch; the stale-pending
// rescue in the retry sweep picks the record up later.
func (m *Manager) Requeue(ctx context.Context, assetID string) (string, error) {
	if err := m.store.ForceRequeue(ctx, assetID); err != nil {
		return "", err
	}
	dispatchID, ok := m.DispatchMigration(assetID)
	if !ok {
		return "", nil
	}
	return dispatchID, nil
}

// DispatchMigration schedules a fire-and-forget migration attempt and
// returns its dispatch id. The second return is false when the dispatch was
// dropped or the pipeline is not running.
func (m *Manager) DispatchMigration(assetID string) (string, bool) {
	ctx, ok := m.runContext()
	if !ok {
		return "", false
	}
	return m.dispatcher.Dispatch(ctx, "migration", assetID, func(runCtx context.Context) {
		m.migration.Run(runCtx, assetID)
	})
}

// DispatchThumbnail schedules a fire-and-forget thumbnail attempt.
func (m *Manager) DispatchThumbnail(assetID string) (string, bool) {
	ctx, ok := m.runContext()
	if !ok {
		return "", false
	}
	return m.dispatcher.Dispatch(ctx, "thumbnail", assetID, func(runCtx context.Context) {
		m.thumbnail.Run(runCtx, assetID)
	})
}

// RetrySweep runs one retry pass immediately.
func (m *Manager) RetrySweep(ctx context.Context, now time.Time) (RetryReport, error) {
	return m.retry.Sweep(ctx, now)
}

// StuckSweep runs one stuck-reclaim pass immediately.
func (m *Manager) StuckSweep(ctx context.Context, now time.Time) (int, error) {
	return m.stuck.Sweep(ctx, now)
}

func (m *Manager) runContext() (context.Context, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running || m.runCtx == nil {
		return nil, false
	}
	return m.runCtx, true
}

func (m *Manager) updateStateGauge(ctx context.Context) {
	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("state gauge refresh failed", logging.Error(err))
		return
	}
	for _, state := range assets.MigrationStates() {
		m.metrics.AssetsByState.WithLabelValues(string(state)).Set(float64(stats[state]))
	}
}
