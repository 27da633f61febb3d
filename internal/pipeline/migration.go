package pipeline

import (
	"context"
	"log/slog"

	"ferry/internal/assets"
	"ferry/internal/logging"
	"ferry/internal/metrics"
	"ferry/internal/notifications"
	"ferry/internal/provider"
	"ferry/internal/services"
	"ferry/internal/storage"
)

// MigrationWorker copies one asset's bytes from the provider to durable
// storage. Duplicate executions are safe: uploads target a deterministic key
// and the record transition, not the byte copy, is authoritative.
type MigrationWorker struct {
	store    *assets.Store
	provider *provider.Client
	storage  *storage.Client
	notifier notifications.Service
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewMigrationWorker wires a migration worker against its collaborators.
func NewMigrationWorker(store *assets.Store, providerClient *provider.Client, storageClient *storage.Client, notifier notifications.Service, m *metrics.Metrics, logger *slog.Logger) *MigrationWorker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &MigrationWorker{
		store:    store,
		provider: providerClient,
		storage:  storageClient,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// Run executes one migration attempt. Errors never escape: every failure is
// captured into the record, and a lost claim is a silent abort.
func (w *MigrationWorker) Run(ctx context.Context, assetID string) {
	ctx = services.WithComponent(ctx, "migration")
	ctx = services.WithAssetID(ctx, assetID)
	logger := w.logger.With(logging.String("asset_id", assetID))

	claimed, err := w.store.MarkTransition(ctx, assetID, []assets.MigrationState{assets.MigrationPending, assets.MigrationFailed}, assets.MigrationDownloading)
	if err != nil {
		logger.Error("claim transition failed", logging.Error(err))
		return
	}
	if !claimed {
		logger.Debug("asset not claimable, skipping dispatch")
		return
	}

	attempt, err := w.store.RecordAttempt(ctx, assetID)
	if err != nil {
		logger.Error("record attempt failed", logging.Error(err))
		return
	}
	logger = logger.With(logging.Int("attempt", attempt))
	logger.Info("migration started")

	rec, err := w.store.GetByID(ctx, assetID)
	if err != nil || rec == nil {
		logger.Error("load asset failed", logging.Error(err))
		return
	}

	data, err := w.provider.Fetch(ctx, rec.SourceURL)
	if err != nil {
		w.fail(ctx, logger, assetID, attempt, "download failed", err)
		return
	}

	claimed, err = w.store.MarkTransition(ctx, assetID, []assets.MigrationState{assets.MigrationDownloading}, assets.MigrationUploading)
	if err != nil {
		logger.Error("upload transition failed", logging.Error(err))
		return
	}
	if !claimed {
		// The stuck detector reclaimed the record mid-transfer. The retry
		// path owns it now.
		logger.Debug("record reclaimed during transfer, aborting")
		return
	}

	durableURL, err := w.storage.Put(ctx, storage.VideoKey(assetID), data, "video/mp4")
	if err != nil {
		w.fail(ctx, logger, assetID, attempt, "upload failed", err)
		return
	}

	if err := w.store.RecordSuccess(ctx, assetID, durableURL); err != nil {
		logger.Error("record success failed", logging.Error(err))
		return
	}
	if w.metrics != nil {
		w.metrics.MigrationsTotal.WithLabelValues(metrics.ResultCompleted).Inc()
	}
	logger.Info("migration completed", logging.String("durable_url", durableURL))
	if w.notifier != nil {
		if err := w.notifier.NotifyMigrationCompleted(ctx, assetID, durableURL); err != nil {
			logger.Warn("completion notification failed", logging.Error(err))
		}
	}
}

func (w *MigrationWorker) fail(ctx context.Context, logger *slog.Logger, assetID string, attempt int, stage string, cause error) {
	message := stage + ": " + cause.Error()
	claimed, err := w.store.RecordFailureFrom(ctx, assetID, assets.TransferStates, message)
	if err != nil {
		logger.Error("record failure failed", logging.Error(err))
		return
	}
	if !claimed {
		// Reclaimed and resolved by another run while this one was failing.
		logger.Debug("record no longer mid-transfer, dropping failure")
		return
	}

	permanent := attempt >= w.store.MaxAttempts()
	logger.Warn("migration failed",
		logging.Error(cause),
		logging.String("stage", stage),
		logging.Bool("permanent", permanent),
	)
	if w.metrics != nil {
		if permanent {
			w.metrics.MigrationsTotal.WithLabelValues(metrics.ResultPermanent).Inc()
		} else {
			w.metrics.MigrationsTotal.WithLabelValues(metrics.ResultFailed).Inc()
		}
	}
	if permanent && w.notifier != nil {
		if err := w.notifier.NotifyPermanentFailure(ctx, assetID, message, attempt); err != nil {
			logger.Warn("failure notification failed", logging.Error(err))
		}
	}
}
