package pipeline

import (
	"context"
	"log/slog"
	"time"

	"ferry/internal/assets"
	"ferry/internal/config"
	"ferry/internal/extract"
	"ferry/internal/logging"
	"ferry/internal/metrics"
	"ferry/internal/services"
	"ferry/internal/storage"
)

// ThumbnailWorker produces a representative still image for an asset as soon
// as any accessible source exists. It is fully decoupled from migration: a
// failed migration never blocks thumbnail readiness, and vice versa.
type ThumbnailWorker struct {
	store     *assets.Store
	extractor *extract.Client
	storage   *storage.Client
	metrics   *metrics.Metrics
	logger    *slog.Logger

	timeout          time.Duration
	propagationDelay time.Duration
	timeOffset       int
	width            int
	height           int
}

// NewThumbnailWorker wires a thumbnail worker from configuration.
func NewThumbnailWorker(cfg *config.Config, store *assets.Store, extractor *extract.Client, storageClient *storage.Client, m *metrics.Metrics, logger *slog.Logger) *ThumbnailWorker {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := time.Duration(cfg.Thumbnails.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &ThumbnailWorker{
		store:            store,
		extractor:        extractor,
		storage:          storageClient,
		metrics:          m,
		logger:           logger,
		timeout:          timeout,
		propagationDelay: time.Duration(cfg.Thumbnails.PropagationDelay) * time.Second,
		timeOffset:       cfg.Thumbnails.TimeOffsetSeconds,
		width:            cfg.Thumbnails.Width,
		height:           cfg.Thumbnails.Height,
	}
}

// Run executes one thumbnail attempt under a wall-clock bound. A ready
// non-placeholder thumbnail is never overwritten; a placeholder generated
// from the provider URL may be upgraded once the durable copy lands.
func (w *ThumbnailWorker) Run(ctx context.Context, assetID string) {
	ctx = services.WithComponent(ctx, "thumbnail")
	ctx = services.WithAssetID(ctx, assetID)
	logger := w.logger.With(logging.String("asset_id", assetID))

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	rec, err := w.store.GetByID(ctx, assetID)
	if err != nil {
		logger.Error("load asset failed", logging.Error(err))
		return
	}
	if rec == nil {
		logger.Debug("asset missing, skipping thumbnail")
		return
	}
	if rec.HasRealThumbnail() {
		logger.Debug("real thumbnail already present, skipping")
		return
	}

	claimed, err := w.store.ClaimThumbnail(ctx, assetID)
	if err != nil {
		logger.Error("thumbnail claim failed", logging.Error(err))
		return
	}
	if !claimed {
		if w.metrics != nil {
			w.metrics.ThumbnailsTotal.WithLabelValues(metrics.ResultSkipped).Inc()
		}
		logger.Debug("thumbnail not claimable, skipping dispatch")
		return
	}

	source := rec.BestSource()
	placeholder := rec.DurableURL == ""
	logger.Info("thumbnail generation started",
		logging.String("source", source),
		logging.Bool("placeholder", placeholder),
	)

	// A freshly migrated durable URL may not be globally consistent yet. Wait
	// out the remainder of the propagation window instead of failing fast.
	if rec.DurableURL != "" && w.propagationDelay > 0 {
		if age := time.Since(rec.UpdatedAt); age < w.propagationDelay {
			if err := sleepContext(ctx, w.propagationDelay-age); err != nil {
				w.fail(ctx, logger, assetID, "propagation wait aborted", err)
				return
			}
		}
	}

	img, err := w.extractor.Extract(ctx, extract.Request{
		SourceURL:  source,
		TimeOffset: w.timeOffset,
		Width:      w.width,
		Height:     w.height,
	})
	if err != nil {
		w.fail(ctx, logger, assetID, "extraction failed", err)
		return
	}

	thumbnailURL, err := w.storage.Put(ctx, storage.ThumbnailKey(assetID), img, "image/jpeg")
	if err != nil {
		w.fail(ctx, logger, assetID, "thumbnail upload failed", err)
		return
	}

	if err := w.store.RecordThumbnail(ctx, assetID, thumbnailURL, placeholder); err != nil {
		logger.Error("record thumbnail failed", logging.Error(err))
		return
	}
	if w.metrics != nil {
		w.metrics.ThumbnailsTotal.WithLabelValues(metrics.ResultReady).Inc()
	}
	logger.Info("thumbnail ready",
		logging.String("thumbnail_url", thumbnailURL),
		logging.Bool("placeholder", placeholder),
	)
}

func (w *ThumbnailWorker) fail(ctx context.Context, logger *slog.Logger, assetID, stage string, cause error) {
	message := stage + ": " + cause.Error()
	if err := w.store.RecordThumbnailFailure(ctx, assetID, message); err != nil {
		logger.Error("record thumbnail failure failed", logging.Error(err))
		return
	}
	if w.metrics != nil {
		w.metrics.ThumbnailsTotal.WithLabelValues(metrics.ResultFailed).Inc()
	}
	logger.Warn("thumbnail generation failed",
		logging.Error(cause),
		logging.String("stage", stage),
	)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
