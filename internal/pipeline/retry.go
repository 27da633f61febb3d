package pipeline

import (
	"context"
	"log/slog"
	"time"

	"ferry/internal/assets"
	"ferry/internal/logging"
	"ferry/internal/metrics"
	"ferry/internal/services"
)

// RetryReport summarizes one retry sweep. Skipped counts failed records that
// stayed ineligible: attempt cap reached or backoff window still open.
type RetryReport struct {
	Retried int
	Skipped int
}

// RetryScheduler re-dispatches failed migrations once their backoff window
// elapses. It never dispatches past the attempt cap; eligibility checks here
// are advisory only, the worker's compare-and-swap stays authoritative.
type RetryScheduler struct {
	store      *assets.Store
	dispatcher *Dispatcher
	worker     *MigrationWorker
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewRetryScheduler wires a scheduler against the dispatcher and worker.
func NewRetryScheduler(store *assets.Store, dispatcher *Dispatcher, worker *MigrationWorker, m *metrics.Metrics, logger *slog.Logger) *RetryScheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RetryScheduler{
		store:      store,
		dispatcher: dispatcher,
		worker:     worker,
		metrics:    m,
		logger:     logger,
	}
}

// pendingGrace is how long a record may sit in pending before the sweep
// assumes its creation dispatch was lost and re-dispatches it.
const pendingGrace = time.Minute

// Sweep dispatches every retryable record and reports how many failed
// records were retried versus left waiting. It also rescues records stuck
// in pending after a dropped dispatch; that re-dispatch is idempotent, the
// worker claim sorts out duplicates.
func (s *RetryScheduler) Sweep(ctx context.Context, now time.Time) (RetryReport, error) {
	ctx = services.WithComponent(ctx, "retry-scheduler")

	s.rescuePending(ctx, now)

	retryable, skipped, err := s.store.FindRetryable(ctx, now)
	if err != nil {
		return RetryReport{}, err
	}

	report := RetryReport{Skipped: skipped}
	for _, rec := range retryable {
		assetID := rec.ID
		dispatchID, ok := s.dispatcher.Dispatch(ctx, "migration", assetID, func(runCtx context.Context) {
			s.worker.Run(runCtx, assetID)
		})
		if !ok {
			// Saturation or shutdown. The record stays failed and the next
			// sweep picks it up again.
			continue
		}
		report.Retried++
		if s.metrics != nil {
			s.metrics.MigrationRetries.Inc()
		}
		s.logger.Info("migration retry dispatched",
			logging.String("asset_id", assetID),
			logging.String("dispatch_id", dispatchID),
			logging.Int("attempts", rec.MigrationAttempts),
		)
	}

	if report.Retried > 0 || report.Skipped > 0 {
		s.logger.Info("retry sweep complete",
			logging.Int("retried", report.Retried),
			logging.Int("skipped", report.Skipped),
		)
	}
	return report, nil
}

func (s *RetryScheduler) rescuePending(ctx context.Context, now time.Time) {
	pending, err := s.store.List(ctx, assets.MigrationPending)
	if err != nil {
		s.logger.Warn("pending rescue scan failed", logging.Error(err))
		return
	}
	for _, rec := range pending {
		if now.Sub(rec.UpdatedAt) < pendingGrace {
			continue
		}
		assetID := rec.ID
		if _, ok := s.dispatcher.Dispatch(ctx, "migration", assetID, func(runCtx context.Context) {
			s.worker.Run(runCtx, assetID)
		}); ok {
			s.logger.Debug("stale pending record re-dispatched",
				logging.String("asset_id", assetID),
			)
		}
	}
}
