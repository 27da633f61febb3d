package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ferry/internal/assets"
	"ferry/internal/logging"
	"ferry/internal/metrics"
	"ferry/internal/notifications"
	"ferry/internal/services"
)

// StuckDetector force-fails records stalled mid-transfer. A lost dispatch or
// crashed worker leaves an asset in downloading or uploading forever;
// failing it here makes it visible to the retry scheduler again.
type StuckDetector struct {
	store    *assets.Store
	notifier notifications.Service
	metrics  *metrics.Metrics
	logger   *slog.Logger
	timeout  time.Duration
}

// NewStuckDetector builds a detector with the given stall timeout.
func NewStuckDetector(store *assets.Store, timeout time.Duration, notifier notifications.Service, m *metrics.Metrics, logger *slog.Logger) *StuckDetector {
	if logger == nil {
		logger = logging.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &StuckDetector{
		store:    store,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		timeout:  timeout,
	}
}

// Sweep reclaims every record that has shown no progress for longer than the
// stall timeout. One record's failure never halts the sweep; the returned
// count covers successfully reclaimed records only.
func (d *StuckDetector) Sweep(ctx context.Context, now time.Time) (int, error) {
	ctx = services.WithComponent(ctx, "stuck-detector")

	stuck, err := d.store.FindStuck(ctx, now, d.timeout)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for _, rec := range stuck {
		message := fmt.Sprintf("stuck timeout: no progress in %s state after %s", rec.MigrationState, d.timeout)
		claimed, err := d.store.RecordFailureFrom(ctx, rec.ID, assets.TransferStates, message)
		if err != nil {
			d.logger.Error("reclaim stuck record failed",
				logging.Error(err),
				logging.String("asset_id", rec.ID),
			)
			continue
		}
		if !claimed {
			// The worker finished between the snapshot and this write.
			d.logger.Debug("stuck record resolved itself, leaving it",
				logging.String("asset_id", rec.ID),
			)
			continue
		}
		reclaimed++
		if d.metrics != nil {
			d.metrics.StuckReclaimed.Inc()
		}
		d.logger.Warn("stuck record reclaimed",
			logging.String("asset_id", rec.ID),
			logging.String("state", string(rec.MigrationState)),
			logging.Duration("timeout", d.timeout),
		)
		if d.notifier != nil {
			if err := d.notifier.NotifyStuckReclaimed(ctx, rec.ID, string(rec.MigrationState)); err != nil {
				d.logger.Warn("stuck notification failed", logging.Error(err))
			}
		}
	}
	return reclaimed, nil
}
