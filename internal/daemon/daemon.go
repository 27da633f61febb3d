package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"ferry/internal/api"
	"ferry/internal/assets"
	"ferry/internal/config"
	"ferry/internal/logging"
	"ferry/internal/notifications"
	"ferry/internal/pipeline"
)

// Daemon coordinates the background pipeline and enforces single-instance
// execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *assets.Store
	pipeline *pipeline.Manager
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock
	server   *apiServer

	running atomic.Bool
	started time.Time
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *assets.Store, logger *slog.Logger, mgr *pipeline.Manager, notifier notifications.Service) (*Daemon, error) {
	if cfg == nil || store == nil || mgr == nil {
		return nil, errors.New("daemon requires config, store, and pipeline manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "ferryd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		pipeline: mgr,
		notifier: notifier,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.server = newAPIServer(cfg, d, logger.With(logging.String("component", "api")))
	return d, nil
}

// Start acquires the daemon lock and launches the pipeline and admin API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another ferry daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.pipeline.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start pipeline: %w", err)
	}
	if d.server != nil {
		if err := d.server.start(runCtx); err != nil {
			d.pipeline.Stop()
			cancel()
			_ = d.lock.Unlock()
			return err
		}
	}

	d.cancel = cancel
	d.started = time.Now()
	d.running.Store(true)
	d.logger.Info("ferry daemon started",
		logging.String("lock", d.lockPath),
		logging.String("db", d.store.Path()),
	)
	if err := d.notifier.NotifyDaemonStarted(runCtx, d.server.Addr()); err != nil {
		d.logger.Warn("startup notification failed", logging.Error(err))
	}
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	uptime := time.Since(d.started)
	if d.server != nil {
		d.server.stop()
	}
	d.pipeline.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("ferry daemon stopped", logging.Duration("uptime", uptime))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.notifier.NotifyDaemonStopped(ctx, uptime); err != nil {
		d.logger.Warn("shutdown notification failed", logging.Error(err))
	}
}

// Close stops the daemon and releases the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the admin API listen address, empty before Start.
func (d *Daemon) Addr() string {
	if d.server == nil {
		return ""
	}
	return d.server.Addr()
}

// Status reports daemon runtime information.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	status := api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DBPath:       d.store.Path(),
		LockFilePath: d.lockPath,
	}
	if status.Running {
		status.UptimeSeconds = int64(time.Since(d.started).Seconds())
	}
	if stats, err := d.store.Stats(ctx); err == nil {
		status.Stats = api.MergeStats(stats)
	}
	return status
}
