package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ferry/internal/logging"
	"ferry/internal/metrics"
	"ferry/internal/services"
)

// acquireWait bounds how long a dispatch blocks on a saturated pool before
// dropping. Retry sweeps pick up anything dropped here.
const acquireWait = 500 * time.Millisecond

// Dispatcher runs worker invocations on a bounded fire-and-forget pool.
// Each dispatch gets a fresh id and a timeout context that bounds only the
// pool slot; callers never wait for completion.
type Dispatcher struct {
	slots   chan struct{}
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher builds a dispatcher with the given pool size and per-dispatch
// timeout.
func NewDispatcher(slots int, timeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if slots <= 0 {
		slots = 1
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		slots:   make(chan struct{}, slots),
		timeout: timeout,
		logger:  logger,
		metrics: m,
	}
}

// Dispatch schedules fn on the pool and returns its dispatch id immediately.
// The second return is false when the pool stayed saturated past the brief
// acquire wait and the dispatch was dropped, or the dispatcher is closed.
func (d *Dispatcher) Dispatch(ctx context.Context, kind, assetID string, fn func(ctx context.Context)) (string, bool) {
	dispatchID := uuid.NewString()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return dispatchID, false
	}

	select {
	case d.slots <- struct{}{}:
	default:
		d.mu.Unlock()
		if !d.waitForSlot(ctx) {
			d.logger.Warn("dispatch dropped, worker pool saturated",
				logging.String("dispatch_id", dispatchID),
				logging.String("worker", kind),
				logging.String("asset_id", assetID),
			)
			if d.metrics != nil {
				d.metrics.DispatchesDropped.Inc()
			}
			return dispatchID, false
		}
		d.mu.Lock()
		if d.closed {
			<-d.slots
			d.mu.Unlock()
			return dispatchID, false
		}
	}

	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer func() { <-d.slots }()

		runCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		runCtx = services.WithDispatchID(runCtx, dispatchID)

		d.logger.Debug("dispatch started",
			logging.String("dispatch_id", dispatchID),
			logging.String("worker", kind),
			logging.String("asset_id", assetID),
		)
		fn(runCtx)
	}()

	return dispatchID, true
}

func (d *Dispatcher) waitForSlot(ctx context.Context) bool {
	timer := time.NewTimer(acquireWait)
	defer timer.Stop()
	select {
	case d.slots <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	case <-timer.C:
		return false
	}
}

// Close drains in-flight dispatches and rejects new ones.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
}
