// Package metrics exposes Prometheus collectors for the asset pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values recorded against pipeline counters.
const (
	ResultCompleted = "completed"
	ResultFailed    = "failed"
	ResultPermanent = "permanent"
	ResultReady     = "ready"
	ResultSkipped   = "skipped"
)

// Metrics bundles the pipeline collectors behind a private registry so tests
// can construct isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	MigrationsTotal   *prometheus.CounterVec
	MigrationRetries  prometheus.Counter
	ThumbnailsTotal   *prometheus.CounterVec
	StuckReclaimed    prometheus.Counter
	DispatchesDropped prometheus.Counter
	AssetsByState     *prometheus.GaugeVec
}

// New constructs and registers the pipeline collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		MigrationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ferry_migrations_total",
			Help: "Migration dispatch outcomes by result.",
		}, []string{"result"}),
		MigrationRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ferry_migration_retries_total",
			Help: "Migration re-dispatches issued by the retry scheduler.",
		}),
		ThumbnailsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ferry_thumbnails_total",
			Help: "Thumbnail dispatch outcomes by result.",
		}, []string{"result"}),
		StuckReclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ferry_stuck_reclaimed_total",
			Help: "Records force-failed by the stuck-job detector.",
		}),
		DispatchesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ferry_dispatches_dropped_total",
			Help: "Dispatches dropped because the worker pool was saturated.",
		}),
		AssetsByState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ferry_assets_by_state",
			Help: "Asset records grouped by migration state.",
		}, []string{"state"}),
	}

	registry.MustRegister(
		m.MigrationsTotal,
		m.MigrationRetries,
		m.ThumbnailsTotal,
		m.StuckReclaimed,
		m.DispatchesDropped,
		m.AssetsByState,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
