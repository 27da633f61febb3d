package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ferry/internal/metrics"
)

func TestHandlerExposesCollectors(t *testing.T) {
	m := metrics.New()
	m.MigrationsTotal.WithLabelValues(metrics.ResultCompleted).Inc()
	m.ThumbnailsTotal.WithLabelValues(metrics.ResultReady).Inc()
	m.StuckReclaimed.Inc()
	m.AssetsByState.WithLabelValues("pending").Set(3)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	for _, want := range []string{
		`ferry_migrations_total{result="completed"} 1`,
		`ferry_thumbnails_total{result="ready"} 1`,
		`ferry_stuck_reclaimed_total 1`,
		`ferry_assets_by_state{state="pending"} 3`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestRegistriesAreIsolated(t *testing.T) {
	a := metrics.New()
	b := metrics.New()
	a.StuckReclaimed.Inc()

	srv := httptest.NewServer(b.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if strings.Contains(string(body), "ferry_stuck_reclaimed_total 1") {
		t.Fatal("instances must not share a registry")
	}
}
