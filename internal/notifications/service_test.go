package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"ferry/internal/config"
	"ferry/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyMigrationCompleted(context.Background(), "asset-1", "https://durable.example/videos/asset-1.mp4"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	var captured struct {
		title    string
		tags     string
		priority string
		body     string
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		captured.title = r.Header.Get("Title")
		captured.tags = r.Header.Get("Tags")
		captured.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		captured.body = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := notifications.NewWithDoer(server.URL, server.Client())

	if err := svc.NotifyPermanentFailure(context.Background(), "abc123", "upload rejected", 3); err != nil {
		t.Fatalf("NotifyPermanentFailure: %v", err)
	}
	if captured.title != "Ferry - Migration Failed" {
		t.Fatalf("unexpected title: %q", captured.title)
	}
	if captured.tags != "ferry,migration,failed" {
		t.Fatalf("unexpected tags: %q", captured.tags)
	}
	if captured.priority != "high" {
		t.Fatalf("unexpected priority: %q", captured.priority)
	}
	if captured.body != "Asset abc123 failed permanently after 3 attempts: upload rejected" {
		t.Fatalf("unexpected body: %q", captured.body)
	}

	if err := svc.NotifyError(context.Background(), errors.New("socket closed"), "migration"); err != nil {
		t.Fatalf("NotifyError: %v", err)
	}
	if captured.body != "Error with migration: socket closed" {
		t.Fatalf("unexpected error body: %q", captured.body)
	}
}

func TestNtfyServiceSurfacesHTTPFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	svc := notifications.NewWithDoer(server.URL, server.Client())
	err := svc.NotifyStuckReclaimed(context.Background(), "abc123", "downloading")
	if err == nil {
		t.Fatal("expected error for non-2xx ntfy response")
	}
}
