package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ferry/internal/config"
)

const userAgent = "Ferry-Go/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyMigrationCompleted(ctx context.Context, assetID, durableURL string) error
	NotifyPermanentFailure(ctx context.Context, assetID, reason string, attempts int) error
	NotifyStuckReclaimed(ctx context.Context, assetID, state string) error
	NotifyDaemonStarted(ctx context.Context, bind string) error
	NotifyDaemonStopped(ctx context.Context, uptime time.Duration) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// HTTPDoer abstracts the HTTP client so tests can inject transports.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		errors:    cfg.Notifications.Errors,
		lifecycle: cfg.Notifications.Lifecycle,
	}
}

// NewWithDoer builds an ntfy service on an injected transport.
func NewWithDoer(endpoint string, doer HTTPDoer) Service {
	return &ntfyService{
		endpoint:  strings.TrimSpace(endpoint),
		client:    doer,
		errors:    true,
		lifecycle: true,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    HTTPDoer
	errors    bool
	lifecycle bool
}

func (n *ntfyService) NotifyMigrationCompleted(ctx context.Context, assetID, durableURL string) error {
	if !n.lifecycle {
		return nil
	}
	data := payload{
		title:   "Ferry - Migration Complete",
		message: fmt.Sprintf("Asset %s migrated to %s", strings.TrimSpace(assetID), strings.TrimSpace(durableURL)),
		tags:    []string{"ferry", "migration", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPermanentFailure(ctx context.Context, assetID, reason string, attempts int) error {
	if !n.errors {
		return nil
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	data := payload{
		title:    "Ferry - Migration Failed",
		message:  fmt.Sprintf("Asset %s failed permanently after %d attempts: %s", strings.TrimSpace(assetID), attempts, reason),
		tags:     []string{"ferry", "migration", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyStuckReclaimed(ctx context.Context, assetID, state string) error {
	if !n.errors {
		return nil
	}
	data := payload{
		title:   "Ferry - Stuck Job Reclaimed",
		message: fmt.Sprintf("Asset %s reclaimed from stalled %s state", strings.TrimSpace(assetID), strings.TrimSpace(state)),
		tags:    []string{"ferry", "stuck", "reclaimed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDaemonStarted(ctx context.Context, bind string) error {
	if !n.lifecycle {
		return nil
	}
	data := payload{
		title:   "Ferry - Started",
		message: fmt.Sprintf("Daemon listening on %s", strings.TrimSpace(bind)),
		tags:    []string{"ferry", "daemon", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDaemonStopped(ctx context.Context, uptime time.Duration) error {
	if !n.lifecycle {
		return nil
	}
	uptime = uptime.Round(time.Second)
	if uptime < 0 {
		uptime = 0
	}
	data := payload{
		title:   "Ferry - Stopped",
		message: fmt.Sprintf("Daemon stopped after %s", uptime),
		tags:    []string{"ferry", "daemon", "stopped"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Ferry - Error",
		message:  builder.String(),
		tags:     []string{"ferry", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Ferry - Test",
		message:  "Notification system test",
		tags:     []string{"ferry", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyMigrationCompleted(context.Context, string, string) error { return nil }
func (noopService) NotifyPermanentFailure(context.Context, string, string, int) error {
	return nil
}
func (noopService) NotifyStuckReclaimed(context.Context, string, string) error { return nil }
func (noopService) NotifyDaemonStarted(context.Context, string) error          { return nil }
func (noopService) NotifyDaemonStopped(context.Context, time.Duration) error   { return nil }
func (noopService) NotifyError(context.Context, error, string) error           { return nil }
func (noopService) TestNotification(context.Context) error                     { return nil }
