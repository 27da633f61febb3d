// Package provider fetches source bytes from the generation provider's
// transient storage.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ferry/internal/config"
	"ferry/internal/services"
)

// HTTPDoer describes the HTTP client used for source fetches.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client downloads source video bytes with a bounded timeout and size cap.
type Client struct {
	client   HTTPDoer
	timeout  time.Duration
	maxBytes int64
}

// New constructs a provider client from configuration.
func New(cfg *config.Config) *Client {
	timeout := time.Duration(cfg.Provider.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
		maxBytes: int64(cfg.Provider.MaxDownloadMiB) << 20,
	}
}

// NewWithDoer constructs a client around an explicit HTTP doer (tests).
func NewWithDoer(doer HTTPDoer, maxBytes int64) *Client {
	return &Client{client: doer, timeout: 120 * time.Second, maxBytes: maxBytes}
}

// Fetch downloads the full body at sourceURL. Malformed URLs classify as
// validation errors; everything else that goes wrong is transient.
func (c *Client) Fetch(ctx context.Context, sourceURL string) ([]byte, error) {
	trimmed := strings.TrimSpace(sourceURL)
	parsed, err := url.ParseRequestURI(trimmed)
	if err != nil || parsed.Host == "" {
		return nil, services.Wrap(services.ErrValidation, "provider", "fetch", fmt.Sprintf("malformed source url %q", sourceURL), nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trimmed, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "provider", "fetch", "build request", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		marker := services.ErrTransient
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return nil, services.Wrap(marker, "provider", "fetch", "download source", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, services.Wrap(services.ErrTransient, "provider", "fetch", fmt.Sprintf("source returned %d", resp.StatusCode), nil)
	}

	reader := io.Reader(resp.Body)
	if c.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, c.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		marker := services.ErrTransient
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return nil, services.Wrap(marker, "provider", "fetch", "read source body", err)
	}
	if c.maxBytes > 0 && int64(len(data)) > c.maxBytes {
		return nil, services.Wrap(services.ErrValidation, "provider", "fetch", fmt.Sprintf("source exceeds %d byte limit", c.maxBytes), nil)
	}
	if len(data) == 0 {
		return nil, services.Wrap(services.ErrTransient, "provider", "fetch", "source returned empty body", nil)
	}
	return data, nil
}
