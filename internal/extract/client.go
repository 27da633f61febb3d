// Package extract calls the frame-extraction service that renders a still
// image from a video URL.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ferry/internal/config"
	"ferry/internal/services"
)

// HTTPDoer describes the HTTP client used for extraction calls.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request describes one frame extraction.
type Request struct {
	SourceURL  string `json:"source_url"`
	TimeOffset int    `json:"time_offset_seconds"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// Client talks to the extraction service.
type Client struct {
	endpoint string
	apiKey   string
	client   HTTPDoer
}

// New constructs an extraction client from configuration. The HTTP timeout
// is the worker's wall-clock bound: extraction either finishes inside it or
// fails, never pends indefinitely.
func New(cfg *config.Config) *Client {
	timeout := time.Duration(cfg.Thumbnails.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		endpoint: strings.TrimSpace(cfg.Thumbnails.ExtractorURL),
		apiKey:   strings.TrimSpace(cfg.Thumbnails.APIKey),
		client:   &http.Client{Timeout: timeout},
	}
}

// NewWithDoer constructs a client around an explicit HTTP doer (tests).
func NewWithDoer(endpoint, apiKey string, doer HTTPDoer) *Client {
	return &Client{
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   strings.TrimSpace(apiKey),
		client:   doer,
	}
}

// Extract renders a still image from req.SourceURL and returns the image bytes.
func (c *Client) Extract(ctx context.Context, req Request) ([]byte, error) {
	if c.endpoint == "" {
		return nil, services.Wrap(services.ErrConfiguration, "extract", "frame", "extractor url not configured", nil)
	}
	if strings.TrimSpace(req.SourceURL) == "" {
		return nil, services.Wrap(services.ErrValidation, "extract", "frame", "source url is required", nil)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "extract", "frame", "encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "extract", "frame", "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		marker := services.ErrTransient
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return nil, services.Wrap(marker, "extract", "frame", "call extractor", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, services.Wrap(services.ErrTransient, "extract", "frame",
			fmt.Sprintf("extractor returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	image, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "extract", "frame", "read image body", err)
	}
	if len(image) == 0 {
		return nil, services.Wrap(services.ErrTransient, "extract", "frame", "extractor returned empty image", nil)
	}
	return image, nil
}
