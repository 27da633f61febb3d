// Package storage uploads asset bytes into the durable object store.
//
// Object keys are deterministic per asset id so duplicate or concurrent
// uploads overwrite the same object instead of accumulating copies; the
// record transition, not the byte copy, is what makes a migration
// authoritative.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ferry/internal/config"
	"ferry/internal/services"
)

// HTTPDoer describes the HTTP client used for uploads.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the durable object storage HTTP API.
type Client struct {
	endpoint string
	bucket   string
	apiKey   string
	client   HTTPDoer
}

// New constructs a storage client from configuration.
func New(cfg *config.Config) *Client {
	timeout := time.Duration(cfg.Storage.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(strings.TrimSpace(cfg.Storage.Endpoint), "/"),
		bucket:   strings.TrimSpace(cfg.Storage.Bucket),
		apiKey:   strings.TrimSpace(cfg.Storage.APIKey),
		client:   &http.Client{Timeout: timeout},
	}
}

// NewWithDoer constructs a client around an explicit HTTP doer (tests).
func NewWithDoer(endpoint, bucket, apiKey string, doer HTTPDoer) *Client {
	return &Client{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		bucket:   strings.TrimSpace(bucket),
		apiKey:   strings.TrimSpace(apiKey),
		client:   doer,
	}
}

// VideoKey returns the deterministic durable key for an asset's video bytes.
func VideoKey(assetID string) string {
	return "videos/" + assetID + ".mp4"
}

// ThumbnailKey returns the deterministic durable key for an asset's thumbnail.
func ThumbnailKey(assetID string) string {
	return "thumbnails/" + assetID + ".jpg"
}

// ObjectURL returns the public URL an uploaded key is served from.
func (c *Client) ObjectURL(key string) string {
	return c.endpoint + "/" + c.bucket + "/" + key
}

// Put uploads data under key, overwriting any previous object, and returns
// the durable URL. Uploads to the same key are last-writer-wins, which is
// acceptable because content per key is equivalent.
func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if c.endpoint == "" {
		return "", services.Wrap(services.ErrConfiguration, "storage", "put", "endpoint not configured", nil)
	}
	if len(data) == 0 {
		return "", services.Wrap(services.ErrValidation, "storage", "put", "refusing to upload empty object", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.ObjectURL(key), bytes.NewReader(data))
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "storage", "put", "build request", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("X-Upsert", "true")

	resp, err := c.client.Do(req)
	if err != nil {
		marker := services.ErrTransient
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return "", services.Wrap(marker, "storage", "put", "upload object", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", services.Wrap(services.ErrTransient, "storage", "put",
			fmt.Sprintf("storage returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	return c.ObjectURL(key), nil
}
