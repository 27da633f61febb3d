package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the daemon's admin HTTP surface.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// NewClient constructs a client for the daemon listening at base.
func NewClient(base, token string) *Client {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		base:  base,
		token: strings.TrimSpace(token),
		http:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var out DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health fetches the operator health aggregate.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAssets fetches assets, optionally filtered by migration state.
func (c *Client) ListAssets(ctx context.Context, states ...string) ([]Asset, error) {
	path := "/api/assets"
	if len(states) > 0 {
		query := url.Values{}
		for _, state := range states {
			if state = strings.TrimSpace(state); state != "" {
				query.Add("state", state)
			}
		}
		if encoded := query.Encode(); encoded != "" {
			path += "?" + encoded
		}
	}
	var out AssetListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Assets, nil
}

// GetAsset fetches a single asset by id.
func (c *Client) GetAsset(ctx context.Context, id string) (*Asset, error) {
	var out AssetResponse
	if err := c.do(ctx, http.MethodGet, "/api/assets/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Asset, nil
}

// CreateAsset registers a new source video and returns its record.
func (c *Client) CreateAsset(ctx context.Context, sourceURL string) (*Asset, error) {
	var out AssetResponse
	req := CreateAssetRequest{SourceURL: sourceURL}
	if err := c.do(ctx, http.MethodPost, "/api/assets", req, &out); err != nil {
		return nil, err
	}
	return &out.Asset, nil
}

// Requeue forces an asset back to pending regardless of backoff or cap.
func (c *Client) Requeue(ctx context.Context, id string) (*RequeueResponse, error) {
	var out RequeueResponse
	if err := c.do(ctx, http.MethodPost, "/api/assets/"+url.PathEscape(id)+"/requeue", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("daemon returned %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
