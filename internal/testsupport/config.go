// Package testsupport provides shared constructors for ferry tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"ferry/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test
// and placeholder endpoints so validation passes.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Storage.Endpoint = "https://storage.test/v1"
	cfg.Thumbnails.ExtractorURL = "https://extract.test/frame"
	cfg.Thumbnails.PropagationDelay = 0

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithStorageEndpoint overrides the durable storage endpoint.
func WithStorageEndpoint(endpoint string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Storage.Endpoint = endpoint
	}
}

// WithExtractorURL overrides the thumbnail extraction endpoint.
func WithExtractorURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Thumbnails.ExtractorURL = url
	}
}

// WithMaxAttempts overrides the migration retry cap and trims the backoff
// schedule to match.
func WithMaxAttempts(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.MaxAttempts = n
		schedule := make([]int, 0, n)
		for i := 0; i < n; i++ {
			if i < len(cfg.Pipeline.BackoffMinutes) {
				schedule = append(schedule, cfg.Pipeline.BackoffMinutes[i])
			} else {
				schedule = append(schedule, cfg.Pipeline.BackoffMinutes[len(cfg.Pipeline.BackoffMinutes)-1])
			}
		}
		cfg.Pipeline.BackoffMinutes = schedule
	}
}
