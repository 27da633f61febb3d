package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ferry/internal/config"
)

func validConfig() config.Config {
	cfg := config.Default()
	cfg.Storage.Endpoint = "https://storage.test/v1"
	cfg.Thumbnails.ExtractorURL = "https://extract.test/frame"
	return cfg
}

func TestDefaultValidatesOnceEndpointsSet(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestValidateRequiresStorageEndpoint(t *testing.T) {
	cfg := config.Default()
	cfg.Thumbnails.ExtractorURL = "https://extract.test/frame"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "storage.endpoint") {
		t.Fatalf("expected storage endpoint error, got %v", err)
	}
}

func TestValidateBackoffSchedule(t *testing.T) {
	cases := []struct {
		name    string
		backoff []int
		wantErr bool
	}{
		{"default", []int{2, 5, 10}, false},
		{"decreasing", []int{5, 2, 10}, true},
		{"zero entry", []int{0, 5, 10}, true},
		{"wrong length", []int{2, 5}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Pipeline.BackoffMinutes = tc.backoff
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateRejectsDispatchTimeoutPastStuckTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Pipeline.StuckTimeoutMinutes = 2
	cfg.Pipeline.DispatchTimeoutSecs = 120
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "dispatch_timeout_seconds") {
		t.Fatalf("expected dispatch timeout error, got %v", err)
	}

	cfg.Pipeline.DispatchTimeoutSecs = 60
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoadReadsFileAndExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	doc := `
log_level = "debug"

[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[storage]
endpoint = "https://storage.test/v1/"

[thumbnails]
extractor_url = "https://extract.test/frame"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s, got %s exists=%v", path, resolved, exists)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected log level debug, got %s", cfg.LogLevel)
	}
	if cfg.Storage.Endpoint != "https://storage.test/v1" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Storage.Endpoint)
	}
	if cfg.Pipeline.MaxAttempts != 3 {
		t.Fatalf("expected default max attempts, got %d", cfg.Pipeline.MaxAttempts)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")
	_, _, exists, err := config.Load(missing)
	if exists {
		t.Fatal("expected missing config to report exists=false")
	}
	// Defaults alone fail validation because endpoints are unset.
	if err == nil {
		t.Fatal("expected validation error for empty endpoints")
	}
}

func TestLoadUnvalidatedToleratesEmptyEndpoints(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")
	cfg, _, exists, err := config.LoadUnvalidated(missing)
	if err != nil {
		t.Fatalf("LoadUnvalidated: %v", err)
	}
	if exists {
		t.Fatal("expected missing config to report exists=false")
	}
	if cfg.Pipeline.MaxAttempts != 3 {
		t.Fatalf("expected default max attempts, got %d", cfg.Pipeline.MaxAttempts)
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := validConfig()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, d := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s, err=%v", d, err)
		}
	}
}
