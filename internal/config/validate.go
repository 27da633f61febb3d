package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateThumbnails(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if strings.TrimSpace(c.Storage.Endpoint) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/ferry/config.toml"
		}
		return fmt.Errorf("storage.endpoint is required; edit %s (create with 'ferry config init')", defaultPath)
	}
	if strings.TrimSpace(c.Storage.Bucket) == "" {
		return errors.New("storage.bucket must be set")
	}
	if c.Storage.RequestTimeout <= 0 {
		return errors.New("storage.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateThumbnails() error {
	if strings.TrimSpace(c.Thumbnails.ExtractorURL) == "" {
		return errors.New("thumbnails.extractor_url is required")
	}
	if c.Thumbnails.Width <= 0 || c.Thumbnails.Height <= 0 {
		return errors.New("thumbnails.width and thumbnails.height must be positive")
	}
	if c.Thumbnails.TimeOffsetSeconds < 0 {
		return errors.New("thumbnails.time_offset_seconds must not be negative")
	}
	if c.Thumbnails.TimeoutSeconds <= 0 {
		return errors.New("thumbnails.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.MaxAttempts <= 0 {
		return errors.New("pipeline.max_attempts must be positive")
	}
	if len(c.Pipeline.BackoffMinutes) != c.Pipeline.MaxAttempts {
		return fmt.Errorf("pipeline.backoff_minutes must list %d entries, one per attempt", c.Pipeline.MaxAttempts)
	}
	previous := 0
	for i, minutes := range c.Pipeline.BackoffMinutes {
		if minutes <= 0 {
			return fmt.Errorf("pipeline.backoff_minutes[%d] must be positive", i)
		}
		if minutes < previous {
			return errors.New("pipeline.backoff_minutes must not decrease")
		}
		previous = minutes
	}
	if c.Pipeline.StuckTimeoutMinutes <= 0 {
		return errors.New("pipeline.stuck_timeout_minutes must be positive")
	}
	if c.Pipeline.StuckSweepMinutes <= 0 || c.Pipeline.RetrySweepMinutes <= 0 {
		return errors.New("pipeline sweep intervals must be positive")
	}
	if c.Pipeline.DispatchSlots <= 0 {
		return errors.New("pipeline.dispatch_slots must be positive")
	}
	if c.Pipeline.DispatchTimeoutSecs <= 0 {
		return errors.New("pipeline.dispatch_timeout_seconds must be positive")
	}
	// A worker that can outlive the stuck timeout would race the detector's
	// reclaim of its record.
	if c.Pipeline.DispatchTimeoutSecs >= c.Pipeline.StuckTimeoutMinutes*60 {
		return errors.New("pipeline.dispatch_timeout_seconds must be shorter than pipeline.stuck_timeout_minutes")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level: unsupported value %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format: unsupported value %q", c.LogFormat)
	}
	return nil
}
