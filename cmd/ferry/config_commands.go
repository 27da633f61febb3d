package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ferry/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Manage ferry configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newConfigInitCommand(ctx))
	cmd.AddCommand(newConfigShowCommand(ctx))
	return cmd
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample config file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if err := os.WriteFile(path, []byte(config.SampleConfig()), 0o644); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample config to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "show",
		Short:       "Show the resolved configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolved, exists, err := config.LoadUnvalidated(path)
			if err != nil {
				return err
			}

			source := "defaults"
			if exists {
				source = resolved
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# configuration source: %s\n", source)
			fmt.Fprintf(cmd.OutOrStdout(), "data_dir = %q\n", cfg.Paths.DataDir)
			fmt.Fprintf(cmd.OutOrStdout(), "log_dir = %q\n", cfg.Paths.LogDir)
			fmt.Fprintf(cmd.OutOrStdout(), "api_bind = %q\n", cfg.Paths.APIBind)
			fmt.Fprintf(cmd.OutOrStdout(), "storage_endpoint = %q\n", cfg.Storage.Endpoint)
			fmt.Fprintf(cmd.OutOrStdout(), "storage_bucket = %q\n", cfg.Storage.Bucket)
			fmt.Fprintf(cmd.OutOrStdout(), "extractor_url = %q\n", cfg.Thumbnails.ExtractorURL)
			fmt.Fprintf(cmd.OutOrStdout(), "max_attempts = %d\n", cfg.Pipeline.MaxAttempts)
			fmt.Fprintf(cmd.OutOrStdout(), "backoff_minutes = %v\n", cfg.Pipeline.BackoffMinutes)
			fmt.Fprintf(cmd.OutOrStdout(), "stuck_timeout_minutes = %d\n", cfg.Pipeline.StuckTimeoutMinutes)
			fmt.Fprintf(cmd.OutOrStdout(), "log_level = %q\n", cfg.LogLevel)
			return nil
		},
	}
	return cmd
}
