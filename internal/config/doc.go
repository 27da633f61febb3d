// Package config loads and validates the TOML configuration that drives the
// ferry daemon and CLI.
//
// Configuration resolves from an explicit path, then ~/.config/ferry/config.toml,
// falling back to compiled defaults when no file exists. Every component
// receives its settings through an explicit Config value at construction;
// nothing reads ambient globals.
package config
