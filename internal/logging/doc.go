// Package logging builds the slog loggers used across ferry.
//
// Loggers write to stdout and, when a log directory is configured, to
// ferry.log inside it. Components attach themselves via the "component"
// attribute so daemon output stays attributable. Tests use NewNop.
package logging
