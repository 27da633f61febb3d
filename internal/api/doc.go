// Package api defines the transport-level types for the daemon's admin HTTP
// surface plus a thin client used by the CLI. Conversions between store
// records and wire payloads live here so the daemon and CLI agree on one
// format.
package api
