// Package daemon hosts the long-running ferry process: it enforces
// single-instance execution through a lock file, runs the pipeline manager,
// and serves the admin HTTP surface the CLI talks to.
package daemon
