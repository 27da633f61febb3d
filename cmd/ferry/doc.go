// Command ferry is the operator CLI for the ferry daemon. It talks to the
// daemon's admin HTTP API for status, health, asset inspection, and manual
// requeues, and manages the local configuration file.
package main
