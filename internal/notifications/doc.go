// Package notifications delivers pipeline events via ntfy.
//
// The default implementation publishes to the topic configured in config.toml
// and gracefully degrades to a no-op when no topic is set. Pipeline code
// depends only on the Service interface, so alternative transports can be
// swapped in without touching worker logic.
package notifications
