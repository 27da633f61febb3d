// Package services holds the error taxonomy and context helpers shared by
// ferry's workers and external-service clients.
//
// Workers classify failures with the exported sentinels so callers can use
// errors.Is without knowing which client produced the error. Both transient
// and validation failures follow the same retry/backoff policy; the
// distinction exists for logs and operator alerts, not for scheduling.
package services
