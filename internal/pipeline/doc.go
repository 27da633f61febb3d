// Package pipeline coordinates asset migration and thumbnail generation.
//
// The Manager owns a bounded fire-and-forget Dispatcher plus two periodic
// sweeps: a stuck-job detector that force-fails records stalled mid-transfer
// and a retry scheduler that re-dispatches failed migrations once their
// backoff window elapses. Workers serialize per asset id through the store's
// compare-and-swap transitions; a lost swap is a silent abort, never an
// error. Migration success deliberately does not trigger thumbnail
// generation; the two lifecycles stay independent so one failing never
// blocks the other.
package pipeline
