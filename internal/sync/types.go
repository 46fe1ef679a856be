// internal/sync/types.go
package sync

import "errors"

// Transport is the exact contract the engine needs from a remote
// sink. Upsert must be idempotent per key: update-if-exists,
// create-if-absent. Retrying a key that partially applied is safe.
type Transport interface {
	Upsert(key string, fields map[string]interface{}) error
	Connected() bool
}

// ErrNoConnectivity marks a cycle skipped for lack of a link.
// Retry later; no data loss.
var ErrNoConnectivity = errors.New("sync: no connectivity")

// RemoteError is a sink-side failure for a specific record.
// Timeouts are folded in with Definitive=false: the write may have
// partially applied, which the idempotent upsert covers on retry.
type RemoteError struct {
	Definitive bool
	Err        error
}

func (e *RemoteError) Error() string { return "sync: remote rejected: " + e.Err.Error() }
func (e *RemoteError) Unwrap() error { return e.Err }

// Status classifies one MaybeSync outcome.
type Status int

const (
	// Skipped: not due, nothing stored, or no connectivity.
	Skipped Status = iota
	// Synced: the entire requested batch confirmed and cleared.
	Synced
	// Partial: a non-empty confirmed prefix, then a failure.
	// Nothing cleared; the next cycle retries from the same oldest record.
	Partial
	// Failed: the first attempted record failed.
	Failed
)

func (s Status) String() string {
	switch s {
	case Skipped:
		return "skipped"
	case Synced:
		return "synced"
	case Partial:
		return "partial"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Outcome reports what one sync cycle did.
type Outcome struct {
	Status    Status
	Confirmed int // records confirmed remote this cycle
	Reason    error
}
