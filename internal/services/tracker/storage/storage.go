// Package storage defines the persistence contract for the tracker's
// failure journal. The journal is diagnostics only; unlock state is never
// stored here.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrAlreadyExists indicates a record with the same id was already written.
var ErrAlreadyExists = errors.New("record already exists")

// Failure kinds.
const (
	KindCallbackError        = "callback_error"
	KindCallbackPanic        = "callback_panic"
	KindConnectivityLost     = "connectivity_lost"
	KindConnectivityRestored = "connectivity_restored"
)

// FailureRecord is one isolated poll failure or connectivity transition.
type FailureRecord struct {
	ID        string
	Source    string
	Kind      string
	Detail    string
	CreatedAt time.Time
}

// FailureStore persists failure records.
type FailureStore interface {
	RecordFailure(ctx context.Context, record FailureRecord) error
	ListFailures(ctx context.Context, limit int) ([]FailureRecord, error)
	PruneFailures(ctx context.Context, before time.Time) (int64, error)
}

// ValidKind reports whether kind is one of the journal kinds.
func ValidKind(kind string) bool {
	switch kind {
	case KindCallbackError, KindCallbackPanic, KindConnectivityLost, KindConnectivityRestored:
		return true
	default:
		return false
	}
}
