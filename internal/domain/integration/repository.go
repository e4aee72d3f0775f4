package integration

import "context"

// List limits for recent-history reads
const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// NormalizeListLimit maps non-positive limits to the default and caps large ones
func NormalizeListLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// SyncOutcomeRepository is the append-only log of sync outcomes.
// Outcomes are never updated or deleted once written.
type SyncOutcomeRepository interface {
	// Append persists the outcome, assigning its ID and CreatedAt.
	// Failures of the underlying medium are returned as *StorageError.
	Append(ctx context.Context, outcome *SyncOutcome) error

	// ListRecent returns up to limit outcomes, most recent first.
	// The limit is normalized with NormalizeListLimit.
	ListRecent(ctx context.Context, limit int) ([]SyncOutcome, error)
}
