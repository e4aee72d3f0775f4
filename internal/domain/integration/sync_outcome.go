package integration

import (
	"time"
)

// ---------------------------------------------------------------------------
// Sync Outcome Types
// ---------------------------------------------------------------------------

// SyncState is the per-bill synchronization verdict
type SyncState int32

const (
	// SyncStateSuccess means every line item of a non-empty bill was valid
	SyncStateSuccess SyncState = 1
	// SyncStateFail means the bill was empty or had at least one invalid line item
	SyncStateFail SyncState = 2
)

// IsValid returns true if the state is a known value
func (s SyncState) IsValid() bool {
	switch s {
	case SyncStateSuccess, SyncStateFail:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncState
func (s SyncState) String() string {
	switch s {
	case SyncStateSuccess:
		return "SUCCESS"
	case SyncStateFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// Error codes reported to the platform. The failure code does not identify
// which rule failed; the reasons are carried in SyncMsg.
const (
	ErrorCodeNone       int32 = 0
	ErrorCodeSyncFailed int32 = 1001
)

// SyncOutcome is the result of synchronizing one bill
type SyncOutcome struct {
	// ID is assigned by the store on append
	ID int64
	// BillKey is the platform key of the bill
	BillKey string
	// ErpKey is the ERP-side key; the bridge performs no key mapping so it equals BillKey
	ErpKey string
	// BillType is copied from the bill
	BillType BillType
	// SyncState is the verdict
	SyncState SyncState
	// SyncMsg is a human-readable summary
	SyncMsg string
	// ErrorCode is ErrorCodeNone on success and ErrorCodeSyncFailed otherwise
	ErrorCode int32
	// CreatedAt is assigned by the store on append
	CreatedAt time.Time
}

// IsSuccess returns true if the bill was synchronized
func (o *SyncOutcome) IsSuccess() bool {
	return o.SyncState == SyncStateSuccess
}
