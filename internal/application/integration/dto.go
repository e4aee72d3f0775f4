package integration

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/syncbridge/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Sync Result DTOs
// ---------------------------------------------------------------------------

// SyncResultResponse represents a persisted sync outcome in API responses
type SyncResultResponse struct {
	ID        int64     `json:"id"`
	BillKey   string    `json:"bill_key"`
	ErpKey    string    `json:"erp_key"`
	BillType  int32     `json:"bill_type"`
	SyncState int32     `json:"sync_state"`
	SyncMsg   string    `json:"sync_msg"`
	ErrorCode int32     `json:"error_code"`
	CreatedAt time.Time `json:"created_at"`
}

// ToSyncResultResponse converts a domain outcome to its response form
func ToSyncResultResponse(o integration.SyncOutcome) SyncResultResponse {
	return SyncResultResponse{
		ID:        o.ID,
		BillKey:   o.BillKey,
		ErpKey:    o.ErpKey,
		BillType:  o.BillType.Int32(),
		SyncState: int32(o.SyncState),
		SyncMsg:   o.SyncMsg,
		ErrorCode: o.ErrorCode,
		CreatedAt: o.CreatedAt,
	}
}

// ToSyncResultResponses converts a slice of outcomes
func ToSyncResultResponses(outcomes []integration.SyncOutcome) []SyncResultResponse {
	responses := make([]SyncResultResponse, len(outcomes))
	for i, o := range outcomes {
		responses[i] = ToSyncResultResponse(o)
	}
	return responses
}

// ---------------------------------------------------------------------------
// Sync Batch Result
// ---------------------------------------------------------------------------

// SyncBatchResult reports one inbound batch. Outcomes is what the platform
// receives; the counters describe what happened to persistence.
type SyncBatchResult struct {
	Outcomes           []integration.SyncOutcome
	Persisted          int
	StorageFailures    int
	UnexpectedFailures int
}

// Succeeded returns the number of bills synchronized successfully
func (r *SyncBatchResult) Succeeded() int {
	n := 0
	for i := range r.Outcomes {
		if r.Outcomes[i].IsSuccess() {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Trigger Result DTOs
// ---------------------------------------------------------------------------

// Trigger run modes
const (
	ModeDryRun = "dry-run"
	ModeLive   = "live"
)

// TokenResult is the result of a get-token trigger
type TokenResult struct {
	Mode      string `json:"mode"`
	Request   any    `json:"request"`
	Token     string `json:"token,omitempty"`
	ExpiresIn int64  `json:"expires_in,omitempty"`
	TTLKnown  bool   `json:"ttl_known,omitempty"`
}

// LineItemPreview is a line item as shown in trigger results
type LineItemPreview struct {
	ProductKey  string          `json:"product_key"`
	ProductName string          `json:"product_name,omitempty"`
	Qty         decimal.Decimal `json:"qty"`
	Price       decimal.Decimal `json:"price"`
}

// BillPreview is a bill as shown in trigger results
type BillPreview struct {
	BillKey    string            `json:"bill_key"`
	BillCode   string            `json:"bill_code"`
	BillType   int32             `json:"bill_type"`
	TotalPrice decimal.Decimal   `json:"total_price"`
	Details    []LineItemPreview `json:"details"`
}

// OutcomePreview is a remote sync outcome as shown in trigger results
type OutcomePreview struct {
	BillKey   string `json:"bill_key"`
	ErpKey    string `json:"erp_key"`
	BillType  int32  `json:"bill_type"`
	SyncState string `json:"sync_state"`
	SyncMsg   string `json:"sync_msg"`
	ErrorCode int32  `json:"error_code"`
}

// CallOrderResult is the result of a call-order trigger
type CallOrderResult struct {
	Mode     string           `json:"mode"`
	Target   string           `json:"target"`
	Request  []BillPreview    `json:"request"`
	Response []OutcomePreview `json:"response,omitempty"`
}

// ReportResult is the body of the synchronous report
type ReportResult struct {
	OK       bool             `json:"ok"`
	Target   string           `json:"target"`
	Response []OutcomePreview `json:"response,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func toBillPreviews(bills []integration.Bill) []BillPreview {
	previews := make([]BillPreview, len(bills))
	for i, b := range bills {
		details := make([]LineItemPreview, len(b.Details))
		for j, d := range b.Details {
			details[j] = LineItemPreview{
				ProductKey:  d.ProductKey,
				ProductName: d.ProductName,
				Qty:         d.Qty,
				Price:       d.Price,
			}
		}
		previews[i] = BillPreview{
			BillKey:    b.BillKey,
			BillCode:   b.BillCode,
			BillType:   b.BillType.Int32(),
			TotalPrice: b.TotalPrice,
			Details:    details,
		}
	}
	return previews
}

func toOutcomePreviews(outcomes []integration.SyncOutcome) []OutcomePreview {
	previews := make([]OutcomePreview, len(outcomes))
	for i, o := range outcomes {
		previews[i] = OutcomePreview{
			BillKey:   o.BillKey,
			ErpKey:    o.ErpKey,
			BillType:  o.BillType.Int32(),
			SyncState: o.SyncState.String(),
			SyncMsg:   o.SyncMsg,
			ErrorCode: o.ErrorCode,
		}
	}
	return previews
}
