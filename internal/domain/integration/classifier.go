package integration

import (
	"fmt"
	"strings"
)

// MaxReportedReasons caps how many invalid-item reasons go into a failure message
const MaxReportedReasons = 5

// ClassifyBill evaluates every line item of the bill and builds its outcome.
// It is pure: the returned outcome has no ID or CreatedAt.
func ClassifyBill(bill Bill) SyncOutcome {
	total := len(bill.Details)
	var reasons []string
	for _, item := range bill.Details {
		if reason, ok := item.Validate(); !ok {
			reasons = append(reasons, reason)
		}
	}
	ok := total - len(reasons)

	outcome := SyncOutcome{
		BillKey:  bill.BillKey,
		ErpKey:   bill.BillKey,
		BillType: bill.BillType,
	}

	switch {
	case total > 0 && len(reasons) == 0:
		outcome.SyncState = SyncStateSuccess
		outcome.ErrorCode = ErrorCodeNone
		outcome.SyncMsg = fmt.Sprintf("Synced %d/%d details", ok, total)
	case total == 0:
		outcome.SyncState = SyncStateFail
		outcome.ErrorCode = ErrorCodeSyncFailed
		outcome.SyncMsg = "No details to sync"
	default:
		if len(reasons) > MaxReportedReasons {
			reasons = reasons[:MaxReportedReasons]
		}
		outcome.SyncState = SyncStateFail
		outcome.ErrorCode = ErrorCodeSyncFailed
		outcome.SyncMsg = "Errors: " + strings.Join(reasons, ";")
	}

	return outcome
}

// ClassifyBills classifies a batch, preserving input order
func ClassifyBills(bills []Bill) []SyncOutcome {
	outcomes := make([]SyncOutcome, 0, len(bills))
	for _, bill := range bills {
		outcomes = append(outcomes, ClassifyBill(bill))
	}
	return outcomes
}
