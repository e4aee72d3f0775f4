package integration

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func item(key string, qty, price float64) LineItem {
	return LineItem{
		ProductKey: key,
		Qty:        decimal.NewFromFloat(qty),
		Price:      decimal.NewFromFloat(price),
	}
}

// ---------------------------------------------------------------------------
// LineItem Tests
// ---------------------------------------------------------------------------

func TestLineItem_Validate(t *testing.T) {
	tests := []struct {
		name   string
		item   LineItem
		ok     bool
		reason string
	}{
		{"valid item", item("P1", 2, 10), true, ""},
		{"zero price allowed", item("P1", 1, 0), true, ""},
		{"missing product key", item("", 1, 10), false, "missing ProductKey"},
		{"zero qty", item("P1", 0, 10), false, "bad Qty for P1"},
		{"negative qty", item("P1", -1, 10), false, "bad Qty for P1"},
		{"negative price", item("P1", 1, -0.01), false, "bad Price for P1"},
		{"first failing rule wins", item("", 0, -1), false, "missing ProductKey"},
		{"qty checked before price", item("P2", 0, -1), false, "bad Qty for P2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, ok := tt.item.Validate()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

// ---------------------------------------------------------------------------
// ClassifyBill Tests
// ---------------------------------------------------------------------------

func TestClassifyBill_AllValid(t *testing.T) {
	bill := Bill{
		BillKey:  "BILL-1",
		BillType: 3,
		Details:  []LineItem{item("P1", 2, 10), item("P2", 1, 0)},
	}

	outcome := ClassifyBill(bill)

	assert.Equal(t, "BILL-1", outcome.BillKey)
	assert.Equal(t, "BILL-1", outcome.ErpKey)
	assert.Equal(t, BillType(3), outcome.BillType)
	assert.Equal(t, SyncStateSuccess, outcome.SyncState)
	assert.Equal(t, ErrorCodeNone, outcome.ErrorCode)
	assert.Equal(t, "Synced 2/2 details", outcome.SyncMsg)
	assert.True(t, outcome.IsSuccess())
	assert.Zero(t, outcome.ID)
	assert.True(t, outcome.CreatedAt.IsZero())
}

func TestClassifyBill_NoDetails(t *testing.T) {
	outcome := ClassifyBill(Bill{BillKey: "EMPTY"})

	assert.Equal(t, SyncStateFail, outcome.SyncState)
	assert.Equal(t, ErrorCodeSyncFailed, outcome.ErrorCode)
	assert.Equal(t, "No details to sync", outcome.SyncMsg)
	assert.Equal(t, BillTypeUnset, outcome.BillType)
}

func TestClassifyBill_InvalidItem(t *testing.T) {
	bill := Bill{
		BillKey: "BILL-1",
		Details: []LineItem{item("P1", 0, 10)},
	}

	outcome := ClassifyBill(bill)

	assert.Equal(t, SyncStateFail, outcome.SyncState)
	assert.Equal(t, ErrorCodeSyncFailed, outcome.ErrorCode)
	assert.Equal(t, "Errors: bad Qty for P1", outcome.SyncMsg)
}

func TestClassifyBill_MixedItemsFail(t *testing.T) {
	bill := Bill{
		BillKey: "BILL-2",
		Details: []LineItem{item("P1", 1, 1), item("", 1, 1), item("P3", 1, -5)},
	}

	outcome := ClassifyBill(bill)

	assert.Equal(t, SyncStateFail, outcome.SyncState)
	assert.Equal(t, "Errors: missing ProductKey;bad Price for P3", outcome.SyncMsg)
}

func TestClassifyBill_CapsReportedReasons(t *testing.T) {
	details := make([]LineItem, 0, 7)
	for i := 1; i <= 7; i++ {
		details = append(details, item(fmt.Sprintf("P%d", i), 0, 1))
	}

	outcome := ClassifyBill(Bill{BillKey: "BIG", Details: details})

	assert.Equal(t, SyncStateFail, outcome.SyncState)
	assert.Equal(t, "Errors: bad Qty for P1;bad Qty for P2;bad Qty for P3;bad Qty for P4;bad Qty for P5", outcome.SyncMsg)
	assert.NotContains(t, outcome.SyncMsg, "P6")
}

func TestClassifyBills_PreservesOrder(t *testing.T) {
	bills := []Bill{
		{BillKey: "A", Details: []LineItem{item("P1", 1, 1)}},
		{BillKey: "B"},
		{BillKey: "C", Details: []LineItem{item("P1", -1, 1)}},
	}

	outcomes := ClassifyBills(bills)

	assert.Len(t, outcomes, 3)
	assert.Equal(t, "A", outcomes[0].BillKey)
	assert.Equal(t, SyncStateSuccess, outcomes[0].SyncState)
	assert.Equal(t, "B", outcomes[1].BillKey)
	assert.Equal(t, SyncStateFail, outcomes[1].SyncState)
	assert.Equal(t, "C", outcomes[2].BillKey)
	assert.Equal(t, SyncStateFail, outcomes[2].SyncState)
}

func TestClassifyBills_Empty(t *testing.T) {
	assert.Empty(t, ClassifyBills(nil))
}

func TestSyncState_String(t *testing.T) {
	assert.Equal(t, "SUCCESS", SyncStateSuccess.String())
	assert.Equal(t, "FAIL", SyncStateFail.String())
	assert.Equal(t, "UNKNOWN", SyncState(9).String())
	assert.True(t, SyncStateFail.IsValid())
	assert.False(t, SyncState(0).IsValid())
}
