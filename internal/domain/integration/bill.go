package integration

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Bill Types
// ---------------------------------------------------------------------------

// BillType is the platform's bill category. Zero means the platform did not set one.
type BillType int32

const (
	// BillTypeUnset is used when the platform omits the bill type
	BillTypeUnset BillType = 0
)

// Int32 returns the wire representation of the bill type
func (t BillType) Int32() int32 {
	return int32(t)
}

// Bill represents a sales order pushed by the order-management platform
type Bill struct {
	// BillKey is the platform's unique key for the bill
	BillKey string `json:"bill_key"`
	// BillCode is the human-readable bill number (informational)
	BillCode string `json:"bill_code"`
	// BillType is copied verbatim into the outcome
	BillType BillType `json:"bill_type"`
	// TotalPrice is advisory and never checked against the details
	TotalPrice decimal.Decimal `json:"total_price"`
	// Details are the line items in platform order
	Details []LineItem `json:"details"`
}

// LineItem is a single product line of a Bill
type LineItem struct {
	ProductKey  string          `json:"product_key"`
	ProductName string          `json:"product_name"`
	Qty         decimal.Decimal `json:"qty"`
	Price       decimal.Decimal `json:"price"`
}

// Validate checks the line item rules in order and returns the reason for the
// first one that fails. An empty reason means the item is valid.
func (li LineItem) Validate() (reason string, ok bool) {
	if li.ProductKey == "" {
		return "missing ProductKey", false
	}
	if !li.Qty.IsPositive() {
		return fmt.Sprintf("bad Qty for %s", li.ProductKey), false
	}
	if li.Price.IsNegative() {
		return fmt.Sprintf("bad Price for %s", li.ProductKey), false
	}
	return "", true
}
