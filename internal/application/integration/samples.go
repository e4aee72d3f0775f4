package integration

import (
	"github.com/shopspring/decimal"

	"github.com/erp/syncbridge/internal/domain/integration"
)

// SampleBills returns the batch sent by the call-order trigger
func SampleBills() []integration.Bill {
	return []integration.Bill{
		{
			BillKey:    "BILL-UI-1",
			BillCode:   "BILL-UI-1",
			TotalPrice: decimal.NewFromInt(100),
			Details: []integration.LineItem{
				{
					ProductKey:  "PROD-UI-1",
					ProductName: "Sample product",
					Qty:         decimal.NewFromInt(1),
					Price:       decimal.NewFromInt(100),
				},
			},
		},
	}
}

// ReportBills returns the batch sent by the synchronous report
func ReportBills() []integration.Bill {
	price := decimal.RequireFromString("1.23")
	return []integration.Bill{
		{
			BillKey:    "ERPGRPC-REPORT-1",
			BillCode:   "ERPGRPC-REPORT-1",
			TotalPrice: price,
			Details: []integration.LineItem{
				{
					ProductKey: "REPORT-PROD",
					Qty:        decimal.NewFromInt(1),
					Price:      price,
				},
			},
		},
	}
}
