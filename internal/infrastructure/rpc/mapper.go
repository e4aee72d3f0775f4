package rpc

import (
	"github.com/erp/syncbridge/internal/domain/integration"
	"github.com/shopspring/decimal"
)

// BillsFromWire converts a request batch into domain bills, keeping order.
// Absent fields arrive as zero values.
func BillsFromWire(req *SyncBillListRequest) []integration.Bill {
	if req == nil {
		return nil
	}
	bills := make([]integration.Bill, 0, len(req.Data))
	for _, b := range req.Data {
		details := make([]integration.LineItem, 0, len(b.Details))
		for _, d := range b.Details {
			details = append(details, integration.LineItem{
				ProductKey:  d.ProductKey,
				ProductName: d.ProductName,
				Qty:         decimal.NewFromFloat(d.Qty),
				Price:       decimal.NewFromFloat(d.Price),
			})
		}
		bills = append(bills, integration.Bill{
			BillKey:    b.BillKey,
			BillCode:   b.BillCode,
			BillType:   integration.BillType(b.BillType),
			TotalPrice: decimal.NewFromFloat(b.TotalPrice),
			Details:    details,
		})
	}
	return bills
}

// BillsToWire converts domain bills into a request batch
func BillsToWire(bills []integration.Bill) *SyncBillListRequest {
	req := &SyncBillListRequest{Data: make([]SyncBillRequest, 0, len(bills))}
	for _, b := range bills {
		details := make([]SyncBillDetailInfo, 0, len(b.Details))
		for _, d := range b.Details {
			details = append(details, SyncBillDetailInfo{
				ProductKey:  d.ProductKey,
				ProductName: d.ProductName,
				Qty:         d.Qty.InexactFloat64(),
				Price:       d.Price.InexactFloat64(),
			})
		}
		req.Data = append(req.Data, SyncBillRequest{
			BillKey:    b.BillKey,
			BillCode:   b.BillCode,
			BillType:   b.BillType.Int32(),
			TotalPrice: b.TotalPrice.InexactFloat64(),
			Details:    details,
		})
	}
	return req
}

// OutcomesToWire converts outcomes into a response batch, keeping order
func OutcomesToWire(outcomes []integration.SyncOutcome) *SyncBillListInfoResponse {
	resp := &SyncBillListInfoResponse{Data: make([]SyncBillInfoResponse, 0, len(outcomes))}
	for _, o := range outcomes {
		resp.Data = append(resp.Data, SyncBillInfoResponse{
			BillKey:   o.BillKey,
			ErpKey:    o.ErpKey,
			BillType:  o.BillType.Int32(),
			SyncState: int32(o.SyncState),
			SyncMsg:   o.SyncMsg,
			ErrorCode: o.ErrorCode,
		})
	}
	return resp
}

// OutcomesFromWire converts a response batch received from a remote sync core
func OutcomesFromWire(resp *SyncBillListInfoResponse) []integration.SyncOutcome {
	if resp == nil {
		return nil
	}
	outcomes := make([]integration.SyncOutcome, 0, len(resp.Data))
	for _, r := range resp.Data {
		outcomes = append(outcomes, integration.SyncOutcome{
			BillKey:   r.BillKey,
			ErpKey:    r.ErpKey,
			BillType:  integration.BillType(r.BillType),
			SyncState: integration.SyncState(r.SyncState),
			SyncMsg:   r.SyncMsg,
			ErrorCode: r.ErrorCode,
		})
	}
	return outcomes
}
