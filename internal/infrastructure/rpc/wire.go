package rpc

// Empty is the request of parameterless calls
type Empty struct{}

// SyncBillDetailInfo is one line item of a bill on the wire
type SyncBillDetailInfo struct {
	ProductKey  string  `json:"ProductKey,omitempty"`
	ProductName string  `json:"ProductName,omitempty"`
	Qty         float64 `json:"Qty,omitempty"`
	Price       float64 `json:"Price,omitempty"`
}

// SyncBillRequest is one bill of a SynchroSaleOrderList batch
type SyncBillRequest struct {
	BillKey    string               `json:"BillKey,omitempty"`
	BillCode   string               `json:"BillCode,omitempty"`
	BillType   int32                `json:"BillType,omitempty"`
	TotalPrice float64              `json:"TotalPrice,omitempty"`
	Details    []SyncBillDetailInfo `json:"Details,omitempty"`
}

// SyncBillListRequest is the SynchroSaleOrderList request
type SyncBillListRequest struct {
	Data []SyncBillRequest `json:"Data,omitempty"`
}

// SyncBillInfoResponse is the outcome of one bill
type SyncBillInfoResponse struct {
	BillKey   string `json:"BillKey,omitempty"`
	ErpKey    string `json:"ErpKey,omitempty"`
	BillType  int32  `json:"BillType,omitempty"`
	SyncState int32  `json:"SyncState,omitempty"`
	SyncMsg   string `json:"SyncMsg,omitempty"`
	ErrorCode int32  `json:"ErrorCode,omitempty"`
}

// SyncBillListInfoResponse is the SynchroSaleOrderList response, one entry per request bill
type SyncBillListInfoResponse struct {
	Data []SyncBillInfoResponse `json:"Data,omitempty"`
}

// CheckErpConnectionResponse is the CheckErpConnection response
type CheckErpConnectionResponse struct {
	Success bool   `json:"Success,omitempty"`
	Msg     string `json:"Msg,omitempty"`
}
