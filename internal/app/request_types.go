package app

import "github.com/shopspring/decimal"

// InvoiceEvent is a classified inbound webhook event. ExternalID is always the
// remote invoice id; Deleted reflects an explicit deleted marker in the payload.
type InvoiceEvent struct {
	EventType  string
	ExternalID string
	Deleted    bool
}

// RecordPaymentRequest is the input for recording a payment.
type RecordPaymentRequest struct {
	InvoiceID   int
	Amount      decimal.Decimal
	Date        string // YYYY-MM-DD, empty means today
	Mode        string
	Reference   string
	Description string
	RecordedBy  string
}

// ConvertOrderRequest is the input for converting a local order to an invoice.
type ConvertOrderRequest struct {
	OrderID         int
	AssignedAgentID string
}
