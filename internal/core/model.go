package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	StatusDraft         InvoiceStatus = "draft"
	StatusSent          InvoiceStatus = "sent"
	StatusViewed        InvoiceStatus = "viewed"
	StatusUnpaid        InvoiceStatus = "unpaid"
	StatusPartiallyPaid InvoiceStatus = "partially_paid"
	StatusOverdue       InvoiceStatus = "overdue"
	StatusPaid          InvoiceStatus = "paid"
	StatusVoid          InvoiceStatus = "void"
)

type SyncStatus string

const (
	SyncSynced      SyncStatus = "synced"
	SyncPendingPush SyncStatus = "pending_push"
	SyncPendingPull SyncStatus = "pending_pull"
	SyncFailed      SyncStatus = "failed"
)

// Address is the structured billing/shipping address. It is stored as a JSONB
// blob on the invoice row and typed everywhere above the storage boundary.
type Address struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

type Invoice struct {
	ID                 int             `json:"id"`
	ExternalID         *string         `json:"external_id,omitempty"`
	InvoiceNumber      string          `json:"invoice_number"`
	ReferenceNumber    string          `json:"reference_number"`
	CustomerExternalID string          `json:"customer_external_id"`
	CustomerName       string          `json:"customer_name"`
	OrderExternalID    *string         `json:"order_external_id,omitempty"`
	IssueDate          *string         `json:"issue_date,omitempty"` // YYYY-MM-DD
	DueDate            *string         `json:"due_date,omitempty"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	TaxTotal           decimal.Decimal `json:"tax_total"`
	DiscountTotal      decimal.Decimal `json:"discount_total"`
	ShippingCharge     decimal.Decimal `json:"shipping_charge"`
	Total              decimal.Decimal `json:"total"`
	Balance            decimal.Decimal `json:"balance"`
	Adjustment         decimal.Decimal `json:"adjustment"`
	Status             InvoiceStatus   `json:"status"`
	SyncStatus         SyncStatus      `json:"sync_status"`
	BillingAddress     *Address        `json:"billing_address,omitempty"`
	ShippingAddress    *Address        `json:"shipping_address,omitempty"`
	AssignedAgentID    *string         `json:"assigned_agent_id,omitempty"`
	Notes              string          `json:"notes"`
	Terms              string          `json:"terms"`
	LastPaymentDate    *string         `json:"last_payment_date,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	LineItems          []LineItem      `json:"line_items,omitempty"`
	Payments           []Payment       `json:"payments,omitempty"`
}

type LineItem struct {
	ID             int             `json:"id"`
	InvoiceID      int             `json:"invoice_id"`
	ExternalLineID string          `json:"external_line_id"`
	ExternalItemID string          `json:"external_item_id"`
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Quantity       decimal.Decimal `json:"quantity"`
	Rate           decimal.Decimal `json:"rate"`
	Amount         decimal.Decimal `json:"amount"`
	Discount       string          `json:"discount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxName        string          `json:"tax_name"`
	TaxPercentage  decimal.Decimal `json:"tax_percentage"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	SortOrder      int             `json:"sort_order"`
}

// Payment is append-only: rows are created by the payment recorder and never
// updated or deleted, except for the sweep flipping sync_status once the remote
// write eventually lands.
type Payment struct {
	ID                int             `json:"id"`
	InvoiceID         int             `json:"invoice_id"`
	Amount            decimal.Decimal `json:"amount"`
	PaymentDate       string          `json:"payment_date"` // YYYY-MM-DD
	PaymentMode       string          `json:"payment_mode"`
	ReferenceNumber   string          `json:"reference_number"`
	Description       string          `json:"description"`
	RecordedBy        string          `json:"recorded_by"`
	ExternalPaymentID *string         `json:"external_payment_id,omitempty"`
	SyncStatus        SyncStatus      `json:"sync_status"`
	RetryCount        int             `json:"retry_count"`
	CreatedAt         time.Time       `json:"created_at"`
}

type ReminderLogEntry struct {
	ID                int       `json:"id"`
	InvoiceID         *int      `json:"invoice_id,omitempty"`
	Recipient         string    `json:"recipient"`
	CC                string    `json:"cc"`
	Subject           string    `json:"subject"`
	Outcome           string    `json:"outcome"` // "sent" or "failed"
	ErrorText         string    `json:"error_text"`
	ExternalMessageID string    `json:"external_message_id"`
	SentBy            string    `json:"sent_by"`
	CreatedAt         time.Time `json:"created_at"`
}

// Order is the local mirror of a source sales order in the remote system.
type Order struct {
	ID                 int             `json:"id"`
	ExternalID         string          `json:"external_id"`
	OrderNumber        string          `json:"order_number"`
	CustomerExternalID string          `json:"customer_external_id"`
	CustomerName       string          `json:"customer_name"`
	Total              decimal.Decimal `json:"total"`
	CreatedAt          time.Time       `json:"created_at"`
}

// EventKind classifies an inbound webhook event.
type EventKind int

const (
	// EventUpsert requires fetching the full canonical record before merging:
	// webhook payloads are summaries, not complete records.
	EventUpsert EventKind = iota
	// EventVoid marks the local invoice void without any remote fetch.
	EventVoid
	// EventIgnore is an unrecognized event type: logged and dropped.
	EventIgnore
)

// ClassifyEvent maps a webhook event type to the action it requires. Any type
// containing "delete", or an explicit deleted marker, voids the local record;
// create/update types reconcile; anything else is ignored.
func ClassifyEvent(eventType string, deleted bool) EventKind {
	t := strings.ToLower(eventType)
	switch {
	case deleted || strings.Contains(t, "delete"):
		return EventVoid
	case strings.Contains(t, "creat") || strings.Contains(t, "updat"):
		return EventUpsert
	}
	return EventIgnore
}

// CanApplyPayment reports whether a local payment may be applied in the given
// status. This is deliberately wider than the unpaid states: a sent, viewed,
// or overdue invoice is still an open receivable and payments arrive against
// them. Draft, paid, and void reject.
func (s InvoiceStatus) CanApplyPayment() bool {
	switch s {
	case StatusUnpaid, StatusPartiallyPaid, StatusSent, StatusViewed, StatusOverdue:
		return true
	}
	return false
}

// statusAfterPayment returns the invoice status after a locally-applied payment
// leaves newBalance remaining. A zero balance always means paid; any other
// balance keeps the prior status, so local payments never reverse completion
// and never fight the remote system over intermediate states.
func statusAfterPayment(prior InvoiceStatus, newBalance decimal.Decimal) InvoiceStatus {
	if newBalance.IsZero() {
		return StatusPaid
	}
	return prior
}

// clampBalance keeps the derived balance inside [0, total].
func clampBalance(balance, total decimal.Decimal) decimal.Decimal {
	if balance.IsNegative() {
		return decimal.Zero
	}
	if balance.GreaterThan(total) {
		return total
	}
	return balance
}
