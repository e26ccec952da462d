package app

import (
	"context"

	"github.com/ablair264/splitfin/internal/core"
)

// ApplicationService is the single interface all adapters call. It decouples
// transport from business logic; implementations contain no HTTP concerns.
type ApplicationService interface {
	// HandleInvoiceEvent processes one classified webhook event: voids the local
	// invoice on delete events, otherwise fetches the canonical remote record
	// and reconciles it. Callers ack the webhook before invoking this.
	HandleInvoiceEvent(ctx context.Context, ev InvoiceEvent) error

	// GetInvoice returns a single invoice with line items and payments.
	GetInvoice(ctx context.Context, invoiceID int) (*InvoiceResult, error)

	// RecordPayment validates and records a payment against an invoice,
	// attempting the remote write-through and always persisting locally.
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (*PaymentResult, error)

	// ConvertOrder creates a remote invoice from a local order and reconciles
	// the result into local storage.
	ConvertOrder(ctx context.Context, req ConvertOrderRequest) (*InvoiceResult, error)

	// RemindersEnabled / SetRemindersEnabled expose the global reminder toggle.
	RemindersEnabled(ctx context.Context) (bool, error)
	SetRemindersEnabled(ctx context.Context, enabled bool) error

	// Per-customer reminder configuration, consumed by the reminder scheduler.
	GetCustomerReminderSettings(ctx context.Context, customerExternalID string) (*core.CustomerReminderSettings, error)
	UpsertCustomerReminderSettings(ctx context.Context, s core.CustomerReminderSettings) (*core.CustomerReminderSettings, error)
}
