package app

import "github.com/ablair264/splitfin/internal/core"

// InvoiceResult is returned by invoice-producing operations.
type InvoiceResult struct {
	Invoice *core.Invoice
}

// PaymentResult is returned by RecordPayment: the created payment plus the
// invoice summary with its recomputed balance and status.
type PaymentResult struct {
	Payment *core.Payment
	Invoice *core.Invoice
}
