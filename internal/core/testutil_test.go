package core_test

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"

	"github.com/ablair264/splitfin/internal/billing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	schema, err := os.ReadFile("../../migrations/001_init.sql")
	if err != nil {
		t.Fatalf("Failed to read schema: %v", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE payments, invoice_line_items, invoices, orders,
		reminder_logs, notifications, app_settings, customer_reminder_settings CASCADE;
	`)
	if err != nil {
		t.Fatalf("Failed to clean test database: %v", err)
	}

	return pool
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// stubGateway is a configurable in-memory BillingGateway for tests.
type stubGateway struct {
	invoices map[string]*billing.Invoice

	failRecordPayment bool
	failFetch         bool
	paymentCalls      atomic.Int64
	nextPaymentID     string
}

func newStubGateway() *stubGateway {
	return &stubGateway{invoices: map[string]*billing.Invoice{}, nextPaymentID: "rpay-1"}
}

func (g *stubGateway) FetchInvoice(ctx context.Context, externalID string) (*billing.Invoice, error) {
	if g.failFetch {
		return nil, &billing.RemoteError{Op: "fetch_invoice", Err: errors.New("simulated network error")}
	}
	inv, ok := g.invoices[externalID]
	if !ok {
		return nil, billing.ErrNotFound
	}
	return inv, nil
}

func (g *stubGateway) CreateFromOrder(ctx context.Context, orderExternalID string) (*billing.Invoice, error) {
	for _, inv := range g.invoices {
		if inv.SalesOrderID == orderExternalID {
			return inv, nil
		}
	}
	return nil, &billing.RemoteError{Op: "create_from_order", Code: 1001, Message: "no such sales order"}
}

func (g *stubGateway) RecordPayment(ctx context.Context, customerExternalID, invoiceExternalID string, p billing.PaymentInput) (*billing.PaymentRef, error) {
	g.paymentCalls.Add(1)
	if g.failRecordPayment {
		return nil, &billing.RemoteError{Op: "record_payment", Err: errors.New("simulated network error")}
	}
	return &billing.PaymentRef{PaymentID: g.nextPaymentID}, nil
}

// remoteInvoiceFixture builds a canonical remote invoice with two line items.
func remoteInvoiceFixture(externalID string) *billing.Invoice {
	return &billing.Invoice{
		InvoiceID:       externalID,
		InvoiceNumber:   "INV-000042",
		ReferenceNumber: "REF-7",
		CustomerID:      "cust-1",
		CustomerName:    "Acme Ltd",
		Date:            "2026-08-01",
		DueDate:         "2026-08-31",
		SubTotal:        decimal.RequireFromString("180.00"),
		TaxTotal:        decimal.RequireFromString("20.00"),
		Total:           decimal.RequireFromString("200.00"),
		Balance:         decimal.RequireFromString("200.00"),
		Status:          "unpaid",
		Notes:           "remote notes",
		Terms:           "net 30",
		BillingAddress: &billing.RemoteAddress{
			Address: "1 High Street",
			City:    "London",
			Zip:     "N1 1AA",
			Country: "GB",
		},
		LineItems: []billing.LineItem{
			{
				LineItemID: "li-1", ItemID: "item-1", SKU: "SKU-1", Name: "Widget",
				Quantity:  decimal.NewFromInt(2),
				Rate:      decimal.RequireFromString("50.00"),
				ItemTotal: decimal.RequireFromString("100.00"),
			},
			{
				LineItemID: "li-2", ItemID: "item-2", SKU: "SKU-2", Name: "Gadget",
				Quantity:  decimal.NewFromInt(1),
				Rate:      decimal.RequireFromString("80.00"),
				ItemTotal: decimal.RequireFromString("80.00"),
			},
		},
	}
}
