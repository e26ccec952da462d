package core_test

import (
	"context"
	"testing"

	"github.com/ablair264/splitfin/internal/core"

	"github.com/shopspring/decimal"
)

// seedPendingPayment records a payment while the remote gateway is down, leaving
// a pending_push row behind, then restores the gateway.
func seedPendingPayment(t *testing.T, payments core.PaymentService, gw *stubGateway, invoiceID int) *core.Payment {
	t.Helper()
	gw.failRecordPayment = true
	p, _, err := payments.RecordPayment(context.Background(), core.RecordPaymentInput{
		InvoiceID: invoiceID,
		Amount:    decimal.RequireFromString("50.00"),
		Date:      "2026-08-20",
		Mode:      "cash",
	})
	if err != nil {
		t.Fatalf("seed pending payment: %v", err)
	}
	gw.failRecordPayment = false
	if p.SyncStatus != core.SyncPendingPush {
		t.Fatalf("expected seeded payment to be pending_push, got %s", p.SyncStatus)
	}
	return p
}

func TestSweepOnce_PushesPendingPayments(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	gw := newStubGateway()
	invoices := core.NewInvoiceService(pool, gw, testLogger())
	payments := core.NewPaymentService(pool, gw, nil, testLogger())
	ctx := context.Background()

	inv := seedInvoice(t, invoices, "ext-sweep-1")
	p := seedPendingPayment(t, payments, gw, inv.ID)

	gw.nextPaymentID = "rpay-sweep-1"
	sweeper := core.NewSweeper(pool, gw, testLogger())
	n, err := sweeper.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 payment pushed, got %d", n)
	}

	var syncStatus string
	var externalPaymentID *string
	err = pool.QueryRow(ctx,
		"SELECT sync_status, external_payment_id FROM payments WHERE id = $1", p.ID,
	).Scan(&syncStatus, &externalPaymentID)
	if err != nil {
		t.Fatalf("read payment: %v", err)
	}
	if syncStatus != "synced" {
		t.Errorf("expected synced, got %s", syncStatus)
	}
	if externalPaymentID == nil || *externalPaymentID != "rpay-sweep-1" {
		t.Errorf("expected external payment id rpay-sweep-1, got %v", externalPaymentID)
	}
}

func TestSweepOnce_FailureSchedulesRetry(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	gw := newStubGateway()
	invoices := core.NewInvoiceService(pool, gw, testLogger())
	payments := core.NewPaymentService(pool, gw, nil, testLogger())
	ctx := context.Background()

	inv := seedInvoice(t, invoices, "ext-sweep-2")
	p := seedPendingPayment(t, payments, gw, inv.ID)

	gw.failRecordPayment = true
	sweeper := core.NewSweeper(pool, gw, testLogger())
	n, err := sweeper.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 payments pushed, got %d", n)
	}

	var syncStatus string
	var retryCount int
	var hasNextAttempt bool
	err = pool.QueryRow(ctx,
		"SELECT sync_status, retry_count, next_attempt_at IS NOT NULL FROM payments WHERE id = $1", p.ID,
	).Scan(&syncStatus, &retryCount, &hasNextAttempt)
	if err != nil {
		t.Fatalf("read payment: %v", err)
	}
	if syncStatus != "pending_push" {
		t.Errorf("expected still pending_push, got %s", syncStatus)
	}
	if retryCount != 1 {
		t.Errorf("expected retry_count 1, got %d", retryCount)
	}
	if !hasNextAttempt {
		t.Error("expected next_attempt_at to be scheduled")
	}

	// Payment is backed off: the next sweep must not touch it.
	if n, err := sweeper.SweepOnce(ctx); err != nil || n != 0 {
		t.Errorf("backed-off payment must be skipped, pushed=%d err=%v", n, err)
	}
}

func TestSweepOnce_AbandonsAfterMaxRetries(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	gw := newStubGateway()
	invoices := core.NewInvoiceService(pool, gw, testLogger())
	payments := core.NewPaymentService(pool, gw, nil, testLogger())
	ctx := context.Background()

	inv := seedInvoice(t, invoices, "ext-sweep-3")
	p := seedPendingPayment(t, payments, gw, inv.ID)

	// Put the payment on its last attempt.
	if _, err := pool.Exec(ctx,
		"UPDATE payments SET retry_count = 4, next_attempt_at = NULL WHERE id = $1", p.ID,
	); err != nil {
		t.Fatalf("set retry count: %v", err)
	}

	gw.failRecordPayment = true
	sweeper := core.NewSweeper(pool, gw, testLogger())
	if _, err := sweeper.SweepOnce(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	var syncStatus string
	if err := pool.QueryRow(ctx,
		"SELECT sync_status FROM payments WHERE id = $1", p.ID,
	).Scan(&syncStatus); err != nil {
		t.Fatalf("read payment: %v", err)
	}
	if syncStatus != "failed" {
		t.Errorf("expected failed after max retries, got %s", syncStatus)
	}
}
