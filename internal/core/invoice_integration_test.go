package core_test

import (
	"context"
	"testing"

	"github.com/ablair264/splitfin/internal/core"

	"github.com/shopspring/decimal"
)

func TestReconcile_Idempotent(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	gw := newStubGateway()
	svc := core.NewInvoiceService(pool, gw, testLogger())
	ctx := context.Background()

	remote := remoteInvoiceFixture("ext-100")

	first, err := svc.Reconcile(ctx, remote)
	if err != nil {
		t.Fatalf("first reconcile failed: %v", err)
	}

	second, err := svc.Reconcile(ctx, remote)
	if err != nil {
		t.Fatalf("second reconcile failed: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("reconcile created a second invoice: %d vs %d", first.ID, second.ID)
	}
	if len(second.LineItems) != 2 {
		t.Fatalf("expected 2 line items after re-reconcile, got %d", len(second.LineItems))
	}
	if second.InvoiceNumber != first.InvoiceNumber || !second.Total.Equal(first.Total) {
		t.Errorf("header changed across identical reconciles: %+v vs %+v", first, second)
	}

	var lineCount int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM invoice_line_items WHERE invoice_id = $1", first.ID).Scan(&lineCount); err != nil {
		t.Fatalf("count lines: %v", err)
	}
	if lineCount != 2 {
		t.Errorf("expected 2 line item rows, got %d", lineCount)
	}
}

func TestReconcile_LineItemsMirrorRemote(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	gw := newStubGateway()
	svc := core.NewInvoiceService(pool, gw, testLogger())
	ctx := context.Background()

	remote := remoteInvoiceFixture("ext-200")
	if _, err := svc.Reconcile(ctx, remote); err != nil {
		t.Fatalf("initial reconcile failed: %v", err)
	}

	// The remote drops a line: local must mirror the new set exactly.
	updated := remoteInvoiceFixture("ext-200")
	updated.LineItems = updated.LineItems[1:]
	updated.LineItems[0].Name = "Gadget v2"

	inv, err := svc.Reconcile(ctx, updated)
	if err != nil {
		t.Fatalf("second reconcile failed: %v", err)
	}

	if len(inv.LineItems) != 1 {
		t.Fatalf("expected exactly 1 line item, got %d", len(inv.LineItems))
	}
	if inv.LineItems[0].Name != "Gadget v2" {
		t.Errorf("expected replaced line item, got %q", inv.LineItems[0].Name)
	}
	if inv.LineItems[0].SortOrder != 0 {
		t.Errorf("expected sort order 0, got %d", inv.LineItems[0].SortOrder)
	}
}

func TestReconcile_PreservesLocalOnlyFields(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	gw := newStubGateway()
	svc := core.NewInvoiceService(pool, gw, testLogger())
	ctx := context.Background()

	inv, err := svc.Reconcile(ctx, remoteInvoiceFixture("ext-300"))
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if _, err := pool.Exec(ctx, "UPDATE invoices SET assigned_agent_id = 'agent-7' WHERE id = $1", inv.ID); err != nil {
		t.Fatalf("assign agent: %v", err)
	}

	again, err := svc.Reconcile(ctx, remoteInvoiceFixture("ext-300"))
	if err != nil {
		t.Fatalf("re-reconcile failed: %v", err)
	}
	if again.AssignedAgentID == nil || *again.AssignedAgentID != "agent-7" {
		t.Errorf("assigned agent was lost across reconcile: %v", again.AssignedAgentID)
	}
}

func TestReconcile_ClampsRemoteBalance(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	gw := newStubGateway()
	svc := core.NewInvoiceService(pool, gw, testLogger())
	ctx := context.Background()

	remote := remoteInvoiceFixture("ext-400")
	remote.Balance = decimal.RequireFromString("250.00") // above total

	inv, err := svc.Reconcile(ctx, remote)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if !inv.Balance.Equal(remote.Total) {
		t.Errorf("balance should clamp to total %s, got %s", remote.Total, inv.Balance)
	}
}

func TestVoidByExternalID_NoMatchIsNoOp(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	gw := newStubGateway()
	svc := core.NewInvoiceService(pool, gw, testLogger())

	rows, err := svc.VoidByExternalID(context.Background(), "ext-does-not-exist")
	if err != nil {
		t.Fatalf("void of unknown id must not error: %v", err)
	}
	if rows != 0 {
		t.Errorf("expected zero rows affected, got %d", rows)
	}
}

func TestVoidByExternalID_SoftVoids(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	gw := newStubGateway()
	svc := core.NewInvoiceService(pool, gw, testLogger())
	ctx := context.Background()

	inv, err := svc.Reconcile(ctx, remoteInvoiceFixture("ext-500"))
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	rows, err := svc.VoidByExternalID(ctx, "ext-500")
	if err != nil {
		t.Fatalf("void failed: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 row voided, got %d", rows)
	}

	got, err := svc.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	if got.Status != core.StatusVoid {
		t.Errorf("expected void status, got %s", got.Status)
	}
	if got.SyncStatus != core.SyncSynced {
		t.Errorf("expected synced sync_status, got %s", got.SyncStatus)
	}
	if len(got.LineItems) != 2 {
		t.Errorf("soft-void must preserve line items, got %d", len(got.LineItems))
	}
}

func TestReconcile_VoidIsTerminal(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	gw := newStubGateway()
	svc := core.NewInvoiceService(pool, gw, testLogger())
	ctx := context.Background()

	remote := remoteInvoiceFixture("ext-500")
	if _, err := svc.Reconcile(ctx, remote); err != nil {
		t.Fatalf("initial reconcile failed: %v", err)
	}

	rows, err := svc.VoidByExternalID(ctx, "ext-500")
	if err != nil {
		t.Fatalf("void failed: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 voided row, got %d", rows)
	}

	// An out-of-order update arriving after the delete still carries the old
	// remote status; it must not resurrect the invoice.
	late := remoteInvoiceFixture("ext-500")
	late.Status = "unpaid"
	got, err := svc.Reconcile(ctx, late)
	if err != nil {
		t.Fatalf("late reconcile failed: %v", err)
	}

	if got.Status != core.StatusVoid {
		t.Errorf("void invoice resurrected to %s", got.Status)
	}
	if len(got.LineItems) != 2 {
		t.Errorf("expected mirrored line items on voided invoice, got %d", len(got.LineItems))
	}
}
