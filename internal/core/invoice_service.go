package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ablair264/splitfin/internal/billing"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// BillingGateway is the outbound contract to the authoritative billing system.
// *billing.Client satisfies it; tests inject stubs.
type BillingGateway interface {
	FetchInvoice(ctx context.Context, externalID string) (*billing.Invoice, error)
	CreateFromOrder(ctx context.Context, orderExternalID string) (*billing.Invoice, error)
	RecordPayment(ctx context.Context, customerExternalID, invoiceExternalID string, p billing.PaymentInput) (*billing.PaymentRef, error)
}

// InvoiceService reconciles canonical remote invoice records into local storage.
type InvoiceService interface {
	// SyncFromRemote fetches the full record for externalID and merges it.
	SyncFromRemote(ctx context.Context, externalID string) (*Invoice, error)
	// Reconcile merges an already-fetched canonical record.
	Reconcile(ctx context.Context, remote *billing.Invoice) (*Invoice, error)
	// VoidByExternalID soft-voids the local invoice, returning rows affected.
	// Zero rows is a no-op, not an error.
	VoidByExternalID(ctx context.Context, externalID string) (int64, error)
	GetInvoice(ctx context.Context, invoiceID int) (*Invoice, error)
	GetInvoiceByExternalID(ctx context.Context, externalID string) (*Invoice, error)
}

type invoiceService struct {
	pool    *pgxpool.Pool
	gateway BillingGateway
	log     zerolog.Logger
}

func NewInvoiceService(pool *pgxpool.Pool, gateway BillingGateway, log zerolog.Logger) InvoiceService {
	return &invoiceService{pool: pool, gateway: gateway, log: log.With().Str("component", "invoice_service").Logger()}
}

func (s *invoiceService) SyncFromRemote(ctx context.Context, externalID string) (*Invoice, error) {
	remote, err := s.gateway.FetchInvoice(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("fetch invoice %s from remote: %w", externalID, err)
	}
	return s.Reconcile(ctx, remote)
}

// Reconcile runs the full merge as one transaction: header upsert keyed on
// external_id, then delete-and-reinsert of the line items in remote sort order.
// The upsert row-locks the header for the rest of the transaction, so two
// concurrent reconciliations for the same invoice serialize instead of leaving
// an observable empty or duplicated line-item window.
func (s *invoiceService) Reconcile(ctx context.Context, remote *billing.Invoice) (*Invoice, error) {
	if remote == nil || remote.InvoiceID == "" {
		return nil, validationf("remote invoice is missing an external id")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin reconcile tx: %w", err)
	}
	defer tx.Rollback(ctx)

	billingAddr, err := marshalAddress(fromRemoteAddress(remote.BillingAddress))
	if err != nil {
		return nil, fmt.Errorf("encode billing address: %w", err)
	}
	shippingAddr, err := marshalAddress(fromRemoteAddress(remote.ShippingAddress))
	if err != nil {
		return nil, fmt.Errorf("encode shipping address: %w", err)
	}

	status := normalizeRemoteStatus(remote.Status)
	balance := clampBalance(remote.Balance, remote.Total)

	// Local-only fields (assigned_agent_id) are deliberately absent from the
	// update set: a re-upsert must never overwrite them with remote nulls.
	// Void is terminal: an out-of-order update event after a delete must not
	// resurrect the invoice, so the status update keeps an existing 'void'.
	var invoiceID int
	err = tx.QueryRow(ctx, `
		INSERT INTO invoices (
			external_id, invoice_number, reference_number,
			customer_external_id, customer_name, order_external_id,
			issue_date, due_date,
			subtotal, tax_total, discount_total, shipping_charge,
			total, balance, adjustment,
			status, sync_status, billing_address, shipping_address,
			notes, terms, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 'synced', $17, $18, $19, $20, NOW())
		ON CONFLICT (external_id) DO UPDATE SET
			invoice_number = EXCLUDED.invoice_number,
			reference_number = EXCLUDED.reference_number,
			customer_external_id = EXCLUDED.customer_external_id,
			customer_name = EXCLUDED.customer_name,
			order_external_id = EXCLUDED.order_external_id,
			issue_date = EXCLUDED.issue_date,
			due_date = EXCLUDED.due_date,
			subtotal = EXCLUDED.subtotal,
			tax_total = EXCLUDED.tax_total,
			discount_total = EXCLUDED.discount_total,
			shipping_charge = EXCLUDED.shipping_charge,
			total = EXCLUDED.total,
			balance = EXCLUDED.balance,
			adjustment = EXCLUDED.adjustment,
			status = CASE WHEN invoices.status = 'void' THEN invoices.status ELSE EXCLUDED.status END,
			sync_status = 'synced',
			billing_address = EXCLUDED.billing_address,
			shipping_address = EXCLUDED.shipping_address,
			notes = EXCLUDED.notes,
			terms = EXCLUDED.terms,
			updated_at = NOW()
		RETURNING id
	`,
		remote.InvoiceID, remote.InvoiceNumber, remote.ReferenceNumber,
		remote.CustomerID, remote.CustomerName, nullIfEmpty(remote.SalesOrderID),
		nullIfEmpty(remote.Date), nullIfEmpty(remote.DueDate),
		remote.SubTotal, remote.TaxTotal, remote.DiscountTotal, remote.ShippingCharge,
		remote.Total, balance, remote.Adjustment,
		string(status), billingAddr, shippingAddr,
		remote.Notes, remote.Terms,
	).Scan(&invoiceID)
	if err != nil {
		return nil, fmt.Errorf("upsert invoice header %s: %w", remote.InvoiceID, err)
	}

	// Line items mirror the remote set exactly as of this reconciliation:
	// full replace, never an incremental patch.
	if _, err := tx.Exec(ctx, "DELETE FROM invoice_line_items WHERE invoice_id = $1", invoiceID); err != nil {
		return nil, fmt.Errorf("delete line items for invoice %d: %w", invoiceID, err)
	}

	for i, li := range remote.LineItems {
		_, err = tx.Exec(ctx, `
			INSERT INTO invoice_line_items (
				invoice_id, external_line_id, external_item_id, sku, name, description,
				quantity, rate, amount, discount, discount_amount,
				tax_name, tax_percentage, tax_amount, sort_order
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`, invoiceID, li.LineItemID, li.ItemID, li.SKU, li.Name, li.Description,
			li.Quantity, li.Rate, li.ItemTotal, li.Discount, li.DiscountAmount,
			li.TaxName, li.TaxPercentage, li.TaxAmount, i)
		if err != nil {
			return nil, fmt.Errorf("insert line item %d for invoice %d: %w", i+1, invoiceID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reconcile for invoice %s: %w", remote.InvoiceID, err)
	}

	s.log.Info().
		Str("external_id", remote.InvoiceID).
		Int("invoice_id", invoiceID).
		Int("line_items", len(remote.LineItems)).
		Msg("invoice reconciled")

	return s.GetInvoice(ctx, invoiceID)
}

func (s *invoiceService) VoidByExternalID(ctx context.Context, externalID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE invoices
		SET status = 'void', sync_status = 'synced', updated_at = NOW()
		WHERE external_id = $1
	`, externalID)
	if err != nil {
		return 0, fmt.Errorf("void invoice %s: %w", externalID, err)
	}
	return tag.RowsAffected(), nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, invoiceID int) (*Invoice, error) {
	return s.getInvoice(ctx, "i.id = $1", invoiceID)
}

func (s *invoiceService) GetInvoiceByExternalID(ctx context.Context, externalID string) (*Invoice, error) {
	return s.getInvoice(ctx, "i.external_id = $1", externalID)
}

func (s *invoiceService) getInvoice(ctx context.Context, where string, arg any) (*Invoice, error) {
	var inv Invoice
	var billingRaw, shippingRaw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT i.id, i.external_id, i.invoice_number, i.reference_number,
		       i.customer_external_id, i.customer_name, i.order_external_id,
		       i.issue_date::text, i.due_date::text,
		       i.subtotal, i.tax_total, i.discount_total, i.shipping_charge,
		       i.total, i.balance, i.adjustment,
		       i.status, i.sync_status, i.billing_address, i.shipping_address,
		       i.assigned_agent_id, i.notes, i.terms, i.last_payment_date::text,
		       i.created_at, i.updated_at
		FROM invoices i
		WHERE `+where, arg).Scan(
		&inv.ID, &inv.ExternalID, &inv.InvoiceNumber, &inv.ReferenceNumber,
		&inv.CustomerExternalID, &inv.CustomerName, &inv.OrderExternalID,
		&inv.IssueDate, &inv.DueDate,
		&inv.Subtotal, &inv.TaxTotal, &inv.DiscountTotal, &inv.ShippingCharge,
		&inv.Total, &inv.Balance, &inv.Adjustment,
		&inv.Status, &inv.SyncStatus, &billingRaw, &shippingRaw,
		&inv.AssignedAgentID, &inv.Notes, &inv.Terms, &inv.LastPaymentDate,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "invoice", Ref: fmt.Sprint(arg)}
		}
		return nil, fmt.Errorf("fetch invoice: %w", err)
	}

	if inv.BillingAddress, err = unmarshalAddress(billingRaw); err != nil {
		return nil, fmt.Errorf("decode billing address for invoice %d: %w", inv.ID, err)
	}
	if inv.ShippingAddress, err = unmarshalAddress(shippingRaw); err != nil {
		return nil, fmt.Errorf("decode shipping address for invoice %d: %w", inv.ID, err)
	}

	if inv.LineItems, err = s.fetchLineItems(ctx, inv.ID); err != nil {
		return nil, err
	}
	if inv.Payments, err = s.fetchPayments(ctx, inv.ID); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *invoiceService) fetchLineItems(ctx context.Context, invoiceID int) ([]LineItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, invoice_id, external_line_id, external_item_id, sku, name, description,
		       quantity, rate, amount, discount, discount_amount,
		       tax_name, tax_percentage, tax_amount, sort_order
		FROM invoice_line_items
		WHERE invoice_id = $1
		ORDER BY sort_order
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("query line items for invoice %d: %w", invoiceID, err)
	}
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		var li LineItem
		if err := rows.Scan(
			&li.ID, &li.InvoiceID, &li.ExternalLineID, &li.ExternalItemID, &li.SKU, &li.Name, &li.Description,
			&li.Quantity, &li.Rate, &li.Amount, &li.Discount, &li.DiscountAmount,
			&li.TaxName, &li.TaxPercentage, &li.TaxAmount, &li.SortOrder,
		); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

func (s *invoiceService) fetchPayments(ctx context.Context, invoiceID int) ([]Payment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, invoice_id, amount, payment_date::text, payment_mode, reference_number,
		       description, recorded_by, external_payment_id, sync_status, retry_count, created_at
		FROM payments
		WHERE invoice_id = $1
		ORDER BY id
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("query payments for invoice %d: %w", invoiceID, err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(
			&p.ID, &p.InvoiceID, &p.Amount, &p.PaymentDate, &p.PaymentMode, &p.ReferenceNumber,
			&p.Description, &p.RecordedBy, &p.ExternalPaymentID, &p.SyncStatus, &p.RetryCount, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// normalizeRemoteStatus maps the remote status vocabulary onto the local enum.
// Unknown values fall back to unpaid rather than failing the merge.
func normalizeRemoteStatus(s string) InvoiceStatus {
	switch InvoiceStatus(s) {
	case StatusDraft, StatusSent, StatusViewed, StatusUnpaid, StatusPartiallyPaid, StatusOverdue, StatusPaid, StatusVoid:
		return InvoiceStatus(s)
	}
	return StatusUnpaid
}

func fromRemoteAddress(a *billing.RemoteAddress) *Address {
	if a == nil {
		return nil
	}
	return &Address{
		Line1:      a.Address,
		Line2:      a.Street2,
		City:       a.City,
		Region:     a.State,
		PostalCode: a.Zip,
		Country:    a.Country,
	}
}

func marshalAddress(a *Address) ([]byte, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

func unmarshalAddress(raw []byte) (*Address, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var a Address
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
