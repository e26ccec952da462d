package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ablair264/splitfin/internal/billing"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RecordPaymentInput is everything needed to record a payment against an invoice.
type RecordPaymentInput struct {
	InvoiceID   int
	Amount      decimal.Decimal
	Date        string // YYYY-MM-DD; empty means today
	Mode        string
	Reference   string
	Description string
	RecordedBy  string
}

// PaymentService validates and records payments. The local ledger is
// authoritative for balance and status even when the remote write is deferred:
// a failed remote push degrades the payment to pending_push, it never aborts
// the user-facing request.
type PaymentService interface {
	RecordPayment(ctx context.Context, in RecordPaymentInput) (*Payment, *Invoice, error)
}

type paymentService struct {
	pool     *pgxpool.Pool
	gateway  BillingGateway
	notifier *Notifier
	log      zerolog.Logger
}

func NewPaymentService(pool *pgxpool.Pool, gateway BillingGateway, notifier *Notifier, log zerolog.Logger) PaymentService {
	return &paymentService{
		pool:     pool,
		gateway:  gateway,
		notifier: notifier,
		log:      log.With().Str("component", "payment_service").Logger(),
	}
}

func (s *paymentService) RecordPayment(ctx context.Context, in RecordPaymentInput) (*Payment, *Invoice, error) {
	if !in.Amount.IsPositive() {
		return nil, nil, validationf("payment amount must be greater than zero, got %s", in.Amount.StringFixed(2))
	}
	if in.Date == "" {
		in.Date = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", in.Date); err != nil {
		return nil, nil, validationf("invalid payment date %q", in.Date)
	}

	// Pre-check outside the write tx so obviously bad requests never reach the
	// remote system. The authoritative check is repeated under the row lock.
	var externalID, customerExternalID *string
	var balance decimal.Decimal
	var status InvoiceStatus
	err := s.pool.QueryRow(ctx,
		"SELECT external_id, customer_external_id, balance, status FROM invoices WHERE id = $1",
		in.InvoiceID,
	).Scan(&externalID, &customerExternalID, &balance, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, &NotFoundError{Entity: "invoice", Ref: fmt.Sprint(in.InvoiceID)}
		}
		return nil, nil, fmt.Errorf("fetch invoice %d for payment: %w", in.InvoiceID, err)
	}
	if !status.CanApplyPayment() {
		return nil, nil, validationf("invoice %d is %s and cannot accept payments", in.InvoiceID, status)
	}
	if in.Amount.GreaterThan(balance) {
		return nil, nil, validationf("payment amount %s exceeds outstanding balance %s",
			in.Amount.StringFixed(2), balance.StringFixed(2))
	}

	// Best-effort remote write-through, single attempt. The row lock is not
	// held across this call; the balance is re-checked afterwards.
	syncStatus := SyncSynced
	var externalPaymentID *string
	if externalID != nil && customerExternalID != nil {
		ref, err := s.gateway.RecordPayment(ctx, *customerExternalID, *externalID, billing.PaymentInput{
			Amount:    in.Amount,
			Date:      in.Date,
			Mode:      in.Mode,
			Reference: in.Reference,
		})
		if err != nil {
			syncStatus = SyncPendingPush
			s.log.Warn().Err(err).
				Str("invoice_external_id", *externalID).
				Str("operation", "record_payment").
				Msg("remote payment write failed, recording locally as pending_push")
		} else {
			externalPaymentID = &ref.PaymentID
		}
	} else {
		// Invoice was never pushed to the remote system; nothing to write through.
		syncStatus = SyncPendingPush
	}

	payment, invoice, err := s.applyLocally(ctx, in, syncStatus, externalPaymentID)
	if err != nil {
		return nil, nil, err
	}

	if s.notifier != nil && in.RecordedBy != "" {
		s.notifier.PaymentRecorded(ctx, in.RecordedBy, invoice, payment)
	}
	return payment, invoice, nil
}

// applyLocally inserts the payment row and recomputes balance and status as one
// transaction. The SELECT ... FOR UPDATE serializes concurrent payments against
// the same invoice: the second writer re-reads the decremented balance and is
// rejected if the amount no longer fits.
func (s *paymentService) applyLocally(ctx context.Context, in RecordPaymentInput, syncStatus SyncStatus, externalPaymentID *string) (*Payment, *Invoice, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin payment tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var balance, total decimal.Decimal
	var status InvoiceStatus
	err = tx.QueryRow(ctx,
		"SELECT balance, total, status FROM invoices WHERE id = $1 FOR UPDATE",
		in.InvoiceID,
	).Scan(&balance, &total, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, &NotFoundError{Entity: "invoice", Ref: fmt.Sprint(in.InvoiceID)}
		}
		return nil, nil, fmt.Errorf("lock invoice %d: %w", in.InvoiceID, err)
	}
	if in.Amount.GreaterThan(balance) {
		return nil, nil, validationf("payment amount %s exceeds outstanding balance %s",
			in.Amount.StringFixed(2), balance.StringFixed(2))
	}

	var p Payment
	err = tx.QueryRow(ctx, `
		INSERT INTO payments (invoice_id, amount, payment_date, payment_mode, reference_number,
		                      description, recorded_by, external_payment_id, sync_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, invoice_id, amount, payment_date::text, payment_mode, reference_number,
		          description, recorded_by, external_payment_id, sync_status, retry_count, created_at
	`, in.InvoiceID, in.Amount, in.Date, in.Mode, in.Reference,
		in.Description, in.RecordedBy, externalPaymentID, string(syncStatus),
	).Scan(
		&p.ID, &p.InvoiceID, &p.Amount, &p.PaymentDate, &p.PaymentMode, &p.ReferenceNumber,
		&p.Description, &p.RecordedBy, &p.ExternalPaymentID, &p.SyncStatus, &p.RetryCount, &p.CreatedAt,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("insert payment for invoice %d: %w", in.InvoiceID, err)
	}

	// Balance is always recomputed, never trusted from input.
	newBalance := clampBalance(balance.Sub(in.Amount), total)
	newStatus := statusAfterPayment(status, newBalance)

	if _, err := tx.Exec(ctx, `
		UPDATE invoices
		SET balance = $1, status = $2, last_payment_date = $3, updated_at = NOW()
		WHERE id = $4
	`, newBalance, string(newStatus), in.Date, in.InvoiceID); err != nil {
		return nil, nil, fmt.Errorf("update balance for invoice %d: %w", in.InvoiceID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit payment for invoice %d: %w", in.InvoiceID, err)
	}

	s.log.Info().
		Int("invoice_id", in.InvoiceID).
		Str("amount", in.Amount.StringFixed(2)).
		Str("new_balance", newBalance.StringFixed(2)).
		Str("sync_status", string(syncStatus)).
		Msg("payment recorded")

	invoice, err := s.fetchInvoiceSummary(ctx, in.InvoiceID)
	if err != nil {
		return nil, nil, err
	}
	return &p, invoice, nil
}

func (s *paymentService) fetchInvoiceSummary(ctx context.Context, invoiceID int) (*Invoice, error) {
	var inv Invoice
	err := s.pool.QueryRow(ctx, `
		SELECT id, external_id, invoice_number, customer_external_id, customer_name,
		       total, balance, status, sync_status, last_payment_date::text, updated_at
		FROM invoices WHERE id = $1
	`, invoiceID).Scan(
		&inv.ID, &inv.ExternalID, &inv.InvoiceNumber, &inv.CustomerExternalID, &inv.CustomerName,
		&inv.Total, &inv.Balance, &inv.Status, &inv.SyncStatus, &inv.LastPaymentDate, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch invoice %d after payment: %w", invoiceID, err)
	}
	return &inv, nil
}
