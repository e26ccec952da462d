package core

import (
	"context"
	"fmt"
	"time"

	"github.com/ablair264/splitfin/internal/billing"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Sweeper retries the remote write for payments stuck in pending_push, so every
// locally-accepted payment eventually converges with the remote system. Retries
// back off exponentially via next_attempt_at; after MaxRetries a payment is
// marked failed and left for manual replay.
type Sweeper struct {
	pool    *pgxpool.Pool
	gateway BillingGateway
	log     zerolog.Logger

	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

func NewSweeper(pool *pgxpool.Pool, gateway BillingGateway, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		pool:       pool,
		gateway:    gateway,
		log:        log.With().Str("component", "payment_sweeper").Logger(),
		Interval:   5 * time.Minute,
		BatchSize:  50,
		MaxRetries: 5,
	}
}

// Run blocks, sweeping once per interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.Interval).Msg("payment sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("payment sweeper stopping")
			return
		case <-ticker.C:
			if n, err := s.SweepOnce(ctx); err != nil {
				s.log.Error().Err(err).Msg("sweep cycle failed")
			} else if n > 0 {
				s.log.Info().Int("pushed", n).Msg("sweep cycle complete")
			}
		}
	}
}

type pendingPayment struct {
	ID                 int
	InvoiceID          int
	InvoiceExternalID  *string
	CustomerExternalID string
	Amount             billing.PaymentInput
	RetryCount         int
}

// SweepOnce pushes one batch of due pending_push payments and returns how many
// were successfully synced.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.invoice_id, i.external_id, i.customer_external_id,
		       p.amount, p.payment_date::text, p.payment_mode, p.reference_number, p.retry_count
		FROM payments p
		JOIN invoices i ON i.id = p.invoice_id
		WHERE p.sync_status = 'pending_push'
		  AND (p.next_attempt_at IS NULL OR p.next_attempt_at <= NOW())
		ORDER BY p.id
		LIMIT $1
	`, s.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("query pending payments: %w", err)
	}
	defer rows.Close()

	var pending []pendingPayment
	for rows.Next() {
		var pp pendingPayment
		if err := rows.Scan(
			&pp.ID, &pp.InvoiceID, &pp.InvoiceExternalID, &pp.CustomerExternalID,
			&pp.Amount.Amount, &pp.Amount.Date, &pp.Amount.Mode, &pp.Amount.Reference, &pp.RetryCount,
		); err != nil {
			return 0, fmt.Errorf("scan pending payment: %w", err)
		}
		pending = append(pending, pp)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate pending payments: %w", err)
	}
	rows.Close()

	synced := 0
	for _, pp := range pending {
		if pp.InvoiceExternalID == nil {
			// Invoice still has no remote counterpart; leave the payment pending
			// until a reconciliation assigns one.
			continue
		}
		ref, err := s.gateway.RecordPayment(ctx, pp.CustomerExternalID, *pp.InvoiceExternalID, pp.Amount)
		if err != nil {
			if markErr := s.markRetry(ctx, pp); markErr != nil {
				s.log.Error().Err(markErr).Int("payment_id", pp.ID).Msg("failed to record retry state")
			}
			s.log.Warn().Err(err).
				Int("payment_id", pp.ID).
				Str("invoice_external_id", *pp.InvoiceExternalID).
				Int("retry_count", pp.RetryCount+1).
				Msg("pending payment push failed")
			continue
		}
		if _, err := s.pool.Exec(ctx, `
			UPDATE payments
			SET sync_status = 'synced', external_payment_id = $1, next_attempt_at = NULL
			WHERE id = $2
		`, ref.PaymentID, pp.ID); err != nil {
			return synced, fmt.Errorf("mark payment %d synced: %w", pp.ID, err)
		}
		synced++
	}
	return synced, nil
}

// markRetry bumps retry_count with exponential backoff, flipping to failed once
// MaxRetries is exhausted.
func (s *Sweeper) markRetry(ctx context.Context, pp pendingPayment) error {
	retries := pp.RetryCount + 1
	if retries >= s.MaxRetries {
		_, err := s.pool.Exec(ctx,
			"UPDATE payments SET sync_status = 'failed', retry_count = $1 WHERE id = $2",
			retries, pp.ID)
		if err != nil {
			return fmt.Errorf("mark payment %d failed: %w", pp.ID, err)
		}
		s.log.Error().Int("payment_id", pp.ID).Int("retries", retries).
			Msg("payment push abandoned after max retries")
		return nil
	}

	backoff := s.Interval * (1 << retries)
	_, err := s.pool.Exec(ctx, `
		UPDATE payments
		SET retry_count = $1, next_attempt_at = $2
		WHERE id = $3
	`, retries, time.Now().Add(backoff), pp.ID)
	if err != nil {
		return fmt.Errorf("schedule retry for payment %d: %w", pp.ID, err)
	}
	return nil
}
