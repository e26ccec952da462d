package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ConvertOrderInput identifies the local order to invoice and the agent who
// should own the resulting invoice.
type ConvertOrderInput struct {
	OrderID         int
	AssignedAgentID string
}

// ConvertService creates a remote invoice from a local sales order and merges
// the result back through the reconciler. The remote creation is fatal on
// failure: no local invoice may exist without a remote counterpart.
type ConvertService interface {
	ConvertOrder(ctx context.Context, in ConvertOrderInput) (*Invoice, error)
	GetOrder(ctx context.Context, orderID int) (*Order, error)
}

type convertService struct {
	pool     *pgxpool.Pool
	gateway  BillingGateway
	invoices InvoiceService
	notifier *Notifier
	log      zerolog.Logger
}

func NewConvertService(pool *pgxpool.Pool, gateway BillingGateway, invoices InvoiceService, notifier *Notifier, log zerolog.Logger) ConvertService {
	return &convertService{
		pool:     pool,
		gateway:  gateway,
		invoices: invoices,
		notifier: notifier,
		log:      log.With().Str("component", "convert_service").Logger(),
	}
}

func (s *convertService) ConvertOrder(ctx context.Context, in ConvertOrderInput) (*Invoice, error) {
	order, err := s.GetOrder(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}

	// Refuse to create a duplicate: an order may be linked to at most one invoice.
	var existingID int
	err = s.pool.QueryRow(ctx,
		"SELECT id FROM invoices WHERE order_external_id = $1",
		order.ExternalID,
	).Scan(&existingID)
	if err == nil {
		return nil, &ConflictError{
			Msg:        fmt.Sprintf("order %s already has invoice %d", order.OrderNumber, existingID),
			ExistingID: existingID,
		}
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing invoice for order %s: %w", order.ExternalID, err)
	}

	remote, err := s.gateway.CreateFromOrder(ctx, order.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("create remote invoice from order %s: %w", order.ExternalID, err)
	}

	// Re-fetch the full record: creation responses can omit derived fields.
	full, err := s.gateway.FetchInvoice(ctx, remote.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("fetch created invoice %s: %w", remote.InvoiceID, err)
	}

	invoice, err := s.invoices.Reconcile(ctx, full)
	if err != nil {
		return nil, err
	}

	if in.AssignedAgentID != "" {
		if _, err := s.pool.Exec(ctx,
			"UPDATE invoices SET assigned_agent_id = $1, updated_at = NOW() WHERE id = $2",
			in.AssignedAgentID, invoice.ID,
		); err != nil {
			return nil, fmt.Errorf("assign agent to invoice %d: %w", invoice.ID, err)
		}
		invoice.AssignedAgentID = &in.AssignedAgentID
	}

	s.log.Info().
		Int("order_id", in.OrderID).
		Int("invoice_id", invoice.ID).
		Str("external_id", remote.InvoiceID).
		Msg("order converted to invoice")

	if s.notifier != nil && in.AssignedAgentID != "" {
		s.notifier.InvoiceCreated(ctx, in.AssignedAgentID, invoice)
	}
	return invoice, nil
}

func (s *convertService) GetOrder(ctx context.Context, orderID int) (*Order, error) {
	var o Order
	err := s.pool.QueryRow(ctx, `
		SELECT id, external_id, order_number, customer_external_id, customer_name, total, created_at
		FROM orders WHERE id = $1
	`, orderID).Scan(&o.ID, &o.ExternalID, &o.OrderNumber, &o.CustomerExternalID, &o.CustomerName, &o.Total, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "order", Ref: fmt.Sprint(orderID)}
		}
		return nil, fmt.Errorf("fetch order %d: %w", orderID, err)
	}
	return &o, nil
}
