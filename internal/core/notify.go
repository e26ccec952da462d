package core

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Email is an outbound message handed to the transport.
type Email struct {
	To      string
	CC      string
	Subject string
	Body    string
}

// SendResult reports the transport outcome for one message.
type SendResult struct {
	Success   bool
	MessageID string
	Error     string
}

// EmailTransport delivers email. The implementation lives outside this module;
// the reminder scheduler injects one.
type EmailTransport interface {
	Send(ctx context.Context, e Email) (SendResult, error)
}

// Notifier is the best-effort side channel: internal notifications and reminder
// audit rows. Failures here are logged and swallowed, never propagated into the
// operation that triggered them.
type Notifier struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func NewNotifier(pool *pgxpool.Pool, log zerolog.Logger) *Notifier {
	return &Notifier{pool: pool, log: log.With().Str("component", "notifier").Logger()}
}

// Insert persists one internal notification for an agent.
func (n *Notifier) Insert(ctx context.Context, agentID, notifType, title, body string, data map[string]any) error {
	var payload []byte
	if data != nil {
		var err error
		if payload, err = json.Marshal(data); err != nil {
			return fmt.Errorf("encode notification data: %w", err)
		}
	}
	_, err := n.pool.Exec(ctx, `
		INSERT INTO notifications (id, agent_id, type, title, body, data)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.NewString(), agentID, notifType, title, body, payload)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// PaymentRecorded notifies the recording agent about a freshly applied payment.
func (n *Notifier) PaymentRecorded(ctx context.Context, agentID string, inv *Invoice, p *Payment) {
	title := fmt.Sprintf("Payment recorded on invoice %s", inv.InvoiceNumber)
	body := fmt.Sprintf("%s applied to %s. Remaining balance %s.",
		p.Amount.StringFixed(2), inv.CustomerName, inv.Balance.StringFixed(2))
	data := map[string]any{"invoice_id": inv.ID, "payment_id": p.ID}
	if err := n.Insert(ctx, agentID, "payment_recorded", title, body, data); err != nil {
		n.log.Warn().Err(err).Int("invoice_id", inv.ID).Msg("payment notification failed")
	}
}

// InvoiceCreated notifies the assigned agent that an order was converted.
func (n *Notifier) InvoiceCreated(ctx context.Context, agentID string, inv *Invoice) {
	title := fmt.Sprintf("Invoice %s created", inv.InvoiceNumber)
	body := fmt.Sprintf("Invoice for %s created from order, total %s.",
		inv.CustomerName, inv.Total.StringFixed(2))
	data := map[string]any{"invoice_id": inv.ID}
	if err := n.Insert(ctx, agentID, "invoice_created", title, body, data); err != nil {
		n.log.Warn().Err(err).Int("invoice_id", inv.ID).Msg("invoice notification failed")
	}
}

// RecordReminder appends one reminder audit row. Rows are append-only.
func (n *Notifier) RecordReminder(ctx context.Context, e ReminderLogEntry) error {
	_, err := n.pool.Exec(ctx, `
		INSERT INTO reminder_logs (invoice_id, recipient, cc, subject, outcome, error_text, external_message_id, sent_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.InvoiceID, e.Recipient, e.CC, e.Subject, e.Outcome, e.ErrorText, e.ExternalMessageID, e.SentBy)
	if err != nil {
		return fmt.Errorf("insert reminder log: %w", err)
	}
	return nil
}
