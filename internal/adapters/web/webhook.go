package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ablair264/splitfin/internal/app"
)

// webhookPayload is the loosely-typed inbound notification. The remote system
// sends summaries: only the event type and invoice id are trusted, everything
// else comes from a follow-up fetch of the canonical record.
type webhookPayload struct {
	Event     string `json:"event"`
	EventType string `json:"event_type"`
	InvoiceID string `json:"invoice_id"`
	Deleted   bool   `json:"deleted"`
	Data      struct {
		InvoiceID string `json:"invoice_id"`
		Deleted   bool   `json:"deleted"`
	} `json:"data"`
}

func (p webhookPayload) eventType() string {
	if p.Event != "" {
		return p.Event
	}
	return p.EventType
}

func (p webhookPayload) externalID() string {
	if p.InvoiceID != "" {
		return p.InvoiceID
	}
	return p.Data.InvoiceID
}

// invoiceWebhook handles POST /webhooks/invoice. The response acknowledges
// receipt before any reconciliation work: processing runs detached, its
// failures are logged and never surfaced to the sender.
func (h *Handler) invoiceWebhook(w http.ResponseWriter, r *http.Request) {
	if h.webhookSecret != "" {
		got := r.Header.Get("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
			writeError(w, r, "invalid webhook secret", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
	}

	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]bool{"success": true, "received": true})

	ev := app.InvoiceEvent{
		EventType:  payload.eventType(),
		ExternalID: payload.externalID(),
		Deleted:    payload.Deleted || payload.Data.Deleted,
	}

	// Detached from the request: the sender's connection and deadline are gone
	// once we ack. A crash in this window drops the event; there is no durable
	// retry queue.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.processTimeout)
		defer cancel()
		if err := h.svc.HandleInvoiceEvent(ctx, ev); err != nil {
			h.log.Error().Err(err).
				Str("event_type", ev.EventType).
				Str("external_id", ev.ExternalID).
				Msg("webhook processing failed")
		}
	}()
}

const defaultProcessTimeout = 2 * time.Minute
