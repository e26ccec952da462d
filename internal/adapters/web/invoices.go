package web

import (
	"net/http"
	"strconv"

	"github.com/ablair264/splitfin/internal/app"
	"github.com/ablair264/splitfin/internal/core"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

func idParam(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	return id, err == nil && id > 0
}

// getInvoice handles GET /api/invoices/{id}.
func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, r, "invalid invoice id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.GetInvoice(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Invoice)
}

// recordPayment handles POST /api/invoices/{id}/payments.
func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, r, "invalid invoice id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	var body struct {
		Amount      decimal.Decimal `json:"amount"`
		Date        string          `json:"date"`
		Mode        string          `json:"mode"`
		Reference   string          `json:"reference"`
		Description string          `json:"description"`
		RecordedBy  string          `json:"recorded_by"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.svc.RecordPayment(r.Context(), app.RecordPaymentRequest{
		InvoiceID:   id,
		Amount:      body.Amount,
		Date:        body.Date,
		Mode:        body.Mode,
		Reference:   body.Reference,
		Description: body.Description,
		RecordedBy:  body.RecordedBy,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeBody(w, map[string]any{"payment": result.Payment, "invoice": result.Invoice})
}

// convertOrder handles POST /api/orders/{id}/invoice.
func (h *Handler) convertOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, r, "invalid order id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	var body struct {
		AssignedAgentID string `json:"assigned_agent_id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.svc.ConvertOrder(r.Context(), app.ConvertOrderRequest{
		OrderID:         id,
		AssignedAgentID: body.AssignedAgentID,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeBody(w, result.Invoice)
}

// getReminderToggle handles GET /api/settings/reminders.
func (h *Handler) getReminderToggle(w http.ResponseWriter, r *http.Request) {
	enabled, err := h.svc.RemindersEnabled(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]bool{"enabled": enabled})
}

// setReminderToggle handles PUT /api/settings/reminders.
func (h *Handler) setReminderToggle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := h.svc.SetRemindersEnabled(r.Context(), body.Enabled); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]bool{"enabled": body.Enabled})
}

// getCustomerReminderSettings handles GET /api/customers/{id}/reminder-settings.
func (h *Handler) getCustomerReminderSettings(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")
	if customerID == "" {
		writeError(w, r, "invalid customer id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	settings, err := h.svc.GetCustomerReminderSettings(r.Context(), customerID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, settings)
}

// putCustomerReminderSettings handles PUT /api/customers/{id}/reminder-settings.
func (h *Handler) putCustomerReminderSettings(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")
	if customerID == "" {
		writeError(w, r, "invalid customer id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	var body core.CustomerReminderSettings
	if !decodeJSON(w, r, &body) {
		return
	}
	body.CustomerExternalID = customerID

	settings, err := h.svc.UpsertCustomerReminderSettings(r.Context(), body)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, settings)
}
