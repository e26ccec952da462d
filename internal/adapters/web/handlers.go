package web

import (
	"net/http"
	"time"

	"github.com/ablair264/splitfin/internal/app"
	"github.com/ablair264/splitfin/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc            app.ApplicationService
	router         chi.Router
	webhookSecret  string
	processTimeout time.Duration
	log            zerolog.Logger
}

// NewHandler creates and wires the chi router with all routes. An empty
// webhookSecret puts the webhook endpoint in open/insecure mode, which is
// logged loudly rather than silently accepted.
func NewHandler(svc app.ApplicationService, allowedOrigins, webhookSecret string) http.Handler {
	h := &Handler{
		svc:            svc,
		webhookSecret:  webhookSecret,
		processTimeout: defaultProcessTimeout,
		log:            logger.WithComponent("web"),
	}

	if webhookSecret == "" {
		h.log.Warn().Msg("WEBHOOK_SECRET not set: webhook endpoint is running in open mode and accepts unauthenticated events")
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))
	r.Use(RequestBodyLimit(1 << 20)) // 1 MB

	r.Get("/api/health", h.health)

	// Inbound change notifications from the remote billing system.
	r.Post("/webhooks/invoice", h.invoiceWebhook)

	r.Get("/api/invoices/{id}", h.getInvoice)
	r.Post("/api/invoices/{id}/payments", h.recordPayment)
	r.Post("/api/orders/{id}/invoice", h.convertOrder)

	r.Get("/api/settings/reminders", h.getReminderToggle)
	r.Put("/api/settings/reminders", h.setReminderToggle)
	r.Get("/api/customers/{id}/reminder-settings", h.getCustomerReminderSettings)
	r.Put("/api/customers/{id}/reminder-settings", h.putCustomerReminderSettings)

	h.router = r
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}
