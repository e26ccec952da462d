package app

import (
	"context"
	"fmt"

	"github.com/ablair264/splitfin/internal/core"
	"github.com/rs/zerolog"
)

type appService struct {
	invoices core.InvoiceService
	payments core.PaymentService
	convert  core.ConvertService
	settings core.SettingsService
	log      zerolog.Logger
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	invoices core.InvoiceService,
	payments core.PaymentService,
	convert core.ConvertService,
	settings core.SettingsService,
	log zerolog.Logger,
) ApplicationService {
	return &appService{
		invoices: invoices,
		payments: payments,
		convert:  convert,
		settings: settings,
		log:      log.With().Str("component", "app").Logger(),
	}
}

func (s *appService) HandleInvoiceEvent(ctx context.Context, ev InvoiceEvent) error {
	if ev.ExternalID == "" {
		// A logged drop, not an error: summary payloads without a resolvable
		// id cannot be acted on and the sender will not retry.
		s.log.Warn().Str("event_type", ev.EventType).Msg("webhook event missing invoice id, dropped")
		return nil
	}

	switch core.ClassifyEvent(ev.EventType, ev.Deleted) {
	case core.EventIgnore:
		s.log.Info().
			Str("event_type", ev.EventType).
			Str("external_id", ev.ExternalID).
			Msg("unrecognized webhook event type, ignored")
		return nil
	case core.EventVoid:
		rows, err := s.invoices.VoidByExternalID(ctx, ev.ExternalID)
		if err != nil {
			return fmt.Errorf("void invoice %s: %w", ev.ExternalID, err)
		}
		s.log.Info().
			Str("external_id", ev.ExternalID).
			Int64("rows", rows).
			Msg("invoice delete event processed")
		return nil
	default:
		if _, err := s.invoices.SyncFromRemote(ctx, ev.ExternalID); err != nil {
			return fmt.Errorf("sync invoice %s (event %s): %w", ev.ExternalID, ev.EventType, err)
		}
		return nil
	}
}

func (s *appService) GetInvoice(ctx context.Context, invoiceID int) (*InvoiceResult, error) {
	inv, err := s.invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return &InvoiceResult{Invoice: inv}, nil
}

func (s *appService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*PaymentResult, error) {
	payment, invoice, err := s.payments.RecordPayment(ctx, core.RecordPaymentInput{
		InvoiceID:   req.InvoiceID,
		Amount:      req.Amount,
		Date:        req.Date,
		Mode:        req.Mode,
		Reference:   req.Reference,
		Description: req.Description,
		RecordedBy:  req.RecordedBy,
	})
	if err != nil {
		return nil, err
	}
	return &PaymentResult{Payment: payment, Invoice: invoice}, nil
}

func (s *appService) ConvertOrder(ctx context.Context, req ConvertOrderRequest) (*InvoiceResult, error) {
	inv, err := s.convert.ConvertOrder(ctx, core.ConvertOrderInput{
		OrderID:         req.OrderID,
		AssignedAgentID: req.AssignedAgentID,
	})
	if err != nil {
		return nil, err
	}
	return &InvoiceResult{Invoice: inv}, nil
}

func (s *appService) RemindersEnabled(ctx context.Context) (bool, error) {
	return s.settings.RemindersEnabled(ctx)
}

func (s *appService) SetRemindersEnabled(ctx context.Context, enabled bool) error {
	return s.settings.SetRemindersEnabled(ctx, enabled)
}

func (s *appService) GetCustomerReminderSettings(ctx context.Context, customerExternalID string) (*core.CustomerReminderSettings, error) {
	return s.settings.GetCustomerReminderSettings(ctx, customerExternalID)
}

func (s *appService) UpsertCustomerReminderSettings(ctx context.Context, crs core.CustomerReminderSettings) (*core.CustomerReminderSettings, error) {
	return s.settings.UpsertCustomerReminderSettings(ctx, crs)
}
