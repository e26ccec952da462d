package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ablair264/splitfin/internal/app"
	"github.com/ablair264/splitfin/internal/core"
)

// stubAppService records invoice events on a channel and returns canned errors
// for the other operations.
type stubAppService struct {
	events chan app.InvoiceEvent

	recordPaymentErr error
	paymentResult    *app.PaymentResult
}

func newStubAppService() *stubAppService {
	return &stubAppService{events: make(chan app.InvoiceEvent, 4)}
}

func (s *stubAppService) HandleInvoiceEvent(ctx context.Context, ev app.InvoiceEvent) error {
	s.events <- ev
	return nil
}

func (s *stubAppService) GetInvoice(ctx context.Context, invoiceID int) (*app.InvoiceResult, error) {
	return nil, &core.NotFoundError{Entity: "invoice", Ref: "1"}
}

func (s *stubAppService) RecordPayment(ctx context.Context, req app.RecordPaymentRequest) (*app.PaymentResult, error) {
	if s.recordPaymentErr != nil {
		return nil, s.recordPaymentErr
	}
	return s.paymentResult, nil
}

func (s *stubAppService) ConvertOrder(ctx context.Context, req app.ConvertOrderRequest) (*app.InvoiceResult, error) {
	return nil, &core.ConflictError{Msg: "order already invoiced", ExistingID: 7}
}

func (s *stubAppService) RemindersEnabled(ctx context.Context) (bool, error) { return true, nil }
func (s *stubAppService) SetRemindersEnabled(ctx context.Context, enabled bool) error {
	return nil
}
func (s *stubAppService) GetCustomerReminderSettings(ctx context.Context, customerExternalID string) (*core.CustomerReminderSettings, error) {
	return &core.CustomerReminderSettings{CustomerExternalID: customerExternalID, Enabled: true}, nil
}
func (s *stubAppService) UpsertCustomerReminderSettings(ctx context.Context, in core.CustomerReminderSettings) (*core.CustomerReminderSettings, error) {
	return &in, nil
}

func (s *stubAppService) waitForEvent(t *testing.T) app.InvoiceEvent {
	t.Helper()
	select {
	case ev := <-s.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for invoice event")
		return app.InvoiceEvent{}
	}
}

func postWebhook(t *testing.T, handler http.Handler, secret, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/invoice", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Webhook-Secret", secret)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestInvoiceWebhook_AcksAndDispatches(t *testing.T) {
	svc := newStubAppService()
	handler := NewHandler(svc, "", "s3cret")

	rec := postWebhook(t, handler, "s3cret",
		`{"event_type":"invoice_updated","invoice_id":"ext-1"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 ack, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := rec.Body.String(); !strings.Contains(body, `"success":true`) || !strings.Contains(body, `"received":true`) {
		t.Errorf("unexpected ack body: %s", body)
	}

	ev := svc.waitForEvent(t)
	if ev.EventType != "invoice_updated" || ev.ExternalID != "ext-1" || ev.Deleted {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestInvoiceWebhook_BadSecretRejected(t *testing.T) {
	svc := newStubAppService()
	handler := NewHandler(svc, "", "s3cret")

	rec := postWebhook(t, handler, "wrong",
		`{"event_type":"invoice_updated","invoice_id":"ext-1"}`)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	select {
	case ev := <-svc.events:
		t.Errorf("rejected webhook must not dispatch, got %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestInvoiceWebhook_InvalidJSON(t *testing.T) {
	svc := newStubAppService()
	handler := NewHandler(svc, "", "")

	rec := postWebhook(t, handler, "", `{"event":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestInvoiceWebhook_DeleteMarkerPropagates(t *testing.T) {
	svc := newStubAppService()
	handler := NewHandler(svc, "", "")

	rec := postWebhook(t, handler, "",
		`{"event":"invoice_deleted","data":{"invoice_id":"ext-9","deleted":true}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 ack, got %d", rec.Code)
	}

	ev := svc.waitForEvent(t)
	if ev.EventType != "invoice_deleted" || ev.ExternalID != "ext-9" || !ev.Deleted {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestInvoiceWebhook_MissingIDStillAcked(t *testing.T) {
	svc := newStubAppService()
	handler := NewHandler(svc, "", "")

	// The ack never depends on payload contents; the empty id is dropped
	// downstream.
	rec := postWebhook(t, handler, "", `{"event_type":"invoice_updated"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 ack, got %d", rec.Code)
	}
	ev := svc.waitForEvent(t)
	if ev.ExternalID != "" {
		t.Errorf("expected empty external id, got %q", ev.ExternalID)
	}
}
