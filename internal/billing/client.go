// Package billing is the typed client for the external authoritative billing
// service. It is a pure I/O adapter: every operation is a single attempt with a
// bounded timeout, and callers own the retry policy.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultTimeout = 30 * time.Second

// remote code for "resource does not exist"
const codeNotFound = 2006

// ErrNotFound reports that the remote system has no record for the requested id.
var ErrNotFound = errors.New("billing: resource not found")

// RemoteError is any non-success response from the remote billing service:
// unreachable, rejected request, or a non-zero response code in the envelope.
type RemoteError struct {
	Op         string
	HTTPStatus int
	Code       int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("billing %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("billing %s: remote code %d: %s", e.Op, e.Code, e.Message)
}

func (e *RemoteError) Unwrap() error { return e.Err }

type Client struct {
	baseURL   string
	authToken string
	orgID     string
	http      *http.Client
}

func NewClient(baseURL, authToken, orgID string) *Client {
	return &Client{
		baseURL:   baseURL,
		authToken: authToken,
		orgID:     orgID,
		http:      &http.Client{Timeout: defaultTimeout},
	}
}

// envelope is the remote response wrapper: code 0 means success, anything else
// carries a human-readable message.
type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// FetchInvoice retrieves the full canonical invoice record by external id.
func (c *Client) FetchInvoice(ctx context.Context, externalID string) (*Invoice, error) {
	var out struct {
		envelope
		Invoice *Invoice `json:"invoice"`
	}
	if err := c.do(ctx, "fetch_invoice", http.MethodGet, "/invoices/"+url.PathEscape(externalID), nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Invoice == nil {
		return nil, &RemoteError{Op: "fetch_invoice", Code: out.Code, Message: "response missing invoice"}
	}
	return out.Invoice, nil
}

// CreateFromOrder asks the remote system to create an invoice from an existing
// sales order and returns the full created record.
func (c *Client) CreateFromOrder(ctx context.Context, orderExternalID string) (*Invoice, error) {
	var out struct {
		envelope
		Invoice *Invoice `json:"invoice"`
	}
	query := url.Values{"salesorder_id": {orderExternalID}}
	if err := c.do(ctx, "create_from_order", http.MethodPost, "/invoices/fromsalesorder", query, map[string]any{}, &out); err != nil {
		return nil, err
	}
	if out.Invoice == nil {
		return nil, &RemoteError{Op: "create_from_order", Code: out.Code, Message: "response missing invoice"}
	}
	return out.Invoice, nil
}

// RecordPayment registers a customer payment applied to one invoice. There is
// no dedup key in this call: retried pushes are at-least-once toward the remote.
func (c *Client) RecordPayment(ctx context.Context, customerExternalID, invoiceExternalID string, p PaymentInput) (*PaymentRef, error) {
	body := map[string]any{
		"customer_id":      customerExternalID,
		"amount":           p.Amount,
		"date":             p.Date,
		"payment_mode":     p.Mode,
		"reference_number": p.Reference,
		"invoices": []map[string]any{
			{"invoice_id": invoiceExternalID, "amount_applied": p.Amount},
		},
	}
	var out struct {
		envelope
		Payment *PaymentRef `json:"payment"`
	}
	if err := c.do(ctx, "record_payment", http.MethodPost, "/customerpayments", nil, body, &out); err != nil {
		return nil, err
	}
	if out.Payment == nil {
		return nil, &RemoteError{Op: "record_payment", Code: out.Code, Message: "response missing payment"}
	}
	return out.Payment, nil
}

// do issues one request and decodes the enveloped response into out, which must
// embed envelope. Transport failures and non-success envelopes both surface as
// *RemoteError; missing resources surface as ErrNotFound.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if query == nil {
		query = url.Values{}
	}
	if c.orgID != "" {
		query.Set("organization_id", c.orgID)
	}
	if enc := query.Encode(); enc != "" {
		u += "?" + enc
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &RemoteError{Op: op, HTTPStatus: resp.StatusCode, Err: err}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &RemoteError{Op: op, HTTPStatus: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	env := extractEnvelope(raw)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || env.Code != 0 {
		if env.Code == codeNotFound {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return &RemoteError{Op: op, HTTPStatus: resp.StatusCode, Code: env.Code, Message: env.Message}
	}
	return nil
}

func extractEnvelope(raw []byte) envelope {
	var env envelope
	_ = json.Unmarshal(raw, &env)
	return env
}
