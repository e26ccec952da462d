package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ablair264/splitfin/internal/billing"
	"github.com/ablair264/splitfin/internal/core"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeBody encodes v after the caller has already written headers and status.
func writeBody(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError maps typed domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *core.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, r, validationErr.Error(), "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	var notFoundErr *core.NotFoundError
	if errors.As(err, &notFoundErr) {
		writeError(w, r, notFoundErr.Error(), "NOT_FOUND", http.StatusNotFound)
		return
	}
	var conflictErr *core.ConflictError
	if errors.As(err, &conflictErr) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(struct {
			errorResponse
			ExistingInvoiceID int `json:"existing_invoice_id"`
		}{
			errorResponse{Error: conflictErr.Error(), Code: "CONFLICT", RequestID: requestIDFromContext(r.Context())},
			conflictErr.ExistingID,
		})
		return
	}
	var remoteErr *billing.RemoteError
	if errors.As(err, &remoteErr) {
		writeError(w, r, remoteErr.Error(), "REMOTE_ERROR", http.StatusBadGateway)
		return
	}
	if errors.Is(err, billing.ErrNotFound) {
		writeError(w, r, err.Error(), "REMOTE_NOT_FOUND", http.StatusBadGateway)
		return
	}
	writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
}

// decodeJSON decodes the request body into v, writing an appropriate error
// response and returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
