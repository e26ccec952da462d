package core

import "fmt"

// ValidationError rejects bad input synchronously, before any mutation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError identifies an unknown invoice or order.
type NotFoundError struct {
	Entity string
	Ref    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Ref)
}

// ConflictError is returned when an order already has a linked invoice.
// ExistingID references the invoice that already exists.
type ConflictError struct {
	Msg        string
	ExistingID int
}

func (e *ConflictError) Error() string { return e.Msg }
