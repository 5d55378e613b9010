// Package errs defines the error taxonomy shared across storage, services
// and the HTTP layer. Storage adapters signal absence with the ErrNotFound
// sentinel; the HTTP mapper converts the typed errors below into responses.
package errs

import (
	"errors"
	"net/http"
)

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound = errors.New("not_found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
)

// FieldError describes a single validation failure on an input field.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

// Error is the generic base error carrying an HTTP status. Status defaults
// to 500 when left zero.
type Error struct {
	Status  int
	Message string
}

func New(status int, msg string) *Error { return &Error{Status: status, Message: msg} }

func (e *Error) Error() string { return e.Message }

// StatusCode returns the HTTP status for the error, defaulting to 500.
func (e *Error) StatusCode() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

// ValidationError aggregates field-level failures. Always maps to 400.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return e.Fields[0].Message
	}
	return "validation failed"
}

// Is lets errors.Is(err, ErrInvalid) match typed validation errors too.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

// NotFoundError reports a missing resource by its display name. Maps to 404.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return e.Resource + " not found"
}

// Is lets errors.Is(err, ErrNotFound) match typed not-found errors too.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError reports a uniqueness violation by display name. Maps to 409.
type ConflictError struct {
	Resource string
}

func (e *ConflictError) Error() string {
	if e.Resource == "" {
		return "already exists"
	}
	return e.Resource + " already exists"
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// BadRequestError reports a malformed request outside schema validation
// (bad path parameter, unparsable body). Maps to 400.
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string { return e.Message }

// DatabaseError wraps a persistence failure with the logical operation that
// produced it. Maps to 500; the cause is logged, never sent to clients.
type DatabaseError struct {
	Op    string
	Cause error
}

func (e *DatabaseError) Error() string {
	if e.Cause != nil {
		return e.Op + ": " + e.Cause.Error()
	}
	return e.Op
}

func (e *DatabaseError) Unwrap() error { return e.Cause }
