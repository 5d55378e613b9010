package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"not found", &NotFoundError{Resource: "Category"}, ErrNotFound},
		{"conflict", &ConflictError{Resource: "Category"}, ErrConflict},
		{"validation", &ValidationError{Fields: []FieldError{{Message: "amount must be positive"}}}, ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.sentinel)
			}
			wrapped := fmt.Errorf("storing: %w", tt.err)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("wrapped %v does not match %v", tt.err, tt.sentinel)
			}
		})
	}
}

func TestConflictErrorMessage(t *testing.T) {
	if got := (&ConflictError{Resource: "Category"}).Error(); got != "Category already exists" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&ConflictError{}).Error(); got != "already exists" {
		t.Errorf("Error() without resource = %q", got)
	}
}
