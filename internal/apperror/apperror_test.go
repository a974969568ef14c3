package apperror

import (
	"errors"
	"fmt"
	"testing"
)

// Table-driven: each case checks that errors.Is() identifies the sentinel
// behind a constructor.
func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("advert", "42"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("title", "title is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("user", "alice"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Forbidden wraps ErrForbidden",
			err:       Forbidden("not your advert"),
			target:    ErrForbidden,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("invalid credentials"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("advert", "42"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "Unauthorized does NOT match ErrForbidden",
			err:       Unauthorized("invalid credentials"),
			target:    ErrForbidden,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.wantMatch {
				t.Errorf("errors.Is() = %v, want %v", got, tt.wantMatch)
			}
		})
	}
}

// Wrapping with %w must keep the sentinel reachable through several layers.
func TestErrorsIs_ThroughWrapping(t *testing.T) {
	base := NotFound("advert", "7")
	wrapped := fmt.Errorf("service: getting advert: %w", fmt.Errorf("sqlstore: %w", base))

	if !errors.Is(wrapped, ErrNotFound) {
		t.Fatal("wrapped error lost ErrNotFound")
	}

	var appErr *AppError
	if !errors.As(wrapped, &appErr) {
		t.Fatal("errors.As did not find *AppError")
	}
	if appErr.Message != "advert not found with id 7" {
		t.Errorf("Message = %q", appErr.Message)
	}
}

func TestValidationFailed_Field(t *testing.T) {
	err := ValidationFailed("price", "price must not be negative")
	if err.Field != "price" {
		t.Errorf("Field = %q, want %q", err.Field, "price")
	}
	if err.Error() != "price must not be negative" {
		t.Errorf("Error() = %q", err.Error())
	}
}
