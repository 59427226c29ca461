package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsCode_ThroughWrapping(t *testing.T) {
	err := NewLockTimeout("ledger:day")
	wrapped := fmt.Errorf("apply sale: %w", err)

	if !IsCode(wrapped, CodeLockTimeout) {
		t.Error("IsCode must see through fmt.Errorf wrapping")
	}
	if IsCode(wrapped, CodeNotFound) {
		t.Error("IsCode matched the wrong code")
	}
	if IsCode(errors.New("plain"), CodeLockTimeout) {
		t.Error("IsCode matched a non-AppError")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"lock timeout", NewLockTimeout("product row"), true},
		{"conflict", NewConflict("version mismatch"), true},
		{"validation", NewValidation("bad input"), false},
		{"invariant", NewInvariantViolation("arithmetic broken"), false},
		{"wrapped lock timeout", fmt.Errorf("tx: %w", NewLockTimeout("row")), true},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable mismatch\nwant: %v\ngot:  %v", tt.want, got)
			}
		})
	}
}

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidation("bad"), http.StatusBadRequest},
		{"not found", NewNotFound("product", "x"), http.StatusNotFound},
		{"business rule", NewBusinessRule(CodeBusinessRule, "nope"), http.StatusUnprocessableEntity},
		{"duplicate", NewDuplicateReconciliation("2026-08-31"), http.StatusConflict},
		{"invariant", NewInvariantViolation("broken"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("ctx: %w", NewForbidden("no")), http.StatusForbidden},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetHTTPStatus(tt.err); got != tt.want {
				t.Errorf("status mismatch\nwant: %d\ngot:  %d", tt.want, got)
			}
		})
	}
}

func TestWithDetailAndCause(t *testing.T) {
	cause := errors.New("pq: deadlock detected")
	err := NewInternal(cause).WithDetail("operation", "apply sale")

	if !errors.Is(err, cause) {
		t.Error("Unwrap must expose the cause to errors.Is")
	}
	if err.Details["operation"] != "apply sale" {
		t.Errorf("detail not recorded: %v", err.Details)
	}
	if err.Error() == cause.Error() {
		t.Error("Error() must include the code and message, not just the cause")
	}
}

func TestNewInsufficientStock_Shortfall(t *testing.T) {
	err := NewInsufficientStock("p-1", 12, 11)

	if err.Details["shortfall"] != int64(1) {
		t.Errorf("shortfall mismatch: %v", err.Details["shortfall"])
	}
	if err.Retryable {
		t.Error("insufficient stock is a final answer, not a transient failure")
	}
}
