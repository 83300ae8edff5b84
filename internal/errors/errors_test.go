package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type wrappedGatewayError struct{ cause error }

func (e *wrappedGatewayError) Error() string   { return "gateway: " + e.cause.Error() }
func (e *wrappedGatewayError) Unwrap() []error { return []error{ErrGateway, e.cause} }

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantTag  string
	}{
		{"payment not found", fmt.Errorf("lookup: %w", ErrPaymentNotFound), http.StatusNotFound, "PAYMENT_NOT_FOUND"},
		{"user not found", ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
		{"out of range", &ValidationError{Field: "amount_minor", Reason: "too big", Err: ErrAmountOutOfRange}, http.StatusBadRequest, "AMOUNT_OUT_OF_RANGE"},
		{"non-positive", &ValidationError{Field: "amount_minor", Reason: "must be positive", Err: ErrInvalidAmount}, http.StatusBadRequest, "INVALID_AMOUNT"},
		{"plain validation", &ValidationError{Field: "description", Reason: "too long"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not configured", ErrNotConfigured, http.StatusServiceUnavailable, "GATEWAY_NOT_CONFIGURED"},
		{"gateway", &wrappedGatewayError{cause: errors.New("timeout")}, http.StatusBadGateway, "GATEWAY_ERROR"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.wantCode, got.StatusCode)
			assert.Equal(t, tt.wantTag, got.ToErrorResponse().Code)
		})
	}
}

func TestMapErrorToHTTP_HidesGatewayDetails(t *testing.T) {
	got := MapErrorToHTTP(&wrappedGatewayError{cause: errors.New("api key rejected")})
	assert.NotContains(t, got.Message, "api key")
}
