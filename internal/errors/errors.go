package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrPaymentNotFound is returned when no payment record matches a lookup key.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrAmountOutOfRange is returned when a top-up amount is outside configured bounds.
	ErrAmountOutOfRange = errors.New("amount out of range")
	// ErrInvalidAmount is returned when amount is invalid.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNotConfigured is returned when the payment gateway is not configured.
	ErrNotConfigured = errors.New("payment gateway is not configured")
	// ErrAlreadyFinalized is returned when a payment already has a linked ledger transaction.
	ErrAlreadyFinalized = errors.New("payment already finalized")
	// ErrGateway is the sentinel matched by every gateway failure.
	ErrGateway = errors.New("payment gateway error")
)

// ValidationError describes a rejected input value.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
// Gateway failures are reported with a generic retry message.
func MapErrorToHTTP(err error) *HTTPError {
	var validationErr *ValidationError
	switch {
	case errors.Is(err, ErrPaymentNotFound):
		return NewHTTPError(http.StatusNotFound, ErrPaymentNotFound.Error(), "PAYMENT_NOT_FOUND")
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, ErrUserNotFound.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrAmountOutOfRange):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "AMOUNT_OUT_OF_RANGE")
	case errors.Is(err, ErrInvalidAmount):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidAmount.Error(), "INVALID_AMOUNT")
	case errors.As(err, &validationErr):
		return NewHTTPError(http.StatusBadRequest, validationErr.Error(), "VALIDATION_ERROR")
	case errors.Is(err, ErrNotConfigured):
		return NewHTTPError(http.StatusServiceUnavailable, "payments are temporarily unavailable", "GATEWAY_NOT_CONFIGURED")
	case errors.Is(err, ErrGateway):
		return NewHTTPError(http.StatusBadGateway, "failed to create payment, please try again later", "GATEWAY_ERROR")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
