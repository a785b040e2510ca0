package assistcard

import (
	"fmt"
	"net/http"
)

// APIError is a provider error translated into local terms. It keeps the
// provider's trace id, machine code and message, plus an HTTP-style status
// class chosen by the fixed mapping table below.
type APIError struct {
	TraceID        string
	ProviderCode   string
	Message        string
	ProviderStatus int
	Status         int
}

func (e *APIError) Error() string {
	if e.ProviderStatus == 0 {
		return fmt.Sprintf("assistcard: network error: %s", e.Message)
	}
	return fmt.Sprintf("assistcard: provider %d (%s): %s", e.ProviderStatus, e.ProviderCode, e.Message)
}

// IsNetwork reports whether no response was received at all.
func (e *APIError) IsNetwork() bool {
	return e.ProviderStatus == 0
}

// AuthenticationError marks a rejected or unreachable identity provider.
// This is an integration fault, surfaced as a 5xx-class error.
type AuthenticationError struct {
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("assistcard auth: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("assistcard auth: %s", e.Message)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// errorEnvelope is the provider's error payload.
type errorEnvelope struct {
	TraceID   string `json:"traceId"`
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

// mapProviderStatus translates a provider HTTP status into the local status
// class. Credential/permission failures at the provider are our fault, not
// the caller's, so 401/403 map to 502.
func mapProviderStatus(providerStatus int) int {
	switch {
	case providerStatus == http.StatusBadRequest:
		return http.StatusBadRequest
	case providerStatus == http.StatusUnauthorized, providerStatus == http.StatusForbidden:
		return http.StatusBadGateway
	case providerStatus == http.StatusNotFound:
		return http.StatusBadGateway
	case providerStatus == http.StatusConflict:
		return http.StatusConflict
	case providerStatus == http.StatusUnprocessableEntity:
		return http.StatusBadRequest
	case providerStatus == http.StatusTooManyRequests:
		return http.StatusServiceUnavailable
	case providerStatus >= 500:
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}

func newProviderError(providerStatus int, env errorEnvelope) *APIError {
	msg := env.Message
	if msg == "" {
		msg = http.StatusText(providerStatus)
	}
	return &APIError{
		TraceID:        env.TraceID,
		ProviderCode:   env.ErrorCode,
		Message:        msg,
		ProviderStatus: providerStatus,
		Status:         mapProviderStatus(providerStatus),
	}
}

func newNetworkError(err error) *APIError {
	return &APIError{
		Message: err.Error(),
		Status:  http.StatusServiceUnavailable,
	}
}
