package errorutil

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

// NewBadGateway marks upstream faults that are our integration's problem,
// not the caller's (rejected credentials, provider 5xx, malformed provider
// payloads).
func NewBadGateway(message string, details map[string]any) error {
	return NewDomainError("UPSTREAM_ERROR", message, http.StatusBadGateway, details)
}

// NewServiceUnavailable marks network-level failures where no response was
// received at all.
func NewServiceUnavailable(message string, details map[string]any) error {
	return NewDomainError("UPSTREAM_UNAVAILABLE", message, http.StatusServiceUnavailable, details)
}

// IssuedNotPersistedCode identifies the post-charge persistence failure:
// the provider charged the card and issued vouchers, but the local write
// failed. Clients must show "contact support", never a retry affordance.
const IssuedNotPersistedCode = "ISSUED_NOT_PERSISTED"

// NewIssuedNotPersisted constructs the distinguished reconciliation error.
// Details carry the recovery payload (voucher group and codes).
func NewIssuedNotPersisted(details map[string]any, cause error) error {
	return &DomainError{
		Code:       IssuedNotPersistedCode,
		Message:    "payment succeeded but the policy could not be recorded; contact support and do not retry payment",
		HTTPStatus: http.StatusInternalServerError,
		Details:    details,
		Err:        cause,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
