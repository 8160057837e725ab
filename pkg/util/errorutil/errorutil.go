package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared by the core and the transport adapters.
const (
	CodeValidationFailed        = "VALIDATION_FAILED"
	CodeNotFound                = "NOT_FOUND"
	CodeUnauthorized            = "UNAUTHORIZED"
	CodeForbidden               = "FORBIDDEN"
	CodeWrongState              = "WRONG_STATE"
	CodeConflictingActiveTicket = "CONFLICTING_ACTIVE_TICKET"
	CodeEmptyBuffer             = "EMPTY_BUFFER"
	CodeNoActiveBuffer          = "NO_ACTIVE_BUFFER"
	CodeDeliveryFailed          = "DELIVERY_FAILED"
	CodeInvalidFormat           = "INVALID_FORMAT"
	CodeInternal                = "INTERNAL_ERROR"
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
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewUnauthorized is returned when the actor lacks the role an operation needs.
func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusForbidden, nil)
}

// NewUnauthenticated is returned when the caller could not be identified.
func NewUnauthenticated(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewWrongState(message string, details map[string]any) error {
	return NewDomainError(CodeWrongState, message, http.StatusConflict, details)
}

func NewConflictingActiveTicket(message string, details map[string]any) error {
	return NewDomainError(CodeConflictingActiveTicket, message, http.StatusConflict, details)
}

func NewEmptyBuffer() error {
	return NewDomainError(CodeEmptyBuffer, "submission has no content", http.StatusUnprocessableEntity, nil)
}

func NewNoActiveBuffer() error {
	return NewDomainError(CodeNoActiveBuffer, "no submission in progress", http.StatusUnprocessableEntity, nil)
}

func NewInvalidFormat(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidFormat, message, http.StatusBadRequest, details)
}

// NewDeliveryFailed wraps a transport failure for a single recipient.
func NewDeliveryFailed(recipient string, err error) error {
	return &DomainError{
		Code:       CodeDeliveryFailed,
		Message:    "delivery failed",
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"recipient": recipient},
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
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
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
