package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCategory classifies an AppError for status-code mapping and metrics.
type ErrorCategory string

const (
	CategoryValidation     ErrorCategory = "validation"
	CategoryAuthentication ErrorCategory = "authentication"
	CategoryAuthorization  ErrorCategory = "authorization"
	CategoryNotFound       ErrorCategory = "not_found"
	CategoryDatabase       ErrorCategory = "database"
	CategoryExternalAPI    ErrorCategory = "external_api"
	CategoryBusinessLogic  ErrorCategory = "business_logic"
	CategoryInternal       ErrorCategory = "internal"
	CategoryRateLimit      ErrorCategory = "rate_limit"
)

// statusFor maps each category to a fixed HTTP status code.
var statusFor = map[ErrorCategory]int{
	CategoryValidation:     http.StatusUnprocessableEntity,
	CategoryAuthentication: http.StatusUnauthorized,
	CategoryAuthorization:  http.StatusForbidden,
	CategoryNotFound:       http.StatusNotFound,
	CategoryDatabase:       http.StatusInternalServerError,
	CategoryExternalAPI:    http.StatusBadGateway,
	CategoryBusinessLogic:  http.StatusBadRequest,
	CategoryInternal:       http.StatusInternalServerError,
	CategoryRateLimit:      http.StatusTooManyRequests,
}

// AppError is a structured application error with a category and HTTP status.
// Message is safe to show to clients; Err carries the internal cause and is
// only exposed in development-mode responses.
type AppError struct {
	Category ErrorCategory `json:"category"`
	Code     int           `json:"code"`
	Message  string        `json:"error"`
	Err      error         `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(cat ErrorCategory, msg string, err error) *AppError {
	return &AppError{Category: cat, Code: statusFor[cat], Message: msg, Err: err}
}

// Common error constructors.

func ErrValidation(msg string) *AppError {
	return newAppError(CategoryValidation, msg, nil)
}

func ErrUnauthorized(msg string) *AppError {
	return newAppError(CategoryAuthentication, msg, nil)
}

func ErrForbidden(msg string) *AppError {
	return newAppError(CategoryAuthorization, msg, nil)
}

func ErrNotFound(msg string) *AppError {
	return newAppError(CategoryNotFound, msg, nil)
}

func ErrBadRequest(msg string) *AppError {
	return newAppError(CategoryBusinessLogic, msg, nil)
}

func ErrDatabase(msg string, err error) *AppError {
	return newAppError(CategoryDatabase, msg, err)
}

func ErrExternalAPI(msg string, err error) *AppError {
	return newAppError(CategoryExternalAPI, msg, err)
}

func ErrInternal(msg string, err error) *AppError {
	return newAppError(CategoryInternal, msg, err)
}

func ErrRateLimit(msg string) *AppError {
	return newAppError(CategoryRateLimit, msg, nil)
}

// AsAppError attempts to extract an AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
