package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error codes returned to callers. The HTTP layer maps them to status codes via AppError.Status.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodePartialFailure   = "PARTIAL_FAILURE"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternal         = "INTERNAL_ERROR"
)

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`

	// Set only for PARTIAL_FAILURE.
	Succeeded int `json:"succeeded,omitempty"`
	Total     int `json:"total,omitempty"`

	// Set only for RATE_LIMITED; sent as the Retry-After header.
	RetryAfter time.Duration `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// AsAppError finds the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err carries an AppError with the given code.
func IsCode(err error, code string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// Standard domain error constructors.

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", entity, id), Status: 404}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: CodeValidation, Message: msg, Status: 400}
}

func ErrStoreUnavailable(op string, cause error) *AppError {
	return &AppError{Code: CodeStoreUnavailable, Message: op + " failed", Status: 503, Cause: cause}
}

func ErrPartialFailure(msg string, succeeded, total int, cause error) *AppError {
	return &AppError{
		Code:      CodePartialFailure,
		Message:   fmt.Sprintf("%s: %d of %d succeeded", msg, succeeded, total),
		Status:    207,
		Cause:     cause,
		Succeeded: succeeded,
		Total:     total,
	}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: msg, Status: 401}
}

func ErrForbidden(msg string) *AppError {
	return &AppError{Code: CodeForbidden, Message: msg, Status: 403}
}

func ErrRateLimited(msg string, retryAfter time.Duration) *AppError {
	return &AppError{Code: CodeRateLimited, Message: msg, Status: 429, RetryAfter: retryAfter}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: CodeInternal, Message: msg, Status: 500, Cause: cause}
}
