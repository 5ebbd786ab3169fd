package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured application error with HTTP status code.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
	Err     error  `json:"-"`
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

// Common error constructors.

func ErrNotFound(msg string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: msg}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: http.StatusUnauthorized, Message: msg}
}

func ErrBadRequest(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: http.StatusUnprocessableEntity, Message: msg}
}

func ErrInternal(msg string, err error) *AppError {
	return &AppError{Code: http.StatusInternalServerError, Message: msg, Err: err}
}

// ErrInvalidSignature rejects a webhook payload that failed verification.
// No state may be mutated before this is returned.
func ErrInvalidSignature(err error) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: "invalid signature", Err: err}
}

// ErrQuotaExceeded signals that the account's document quota or credit
// balance is exhausted.
func ErrQuotaExceeded(msg string) *AppError {
	return &AppError{Code: http.StatusPaymentRequired, Message: msg}
}

// ErrNotConfigured signals a missing external credential. Distinguished
// from transient failures so callers can fail fast instead of retrying.
func ErrNotConfigured(what string) *AppError {
	return &AppError{Code: http.StatusInternalServerError, Message: what + " is not configured"}
}

// ErrUnavailable signals a transient store connectivity failure. Safe to
// retry.
func ErrUnavailable(msg string, err error) *AppError {
	return &AppError{Code: http.StatusServiceUnavailable, Message: msg, Err: err}
}

// AsAppError attempts to extract an AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
