// Package errors provides standardized error handling for the content
// pipeline and subscription flows.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Configuration errors are fatal: abort immediately, never retry.
	ErrCodeMissingCredential ErrorCode = "MISSING_CREDENTIAL"

	// Upstream feed errors.
	ErrCodeRateLimited     ErrorCode = "RATE_LIMITED"
	ErrCodeFeedFetchFailed ErrorCode = "FEED_FETCH_FAILED"

	// Generative service errors.
	ErrCodeGenerationFailed  ErrorCode = "GENERATION_FAILED"
	ErrCodeContentInvalid    ErrorCode = "CONTENT_INVALID"
	ErrCodeGenerationTimeout ErrorCode = "GENERATION_TIMEOUT"

	// Storage errors.
	ErrCodeStoreFailed ErrorCode = "STORE_FAILED"
	ErrCodePickMissing ErrorCode = "PICK_MISSING"

	// Delivery errors are isolated per recipient and never abort a batch.
	ErrCodeDeliveryFailed ErrorCode = "DELIVERY_FAILED"

	// Subscription state conflicts are benign, idempotent outcomes.
	ErrCodeTokenNotFound    ErrorCode = "TOKEN_NOT_FOUND"
	ErrCodeAlreadyConfirmed ErrorCode = "ALREADY_CONFIRMED"
	ErrCodeSignupInvalid    ErrorCode = "SIGNUP_INVALID"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// CodeOf extracts the error code from err, or empty if err is not a
// StandardError.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// NewMissingCredentialError creates a fatal configuration error.
func NewMissingCredentialError(name string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingCredential,
		Message:   "Required credential is missing or empty",
		Details:   fmt.Sprintf("credential: %s", name),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRateLimitedError creates a recoverable upstream rate-limit error.
func NewRateLimitedError(wait time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimited,
		Message:   "Upstream feed rate limit reached",
		Details:   fmt.Sprintf("advised wait: %s", wait),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewFeedFetchError creates a retryable upstream data error.
func NewFeedFetchError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeFeedFetchFailed,
		Message:   "Catalog feed request failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewGenerationFailedError creates a retryable generative-service error.
func NewGenerationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGenerationFailed,
		Message:   "Generative text service error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewGenerationTimeoutError reports a generative request that ran out of
// deadline across all attempts.
func NewGenerationTimeoutError(timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeGenerationTimeout,
		Message:   "Generative text service timed out",
		Details:   fmt.Sprintf("timeout: %s", timeout),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewContentInvalidError creates a non-retryable schema validation error.
// In strict mode this aborts the whole batch for the period.
func NewContentInvalidError(product, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeContentInvalid,
		Message:   fmt.Sprintf("Generated content for %q failed validation", product),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreError creates a retryable storage error.
func NewStoreError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreFailed,
		Message:   "Period store operation failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDeliveryFailedError creates a per-recipient delivery error.
func NewDeliveryFailedError(recipient string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDeliveryFailed,
		Message:   "Email delivery failed",
		Details:   fmt.Sprintf("recipient: %s, error: %s", recipient, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTokenNotFoundError reports an unknown or expired token. This is a benign
// outcome, distinct from the already-confirmed case.
func NewTokenNotFoundError() *StandardError {
	return &StandardError{
		Code:      ErrCodeTokenNotFound,
		Message:   "Token not found",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSignupInvalidError reports a rejected signup request.
func NewSignupInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSignupInvalid,
		Message:   "Signup request invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
