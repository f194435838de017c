// Package domainerrors carries coded errors across service boundaries.
//
// Services return *Error values so that transports can map a stable Code to a
// status without string matching. Stores should not use this package; they
// return pkg/platform/sentinel errors which services translate.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure that callers are expected to act on.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeInternal           Code = "internal_error"
	CodeTimeout            Code = "timeout"
	CodeRateLimited        Code = "rate_limited"

	// Authorization outcomes. Each must reach the parent with a reason that
	// tells them what to do next.
	CodeMissingConsent          Code = "missing_consent"
	CodeRelationshipNotVerified Code = "relationship_not_verified"

	CodeConcurrencyConflict Code = "concurrency_conflict"

	CodeVerificationExpired        Code = "verification_expired"
	CodeVerificationInvalid        Code = "verification_invalid"
	CodeVerificationDeliveryFailed Code = "verification_delivery_failed"

	CodeRetentionDeletionFailed   Code = "retention_deletion_failed"
	CodeSafetyAnalyzerUnavailable Code = "safety_analyzer_unavailable"
	CodeContentBlocked            Code = "content_blocked"
)

// Error is a coded domain error. Err is optional and preserved for errors.Is/As.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a coded error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error. A nil err still
// produces a coded error so callers never lose the classification.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error is not coded.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether any coded error in the chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is shorthand for HasCode, kept for handler readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// Retryable reports whether the caller may retry the same request after
// reloading state or waiting.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case CodeConcurrencyConflict, CodeVerificationDeliveryFailed, CodeTimeout:
		return true
	default:
		return false
	}
}
