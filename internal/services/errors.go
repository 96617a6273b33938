// ===============================
// FILE: internal/services/errors.go
// ===============================

package services

import (
	"errors"
	"fmt"
)

// ===============================
// ERROR TYPES
// ===============================

// Error type identifiers for the comment-creation pipeline.
const (
	TypeValidationError = "VALIDATION_ERROR"
	TypeCapabilityError = "CAPABILITY_ERROR"
	TypeUploadError     = "UPLOAD_ERROR"
	TypeSubmissionError = "SUBMISSION_ERROR"
)

// Error is a structured pipeline error. Response carries the raw provider
// payload as received, so callers can inspect provider-specific detail
// without this package re-wrapping it.
type Error struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Response []byte `json:"-"`
	Cause    error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ===============================
// ERROR CONSTRUCTORS
// ===============================

// NewValidationError reports malformed caller input. Validation failures
// never cause network activity.
func NewValidationError(message string, cause error) *Error {
	return &Error{
		Type:    TypeValidationError,
		Message: message,
		Cause:   cause,
	}
}

// NewCapabilityError reports an attachment that is not a readable byte
// source. Raised before any upload request is issued.
func NewCapabilityError(message string) *Error {
	return &Error{
		Type:    TypeCapabilityError,
		Message: message,
	}
}

// NewUploadError reports an upload whose response lacks a usable media
// identifier. The raw response rides along untouched.
func NewUploadError(message string, response []byte) *Error {
	return &Error{
		Type:     TypeUploadError,
		Message:  message,
		Response: response,
	}
}

// NewSubmissionError reports a mutation response carrying a top-level
// error collection or missing the expected result shape.
func NewSubmissionError(message string, response []byte, cause error) *Error {
	return &Error{
		Type:     TypeSubmissionError,
		Message:  message,
		Response: response,
		Cause:    cause,
	}
}

// ===============================
// ERROR UTILITIES
// ===============================

// GetError extracts an *Error from err, unwrapping as needed.
func GetError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// IsErrorType reports whether err is a pipeline error of the given type.
func IsErrorType(err error, errorType string) bool {
	if e := GetError(err); e != nil {
		return e.Type == errorType
	}
	return false
}

// IsValidationError reports whether err is a validation error.
func IsValidationError(err error) bool {
	return IsErrorType(err, TypeValidationError)
}

// IsCapabilityError reports whether err is a capability error.
func IsCapabilityError(err error) bool {
	return IsErrorType(err, TypeCapabilityError)
}

// IsUploadError reports whether err is an upload error.
func IsUploadError(err error) bool {
	return IsErrorType(err, TypeUploadError)
}

// IsSubmissionError reports whether err is a submission error.
func IsSubmissionError(err error) bool {
	return IsErrorType(err, TypeSubmissionError)
}
