package model

import (
	"errors"
	"fmt"
)

// ErrorCoder is implemented by errors that carry a machine-readable code.
type ErrorCoder interface {
	ErrorCode() string
}

// ValidationError reports malformed input. It is returned before any
// pipeline phase starts.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrorCode implements ErrorCoder.
func (e *ValidationError) ErrorCode() string { return ErrCodeValidation }

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the machine-readable code carried by err, or
// ErrCodeInternalError when nothing in the chain classifies it.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var coder ErrorCoder
	if errors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ErrCodeInternalError
}

// publicMessager is implemented by classified errors whose Error() text
// includes wrapping detail that should not cross the API boundary.
type publicMessager interface {
	PublicMessage() string
}

// MessageOf returns the human-readable message for err that is safe to
// show to callers. Unclassified errors collapse to a generic message.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var pm publicMessager
	if errors.As(err, &pm) {
		return pm.PublicMessage()
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	if CodeOf(err) == ErrCodeInternalError {
		return "internal error"
	}
	return err.Error()
}

// FailureKind classifies a failure of an upstream collaborator.
type FailureKind string

const (
	// FailureAuth is bad or missing credentials. Not retryable.
	FailureAuth FailureKind = "AUTH"
	// FailureRateLimit means the provider is throttling. Callers must not
	// retry automatically.
	FailureRateLimit FailureKind = "RATE_LIMIT"
	// FailureNetwork is a transient transport failure. Callers may retry.
	FailureNetwork FailureKind = "NETWORK"
	// FailureAPI is any other remote error.
	FailureAPI FailureKind = "API"
)

// Code returns the API error code for k.
func (k FailureKind) Code() string {
	switch k {
	case FailureAuth:
		return ErrCodeAuth
	case FailureRateLimit:
		return ErrCodeRateLimit
	case FailureNetwork:
		return ErrCodeNetwork
	default:
		return ErrCodeAPI
	}
}

// Retryable reports whether a caller may retry after a failure of kind k.
func (k FailureKind) Retryable() bool {
	return k == FailureNetwork
}

// KindForHTTPStatus classifies a non-2xx HTTP status. Gateway-class 5xx
// responses and 529 (provider overloaded) are treated as transient.
func KindForHTTPStatus(status int) FailureKind {
	switch {
	case status == 401 || status == 403:
		return FailureAuth
	case status == 429:
		return FailureRateLimit
	case status == 502 || status == 503 || status == 504 || status == 529:
		return FailureNetwork
	default:
		return FailureAPI
	}
}
