// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

// Sentinel errors. The typed errors below unwrap to these so callers can
// use errors.Is without caring about the details.
var (
	ErrValidation  = errors.New("validation failed")
	ErrRemoteAPI   = errors.New("remote API error")
	ErrNotFound    = errors.New("not found")
	ErrCorruptData = errors.New("corrupt data")
)

// ValidationError reports bad or missing user input. It is raised before
// any network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// RemoteAPIError reports a non-recoverable failure from a remote API.
// StatusCode is 0 when no HTTP response was received (network error or
// timeout); Cause then holds the transport error.
type RemoteAPIError struct {
	Source     string
	StatusCode int
	Body       string
	Cause      error
}

func (e *RemoteAPIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s API request failed: %v", e.Source, e.Cause)
	}
	return fmt.Sprintf("%s API returned HTTP %d: %s", e.Source, e.StatusCode, e.Body)
}

// Unwrap exposes both the sentinel and the transport cause.
func (e *RemoteAPIError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrRemoteAPI, e.Cause}
	}
	return []error{ErrRemoteAPI}
}

// NotFoundError reports a missing snapshot file or directory.
type NotFoundError struct {
	Entity string
	Path   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Path)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// CorruptDataError reports snapshot content that does not parse to the
// expected shape.
type CorruptDataError struct {
	Path   string
	Reason string
	Cause  error
}

func (e *CorruptDataError) Error() string {
	msg := fmt.Sprintf("corrupt snapshot %s: %s", e.Path, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *CorruptDataError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrCorruptData, e.Cause}
	}
	return []error{ErrCorruptData}
}
