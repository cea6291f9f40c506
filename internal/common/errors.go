// Package common holds the error taxonomy shared by the client packages.
package common

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the remote API has no record for an ID.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the remote API rejects the bearer token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation marks input rejected on the client before any request is made.
	ErrValidation = errors.New("validation failed")

	// ErrMalformed marks an API response whose fields were missing or of the wrong type.
	ErrMalformed = errors.New("malformed data")
)

// ValidationError describes a single rejected input field.
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

// Is lets callers match any ValidationError with errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// UserError carries a message meant to be shown as-is.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError wraps err with a user-facing message.
func NewUserError(userMessage string, err error) error {
	return &UserError{UserMessage: userMessage, Err: err}
}

// Message turns err into a sentence fit for display. fallback is used when
// nothing more specific is known about the failure.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return "Receipt not found"
	case errors.Is(err, ErrUnauthorized):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The request was cancelled"
	}

	var displayErr interface{ DisplayMessage() string }
	if errors.As(err, &displayErr) {
		if msg := displayErr.DisplayMessage(); msg != "" {
			return msg
		}
	}

	if fallback != "" {
		return fallback
	}
	return err.Error()
}
