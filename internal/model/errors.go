package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ValidationError reports malformed input: a bad constructor argument, an
// invalid filter, or an import that conflicts with stored content.
type ValidationError struct {
	// Field names the offending attribute, if any.
	Field string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// AttributeNotFoundError is returned when reading a field that is not set.
type AttributeNotFoundError struct {
	Name string
}

func (e *AttributeNotFoundError) Error() string {
	return fmt.Sprintf("attribute %q not found", e.Name)
}

// Entity kinds used in NotFoundError.
const (
	KindEvent     = "event"
	KindCatalogue = "catalogue"
)

// NotFoundError reports a reference to an entity the store does not hold.
type NotFoundError struct {
	Kind string
	ID   uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// CommitError wraps the cause of a failed session commit. Nothing from the
// batch was applied.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string {
	return "commit failed: " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *CommitError) Unwrap() error {
	return e.Err
}

// Session and backend sentinels.
var (
	ErrSessionActive = errors.New("a session is already active")
	ErrSessionClosed = errors.New("session is closed")
	ErrNoBackend     = errors.New("no default backend configured")
)

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
