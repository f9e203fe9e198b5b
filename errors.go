package tscat

import "github.com/jeandet/tscat/internal/model"

// Error types. Match them with errors.As.
type (
	ValidationError        = model.ValidationError
	AttributeNotFoundError = model.AttributeNotFoundError
	NotFoundError          = model.NotFoundError
	CommitError            = model.CommitError
)

// Sentinel errors. Match them with errors.Is.
var (
	ErrSessionActive = model.ErrSessionActive
	ErrSessionClosed = model.ErrSessionClosed
	ErrNoBackend     = model.ErrNoBackend
)

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool { return model.IsValidation(err) }

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool { return model.IsNotFound(err) }
