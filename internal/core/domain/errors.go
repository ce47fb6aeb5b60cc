package domain

import "errors"

var (
	ErrTokenMissing       = errors.New("missing token")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrForbidden          = errors.New("access forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user already exists")
	ErrLeadNotFound    = errors.New("lead not found")
	ErrLeadExists      = errors.New("lead already exists")
	ErrClientNotFound  = errors.New("client not found")
	ErrClientExists    = errors.New("client already exists")
	ErrClientInUse     = errors.New("client is referenced by projects")
	ErrProjectNotFound = errors.New("project not found")

	ErrConversionInProgress = errors.New("conversion already in progress")

	ErrValidation = errors.New("validation failed")
)

// ValidationError carries a human-readable reason and matches ErrValidation.
type ValidationError struct {
	Reason string
}

func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
