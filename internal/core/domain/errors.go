package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrRateLimited        = errors.New("too many attempts")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ErrInvalidCredentials is returned for both an unknown username and a wrong
// password so callers cannot tell the two apart.
var ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)

// ErrInvalidSession covers missing, malformed, tampered and expired tokens.
var ErrInvalidSession = fmt.Errorf("%w: invalid session", ErrUnauthorized)

// ErrRaceNotFound is returned when a race is missing or no longer open for signup.
var ErrRaceNotFound = fmt.Errorf("race %w", ErrNotFound)

// ErrPlayerNotFound is returned when no player row matches the lookup.
var ErrPlayerNotFound = fmt.Errorf("player %w", ErrNotFound)

// ValidationError reports a malformed or incomplete input. The message is safe
// to show to clients.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// RateLimitedError carries how long the caller should wait before retrying.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many attempts, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}
