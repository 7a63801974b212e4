package services

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound = errors.New("requested resource not found")

	ErrTeamNotFound  = errors.New("team not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrEventNotFound = errors.New("event not found")
	ErrMediaNotFound = errors.New("media not found")

	ErrValidationFailed     = errors.New("validation failed")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")

	ErrEventHasMedia       = errors.New("cannot delete event with connected media")
	ErrQuotaExceeded       = errors.New("team storage limit exceeded")
	ErrObjectNotFound      = errors.New("uploaded object not found in storage")
	ErrUpstreamUnavailable = errors.New("object storage is unavailable")
	ErrAPIKeyConflict      = errors.New("api key is already in use")
	ErrMediaAlreadyStored  = errors.New("uploaded object is already recorded as media")
)

// ValidationError carries per-field messages and matches ErrValidationFailed
// with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidationFailed.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
