// Package common defines the error taxonomy shared by the SociusFit client
// layers. Callers should use errors.Is to match these values and errors.As to
// reach *ValidationError.
package common

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Local validation of user input, raised before any network call.
	ErrValidation = errors.New("validation error")

	// Transport-level failure (no connectivity, timeout). Retryable.
	ErrNetwork = errors.New("network error")

	// Backend answered 5xx or with a payload that could not be used. A
	// malformed payload also matches ErrServer.
	ErrServer            = errors.New("server error")
	ErrMalformedResponse = fmt.Errorf("%w: malformed response", ErrServer)

	// Auth errors.
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionExpired     = errors.New("session expired")
	ErrNotAuthenticated   = errors.New("not authenticated")

	// Other 4xx answers.
	ErrAlreadyExists   = errors.New("already exists")
	ErrRequestRejected = errors.New("request rejected")

	// Local credential storage could not be read or written.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string
	Message string
}

func (f FieldError) String() string {
	return f.Field + ": " + f.Message
}

// ValidationError is a field-tagged validation failure. It matches
// ErrValidation with errors.Is.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Has reports whether field was rejected.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}
