// Package common defines shared constants and sentinel errors used across
// the repository, service and HTTP layers. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorUnauthorized       = errors.New("unauthorized")
	ErrorValidation         = errors.New("validation error")
	ErrorCredentialMismatch = errors.New("credential mismatch")

	// Session / token errors.
	ErrInvalidToken   = errors.New("invalid token")
	ErrSessionExpired = errors.New("session expired")
	ErrTokenExpired   = errors.New("token expired")

	// Upload errors.
	ErrNotAnImageFile  = errors.New("not an image file")
	ErrInvalidFileData = errors.New("invalid file object")
	ErrFileTooLarge    = errors.New("file too large")
)

// ReasonError is a workflow failure carrying a human-readable reason that is
// safe to show to the user, plus the non-secret form fields to echo back.
// It matches its Kind with errors.Is.
type ReasonError struct {
	Kind   error
	Reason string
	Fields map[string]string
}

func (e *ReasonError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Reason)
}

func (e *ReasonError) Unwrap() error {
	return e.Kind
}

// Fail builds a ReasonError of the given kind.
func Fail(kind error, reason string, fields map[string]string) *ReasonError {
	return &ReasonError{Kind: kind, Reason: reason, Fields: fields}
}
