// Package apperr defines the sentinel errors shared across repository,
// service, and transport layers. Callers should use errors.Is to match
// these values; the HTTP layer maps them to response statuses.
package apperr

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")

	// Request validation errors.
	ErrValidation       = errors.New("invalid input")
	ErrPasswordMismatch = errors.New("passwords do not match")

	// Authentication errors.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")

	// Authorization errors.
	ErrForbidden = errors.New("forbidden")

	// Token lifecycle errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Account state errors.
	ErrAccountInactive  = errors.New("account is deactivated")
	ErrNotVerified      = errors.New("account is not verified")
	ErrAlreadyActivated = errors.New("account is already activated")
	ErrAlreadyActive    = errors.New("account is already active")

	// Collaborator errors.
	ErrMailDelivery = errors.New("could not send email")
)
