// Package domain defines the entities persisted by the stores and the
// sentinel errors shared across layers. Callers match them with errors.Is.
package domain

import "errors"

var (
	// Store-level errors.
	ErrUserNotFound    = errors.New("user not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrUserExists      = errors.New("username already taken")

	// Auth errors.
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid username/password")

	// ErrValidation wraps malformed-input failures; match with errors.Is.
	ErrValidation = errors.New("validation error")
)
