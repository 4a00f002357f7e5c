// Package common defines shared constants and sentinel errors used across
// the mediax client layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Store-level errors.
	ErrorNotFound = errors.New("not found")

	// Session errors.
	ErrorUnauthorized = errors.New("unauthorized")
	ErrNoCredential   = errors.New("no credential")

	// Token inspection errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Validation errors.
	ErrorValidation = errors.New("validation error")
)
