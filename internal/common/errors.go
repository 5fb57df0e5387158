// Package common defines shared constants and sentinel errors used across
// the server layers of bitcor. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Missing or rejected caller identity.
	ErrorUnauthorized = errors.New("unauthorized")

	// Identity resolution.
	ErrInvalidIdentity     = errors.New("invalid identity")
	ErrIdentityUnavailable = errors.New("identity store unavailable")

	// Secret vault. ErrVaultConflict never leaves the vault package.
	ErrVaultUnavailable = errors.New("vault unavailable")
	ErrVaultConflict    = errors.New("vault conflict")

	// Relational store.
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrConstraintViolation = errors.New("constraint violation")

	// Validation errors.
	ErrInvalidStrategySpec = errors.New("invalid strategy spec")
	ErrInvalidPayload      = errors.New("invalid payload")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
