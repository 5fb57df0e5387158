// Package common contains shared constants and sentinel errors used across
// bitcor components.
package common

const (
	// AuthorizationHeaderName carries the bearer token in token identity mode.
	AuthorizationHeaderName = "Authorization"

	// DefaultUserIDHeaderName is the trusted header asserting the external subject
	// in header identity mode.
	DefaultUserIDHeaderName = "X-User-Id"

	// DefaultUserEmailHeaderName optionally carries the user's email next to the subject.
	DefaultUserEmailHeaderName = "X-User-Email"

	// StrategyStatusActive is the only status a freshly created strategy can have.
	StrategyStatusActive = "active"
)
