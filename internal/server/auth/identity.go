package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/bitcor/internal/common"
	"github.com/dmitrijs2005/bitcor/internal/server/config"
)

// Identity is an externally asserted user. Subject is opaque to bitcor.
type Identity struct {
	Subject string
	Email   string
}

// IdentityAssertion extracts the caller's identity from a request. Failures
// wrap common.ErrorUnauthorized.
type IdentityAssertion interface {
	Assert(r *http.Request) (Identity, error)
}

// HeaderAssertion trusts headers set by an upstream gateway. A missing
// subject header is unauthorized; a present but blank one is passed on and
// rejected by identity resolution as an invalid identity.
type HeaderAssertion struct {
	UserIDHeader string
	EmailHeader  string
}

func (a HeaderAssertion) Assert(r *http.Request) (Identity, error) {
	values := r.Header.Values(a.UserIDHeader)
	if len(values) == 0 {
		return Identity{}, fmt.Errorf("%w: missing %s header", common.ErrorUnauthorized, a.UserIDHeader)
	}
	return Identity{
		Subject: strings.TrimSpace(values[0]),
		Email:   strings.TrimSpace(r.Header.Get(a.EmailHeader)),
	}, nil
}

// TokenAssertion verifies an "Authorization: Bearer <jwt>" header.
type TokenAssertion struct {
	secretKey []byte
}

func NewTokenAssertion(secretKey []byte) *TokenAssertion {
	return &TokenAssertion{secretKey: secretKey}
}

func (a *TokenAssertion) Assert(r *http.Request) (Identity, error) {
	header := r.Header.Get(common.AuthorizationHeaderName)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return Identity{}, fmt.Errorf("%w: missing bearer token", common.ErrorUnauthorized)
	}

	claims, err := ParseToken(strings.TrimSpace(token), a.secretKey)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}
	return Identity{Subject: claims.Subject, Email: claims.Email}, nil
}

// NewIdentityAssertion picks the assertion mode configured for the process.
func NewIdentityAssertion(cfg *config.Config) (IdentityAssertion, error) {
	switch cfg.IdentityMode {
	case config.IdentityModeHeader:
		return HeaderAssertion{UserIDHeader: cfg.UserIDHeader, EmailHeader: cfg.UserEmailHeader}, nil
	case config.IdentityModeToken:
		return NewTokenAssertion([]byte(cfg.SecretKey)), nil
	}
	return nil, fmt.Errorf("unknown identity mode %q", cfg.IdentityMode)
}
