package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/bitcor/internal/common"
)

// Provider names accepted by the credentials endpoints.
const (
	ProviderAlpaca  = "alpaca"
	ProviderPolygon = "polygon"
)

// ProviderPayload is the decoded, validated credential body of one provider.
// Status returns only fields that are safe to echo back to the client.
type ProviderPayload interface {
	Validate() error
	Status() map[string]any
}

type AlpacaCredentials struct {
	KeyID  string `json:"key_id"`
	Secret string `json:"secret"`
	Paper  *bool  `json:"paper,omitempty"`
}

func (c *AlpacaCredentials) Validate() error {
	if strings.TrimSpace(c.KeyID) == "" {
		return fmt.Errorf("%w: key_id is required", common.ErrInvalidPayload)
	}
	if strings.TrimSpace(c.Secret) == "" {
		return fmt.Errorf("%w: secret is required", common.ErrInvalidPayload)
	}
	if c.Paper == nil {
		paper := true
		c.Paper = &paper
	}
	return nil
}

func (c *AlpacaCredentials) Status() map[string]any {
	paper := true
	if c.Paper != nil {
		paper = *c.Paper
	}
	return map[string]any{"paper": paper}
}

type PolygonCredentials struct {
	APIKey string `json:"api_key"`
}

func (c *PolygonCredentials) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: api_key is required", common.ErrInvalidPayload)
	}
	return nil
}

func (c *PolygonCredentials) Status() map[string]any {
	return map[string]any{}
}

var providers = map[string]func() ProviderPayload{
	ProviderAlpaca:  func() ProviderPayload { return &AlpacaCredentials{} },
	ProviderPolygon: func() ProviderPayload { return &PolygonCredentials{} },
}

// IsKnownProvider reports whether name has a payload schema.
func IsKnownProvider(name string) bool {
	_, ok := providers[name]
	return ok
}

// DecodeProviderPayload parses raw as the payload of provider and validates
// it. Unknown providers yield common.ErrorNotFound, bad bodies
// common.ErrInvalidPayload. Error messages never quote the body.
func DecodeProviderPayload(provider string, raw []byte) (ProviderPayload, error) {
	newPayload, ok := providers[provider]
	if !ok {
		return nil, fmt.Errorf("provider %q: %w", provider, common.ErrorNotFound)
	}

	p := newPayload()
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return nil, fmt.Errorf("%w: malformed %s credentials", common.ErrInvalidPayload, provider)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
