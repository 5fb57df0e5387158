// Package vault stores JSON credential payloads in an external secret store
// under addresses derived only from (namespace, provider, user).
//
// Upsert is create-or-update: the backend reports the outcome of a create as
// a CreateResult instead of an error, and AlreadyExists is followed by an
// in-place update at the same address. Payload bytes are never logged.
package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/bitcor/internal/common"
	"github.com/dmitrijs2005/bitcor/internal/logging"
)

// CreateResult is the outcome of Backend.Create.
type CreateResult int

const (
	Created CreateResult = iota
	AlreadyExists
)

func (r CreateResult) String() string {
	if r == AlreadyExists {
		return "already_exists"
	}
	return "created"
}

// Backend is one concrete secret store. Read, Update and Delete report a
// missing object as common.ErrorNotFound; Delete of a missing object is not an error.
// Create may return common.ErrVaultConflict when a concurrent create of the same
// address was in flight; the client treats it like AlreadyExists.
type Backend interface {
	Name() string
	Create(ctx context.Context, address string, payload []byte) (CreateResult, error)
	Update(ctx context.Context, address string, payload []byte) error
	Read(ctx context.Context, address string) ([]byte, error)
	Delete(ctx context.Context, address string) error
}

// upsertRounds bounds the create/update alternation when the object is
// deleted between a conflicting create and the follow-up update.
const upsertRounds = 2

// Address returns "{namespace}/{provider}/{userID}".
func Address(namespace, provider, userID string) string {
	return strings.TrimRight(namespace, "/") + "/" + provider + "/" + userID
}

type Client struct {
	backend   Backend
	namespace string
	logger    logging.Logger
	metrics   *Metrics
}

// NewClient wraps backend. metrics may be nil.
func NewClient(backend Backend, namespace string, logger logging.Logger, metrics *Metrics) *Client {
	return &Client{
		backend:   backend,
		namespace: namespace,
		logger:    logger.With("module", "vault", "backend", backend.Name()),
		metrics:   metrics,
	}
}

func (c *Client) Address(provider, userID string) string {
	return Address(c.namespace, provider, userID)
}

// UpsertSecret writes payload at the address of (provider, userID) and returns
// that address. Repeating the call with the same inputs converges to the same
// single object holding payload.
func (c *Client) UpsertSecret(ctx context.Context, provider, userID string, payload []byte) (string, error) {
	address, err := c.checkedAddress(provider, userID)
	if err != nil {
		return "", err
	}

	for round := 0; round < upsertRounds; round++ {
		res, err := c.backend.Create(ctx, address, payload)
		c.observe("create", err)
		if errors.Is(err, common.ErrVaultConflict) {
			// a concurrent create won the race; fall through to update
			res, err = AlreadyExists, nil
		}
		if err != nil {
			return "", c.unavailable("create", address, err)
		}
		if res == Created {
			c.logger.Info(ctx, "secret created", "provider", provider, "user_id", userID, "address", address)
			return address, nil
		}

		err = c.backend.Update(ctx, address, payload)
		c.observe("update", err)
		if err == nil {
			c.logger.Info(ctx, "secret updated", "provider", provider, "user_id", userID, "address", address)
			return address, nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return "", c.unavailable("update", address, err)
		}
		c.logger.Warn(ctx, "secret vanished between create and update, retrying", "address", address)
	}

	return "", fmt.Errorf("vault upsert %s: %w: object removed concurrently", address, common.ErrVaultUnavailable)
}

// ReadSecret returns the payload stored for (provider, userID) or
// common.ErrorNotFound.
func (c *Client) ReadSecret(ctx context.Context, provider, userID string) ([]byte, error) {
	address, err := c.checkedAddress(provider, userID)
	if err != nil {
		return nil, err
	}

	payload, err := c.backend.Read(ctx, address)
	c.observe("read", err)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("secret %s: %w", address, common.ErrorNotFound)
		}
		return nil, c.unavailable("read", address, err)
	}
	return payload, nil
}

// DeleteSecret removes the object for (provider, userID). Only used to
// compensate a failed pointer write when that policy is enabled.
func (c *Client) DeleteSecret(ctx context.Context, provider, userID string) error {
	address, err := c.checkedAddress(provider, userID)
	if err != nil {
		return err
	}

	err = c.backend.Delete(ctx, address)
	c.observe("delete", err)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return c.unavailable("delete", address, err)
	}
	c.logger.Info(ctx, "secret deleted", "provider", provider, "user_id", userID, "address", address)
	return nil
}

func (c *Client) checkedAddress(provider, userID string) (string, error) {
	for _, part := range []string{provider, userID} {
		if part == "" || strings.Contains(part, "/") {
			return "", fmt.Errorf("%w: bad address component %q", common.ErrInvalidPayload, part)
		}
	}
	return c.Address(provider, userID), nil
}

func (c *Client) unavailable(op, address string, err error) error {
	return fmt.Errorf("vault %s %s: %w: %w", op, address, common.ErrVaultUnavailable, err)
}

func (c *Client) observe(op string, err error) {
	if c.metrics != nil {
		c.metrics.observe(c.backend.Name(), op, err)
	}
}
