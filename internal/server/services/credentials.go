package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/dmitrijs2005/bitcor/internal/common"
	"github.com/dmitrijs2005/bitcor/internal/logging"
	"github.com/dmitrijs2005/bitcor/internal/server/config"
	"github.com/dmitrijs2005/bitcor/internal/server/models"
	"github.com/dmitrijs2005/bitcor/internal/server/repositories/repomanager"
)

// CredentialStatus describes a stored credential without revealing it.
// Fields holds the provider's non-sensitive attributes.
type CredentialStatus struct {
	Provider  string
	HasSecret bool
	UpdatedAt time.Time
	Fields    map[string]any
}

// CredentialService writes provider secrets to the vault and records where
// they live. The vault is always written first; a pointer therefore never
// references an address that was not written.
type CredentialService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	vault       SecretVault
	logger      logging.Logger
	timeout     time.Duration
	compensate  bool
}

func NewCredentialService(db *sql.DB, m repomanager.RepositoryManager, vault SecretVault, cfg *config.Config, logger logging.Logger) *CredentialService {
	return &CredentialService{
		db:          db,
		repomanager: m,
		vault:       vault,
		logger:      logger.With("module", "credentials"),
		timeout:     cfg.OperationTimeout,
		compensate:  cfg.CompensateOrphans,
	}
}

// Upsert validates raw as provider's payload, stores it and returns the
// vault address. When the pointer write fails the vault object stays behind
// unless orphan compensation is enabled; a retry converges either way.
func (s *CredentialService) Upsert(ctx context.Context, userID, provider string, raw []byte) (string, error) {
	payload, err := models.DecodeProviderPayload(provider, raw)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	address, err := s.vault.UpsertSecret(ctx, provider, userID, body)
	if err != nil {
		return "", err
	}

	if err := s.repomanager.Credentials(s.db).Upsert(ctx, userID, provider, address); err != nil {
		s.logger.Error(ctx, "credential pointer write failed", "provider", provider, "user_id", userID, "address", address, "error", err)
		if s.compensate {
			if derr := s.vault.DeleteSecret(ctx, provider, userID); derr != nil {
				s.logger.Warn(ctx, "orphan compensation failed", "address", address, "error", derr)
			}
		}
		return "", storeError("credential pointer", err)
	}

	s.logger.Info(ctx, "credentials stored", "provider", provider, "user_id", userID, "address", address)
	return address, nil
}

// Status reports whether a secret is stored for provider. A missing pointer
// is common.ErrorNotFound; a pointer whose vault object is gone reports
// HasSecret=false.
func (s *CredentialService) Status(ctx context.Context, userID, provider string) (*CredentialStatus, error) {
	if !models.IsKnownProvider(provider) {
		return nil, common.ErrorNotFound
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	pointer, err := s.repomanager.Credentials(s.db).Get(ctx, userID, provider)
	if err != nil {
		return nil, storeError("credential pointer", err)
	}

	status := &CredentialStatus{
		Provider:  provider,
		UpdatedAt: pointer.UpdatedAt,
		Fields:    map[string]any{},
	}

	raw, err := s.vault.ReadSecret(ctx, provider, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "pointer without vault object", "provider", provider, "user_id", userID, "address", pointer.SecretAddress)
			return status, nil
		}
		return nil, err
	}
	status.HasSecret = true

	payload, err := models.DecodeProviderPayload(provider, raw)
	if err != nil {
		s.logger.Warn(ctx, "stored payload does not decode", "provider", provider, "user_id", userID)
		return status, nil
	}
	status.Fields = payload.Status()
	return status, nil
}

// List returns the user's credential pointers.
func (s *CredentialService) List(ctx context.Context, userID string) ([]*models.CredentialPointer, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	pointers, err := s.repomanager.Credentials(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, storeError("credential pointers", err)
	}
	return pointers, nil
}
