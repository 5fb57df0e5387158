package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/bitcor/internal/common"
	"github.com/dmitrijs2005/bitcor/internal/logging"
	"github.com/dmitrijs2005/bitcor/internal/server/config"
	"github.com/dmitrijs2005/bitcor/internal/server/models"
	"github.com/dmitrijs2005/bitcor/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const maxSubjectLen = 255

// IdentityService maps external subjects to internal user ids, creating the
// user on first sight.
type IdentityService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	timeout     time.Duration
}

func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *IdentityService {
	return &IdentityService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "identity"),
		timeout:     cfg.OperationTimeout,
	}
}

// Resolve returns the internal id for subject. Concurrent calls for one
// unseen subject all return the same id; the loser of the insert race
// re-reads the winner's row.
func (s *IdentityService) Resolve(ctx context.Context, subject, email string) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", fmt.Errorf("%w: empty subject", common.ErrInvalidIdentity)
	}
	if len(subject) > maxSubjectLen {
		return "", fmt.Errorf("%w: subject longer than %d bytes", common.ErrInvalidIdentity, maxSubjectLen)
	}
	email = strings.TrimSpace(email)

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetBySubject(ctx, subject)
	if err == nil {
		s.refreshEmail(ctx, user, email)
		return user.ID, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return "", s.unavailable(err)
	}

	user = &models.User{ID: uuid.NewString(), ExternalSubject: subject}
	if email != "" {
		user.Email = &email
	}

	created, err := repo.Create(ctx, user)
	if err == nil {
		s.logger.Info(ctx, "user created", "user_id", created.ID)
		return created.ID, nil
	}
	if !errors.Is(err, common.ErrorAlreadyExists) {
		return "", s.unavailable(err)
	}

	existing, err := repo.GetBySubject(ctx, subject)
	if err != nil {
		return "", s.unavailable(err)
	}
	return existing.ID, nil
}

// refreshEmail is best effort: a failed update does not fail resolution.
func (s *IdentityService) refreshEmail(ctx context.Context, user *models.User, email string) {
	if email == "" || (user.Email != nil && *user.Email == email) {
		return
	}
	if err := s.repomanager.Users(s.db).UpdateEmail(ctx, user.ID, email); err != nil {
		s.logger.Warn(ctx, "email refresh failed", "user_id", user.ID, "error", err)
		return
	}
	user.Email = &email
}

func (s *IdentityService) unavailable(err error) error {
	return fmt.Errorf("%w: %w", common.ErrIdentityUnavailable, err)
}
