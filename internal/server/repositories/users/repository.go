// Package users declares and implements persistence of internal user records
// keyed by their external subject.
package users

import (
	"context"

	"github.com/dmitrijs2005/bitcor/internal/server/models"
)

type Repository interface {
	// Create inserts user. A duplicate external subject yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetBySubject returns common.ErrorNotFound when no row matches.
	GetBySubject(ctx context.Context, subject string) (*models.User, error)

	UpdateEmail(ctx context.Context, userID string, email string) error
}
