package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/bitcor/internal/dbx"
	"github.com/dmitrijs2005/bitcor/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/bitcor/internal/server/repositories/diagnostics"
	"github.com/dmitrijs2005/bitcor/internal/server/repositories/settings"
	"github.com/dmitrijs2005/bitcor/internal/server/repositories/strategies"
	"github.com/dmitrijs2005/bitcor/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can use
// the same repository either on the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Credentials(db dbx.DBTX) credentials.Repository
	Strategies(db dbx.DBTX) strategies.Repository
	Settings(db dbx.DBTX) settings.Repository
	Diagnostics(db dbx.DBTX) diagnostics.Repository
}
