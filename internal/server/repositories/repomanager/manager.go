// Package repomanager vends repositories bound to a dbx.DBTX, so services
// can run the same repository code inside or outside a transaction, and
// applies the embedded schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/metaltracker/internal/dbx"
	"github.com/dmitrijs2005/metaltracker/internal/server/repositories/apikeys"
	"github.com/dmitrijs2005/metaltracker/internal/server/repositories/positions"
	"github.com/dmitrijs2005/metaltracker/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/metaltracker/internal/server/repositories/settings"
	"github.com/dmitrijs2005/metaltracker/internal/server/repositories/snapshots"
	"github.com/dmitrijs2005/metaltracker/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	APIKeys(db dbx.DBTX) apikeys.Repository
	Positions(db dbx.DBTX) positions.Repository
	Settings(db dbx.DBTX) settings.Repository
	Snapshots(db dbx.DBTX) snapshots.Repository
}
