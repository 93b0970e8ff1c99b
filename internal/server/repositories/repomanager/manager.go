package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/addressbook/internal/dbx"
	"github.com/dmitrijs2005/addressbook/internal/server/repositories/contacts"
	"github.com/dmitrijs2005/addressbook/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a connection or a
// transaction, so services can compose several of them under dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Contacts(db dbx.DBTX) contacts.Repository
}
