// Package repomanager wires repository constructors and schema
// migrations together behind one interface, so services can ask for a
// repository bound to either the pool or an open transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/sstoianov/liblend/internal/dbx"
	"github.com/sstoianov/liblend/internal/server/repositories/books"
	"github.com/sstoianov/liblend/internal/server/repositories/lendings"
	"github.com/sstoianov/liblend/internal/server/repositories/libraries"
	"github.com/sstoianov/liblend/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Libraries(db dbx.DBTX) libraries.Repository
	Books(db dbx.DBTX) books.Repository
	Lendings(db dbx.DBTX) lendings.Repository
}
