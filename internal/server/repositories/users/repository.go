// Package users provides the PostgreSQL-backed repository for user
// accounts: the identity core's storage collaborator.
package users

import (
	"context"

	"github.com/google/uuid"

	"github.com/sstoianov/liblend/internal/server/models"
)

type Repository interface {
	// Insert creates the account row. A taken email yields
	// common.ErrAccountExists.
	Insert(ctx context.Context, user *models.User) error

	// FindByEmail returns the credential row for sign-in, or
	// common.ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindByRefreshSecret resolves the account holding the given
	// refresh secret, or common.ErrNotFound.
	FindByRefreshSecret(ctx context.Context, secret uuid.UUID) (*models.User, error)

	// FindRole returns the role for a row id, or common.ErrNotFound if
	// the account no longer exists.
	FindRole(ctx context.Context, id int64) (models.Role, error)

	// Get returns name and email for a row id, or common.ErrNotFound.
	Get(ctx context.Context, id int64) (*models.User, error)

	// List returns id, name and email of every account.
	List(ctx context.Context) ([]models.User, error)

	// UpdateName renames the account, or common.ErrNotFound.
	UpdateName(ctx context.Context, id int64, name string) error
}
