// Package libraries provides the PostgreSQL-backed repository for
// library tenants.
package libraries

import (
	"context"

	"github.com/sstoianov/liblend/internal/server/models"
)

type Repository interface {
	Insert(ctx context.Context, library *models.Library) error

	List(ctx context.Context) ([]models.Library, error)

	ListByOwner(ctx context.Context, ownerID int64) ([]models.Library, error)

	// Get returns the library including its owner id, or
	// common.ErrNotFound.
	Get(ctx context.Context, id int64) (*models.Library, error)

	Update(ctx context.Context, library *models.Library) error

	Delete(ctx context.Context, id int64) error

	// CheckOwner verifies the user owns the library; a mismatch or a
	// missing library yields common.ErrUnauthorized.
	CheckOwner(ctx context.Context, ownerID, libraryID int64) error

	// Activity returns, for every lending of the library's books, the
	// number of days the book was lent for. Feeds the rating shown on
	// the library view.
	Activity(ctx context.Context, libraryID int64) ([]int64, error)
}
