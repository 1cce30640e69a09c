// Package books provides the PostgreSQL-backed repository for books.
package books

import (
	"context"

	"github.com/sstoianov/liblend/internal/server/models"
)

type Repository interface {
	Insert(ctx context.Context, book *models.Book) error

	ListByLibrary(ctx context.Context, libraryID int64) ([]models.Book, error)

	// Find looks a book up by id alone, library unknown to the caller.
	// Used when only an opaque book id arrives on the wire.
	Find(ctx context.Context, bookID int64) (*models.Book, error)

	// Get scopes the lookup to a library: a valid book id paired with
	// the wrong library yields common.ErrNotFound.
	Get(ctx context.Context, libraryID, bookID int64) (*models.Book, error)

	Update(ctx context.Context, book *models.Book) error

	Delete(ctx context.Context, bookID int64) error
}
