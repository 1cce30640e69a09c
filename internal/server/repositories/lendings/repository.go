// Package lendings provides the PostgreSQL-backed repository for
// lending records.
package lendings

import (
	"context"
	"time"

	"github.com/sstoianov/liblend/internal/server/models"
)

// ActiveLending is a lending joined with the book and lendee names for
// the pending-lendings listing.
type ActiveLending struct {
	models.Lending
	BookName   string
	LendeeName string
}

type Repository interface {
	Insert(ctx context.Context, lending *models.Lending) error

	// FindActiveByBook returns the not-yet-returned lending of a book,
	// or common.ErrNotFound when the book is on the shelf.
	FindActiveByBook(ctx context.Context, bookID int64) (*models.Lending, error)

	// ListActiveByLibrary returns lendings of the library's books with
	// no return date yet, joined with book and lendee names.
	ListActiveByLibrary(ctx context.Context, libraryID int64) ([]ActiveLending, error)

	// SetReturned stamps the active lending of the book, or
	// common.ErrNotFound when none is active.
	SetReturned(ctx context.Context, bookID int64, returnedOn time.Time) error
}
