package services

import (
	"context"
	"database/sql"

	"github.com/sstoianov/liblend/internal/common"
	"github.com/sstoianov/liblend/internal/opaqueid"
	"github.com/sstoianov/liblend/internal/server/models"
	"github.com/sstoianov/liblend/internal/server/repositories/repomanager"
)

// BookInput carries the writable fields of a book.
type BookInput struct {
	Year   int16  `json:"year"`
	Name   string `json:"name"`
	Genre  string `json:"genre"`
	Author string `json:"author"`
}

// BookView is the external shape of a book.
type BookView struct {
	ID     opaqueid.ID[opaqueid.Book] `json:"id"`
	Year   int16                      `json:"year"`
	Name   string                     `json:"name"`
	Genre  string                     `json:"genre"`
	Author string                     `json:"author"`
}

// BookService manages the books of a library. Reads are open to any
// signed-in user; writes require the caller to own the library, checked
// here through the libraries service.
type BookService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codec       *opaqueid.Codec
	libraries   *LibraryService
}

func NewBookService(db *sql.DB, m repomanager.RepositoryManager, codec *opaqueid.Codec, libraries *LibraryService) *BookService {
	return &BookService{db: db, repomanager: m, codec: codec, libraries: libraries}
}

// Add puts a new book on the shelf of the caller's library.
func (s *BookService) Add(ctx context.Context, ownerID int64, libraryID string, in BookInput) error {
	libRowID, err := s.libraries.CheckOwner(ctx, ownerID, libraryID)
	if err != nil {
		return err
	}
	book, err := s.fromInput(in)
	if err != nil {
		return err
	}
	book.LibraryID = libRowID
	return s.repomanager.Books(s.db).Insert(ctx, book)
}

// List returns every book of a library.
func (s *BookService) List(ctx context.Context, libraryID string) ([]BookView, error) {
	libRowID, err := s.decodeLibrary(libraryID)
	if err != nil {
		return nil, err
	}
	books, err := s.repomanager.Books(s.db).ListByLibrary(ctx, libRowID)
	if err != nil {
		return nil, err
	}
	views := make([]BookView, 0, len(books))
	for i := range books {
		views = append(views, s.view(&books[i]))
	}
	return views, nil
}

// Get returns one book, scoped to its library: a valid book id under
// the wrong library is a missing book.
func (s *BookService) Get(ctx context.Context, libraryID, bookID string) (*BookView, error) {
	libRowID, err := s.decodeLibrary(libraryID)
	if err != nil {
		return nil, err
	}
	bookRowID, err := s.decodeBook(bookID)
	if err != nil {
		return nil, err
	}
	book, err := s.repomanager.Books(s.db).Get(ctx, libRowID, bookRowID)
	if err != nil {
		return nil, err
	}
	view := s.view(book)
	return &view, nil
}

// Update rewrites a book of the caller's library.
func (s *BookService) Update(ctx context.Context, ownerID int64, libraryID, bookID string, in BookInput) error {
	libRowID, err := s.libraries.CheckOwner(ctx, ownerID, libraryID)
	if err != nil {
		return err
	}
	bookRowID, err := s.decodeBook(bookID)
	if err != nil {
		return err
	}
	// scope check before the blind update
	if _, err := s.repomanager.Books(s.db).Get(ctx, libRowID, bookRowID); err != nil {
		return err
	}
	book, err := s.fromInput(in)
	if err != nil {
		return err
	}
	book.ID = bookRowID
	book.LibraryID = libRowID
	return s.repomanager.Books(s.db).Update(ctx, book)
}

// Delete removes a book from the caller's library.
func (s *BookService) Delete(ctx context.Context, ownerID int64, libraryID, bookID string) error {
	libRowID, err := s.libraries.CheckOwner(ctx, ownerID, libraryID)
	if err != nil {
		return err
	}
	bookRowID, err := s.decodeBook(bookID)
	if err != nil {
		return err
	}
	if _, err := s.repomanager.Books(s.db).Get(ctx, libRowID, bookRowID); err != nil {
		return err
	}
	return s.repomanager.Books(s.db).Delete(ctx, bookRowID)
}

func (s *BookService) fromInput(in BookInput) (*models.Book, error) {
	switch {
	case in.Name == "" || len(in.Name) > 50:
		return nil, common.Validation("name must be 1 to 50 characters")
	case in.Author == "" || len(in.Author) > 50:
		return nil, common.Validation("author must be 1 to 50 characters")
	case in.Genre == "" || len(in.Genre) > 50:
		return nil, common.Validation("genre must be 1 to 50 characters")
	case int(in.Year) > timeNow().Year():
		return nil, common.Validation("year must not be in the future")
	}
	return &models.Book{
		Year:   in.Year,
		Name:   in.Name,
		Genre:  in.Genre,
		Author: in.Author,
	}, nil
}

func (s *BookService) decodeLibrary(id string) (int64, error) {
	parsed, err := opaqueid.Parse[opaqueid.Library](id)
	if err != nil {
		return 0, common.ErrNotFound
	}
	rowID, err := parsed.RowID(s.codec)
	if err != nil {
		return 0, common.ErrNotFound
	}
	return rowID, nil
}

func (s *BookService) decodeBook(id string) (int64, error) {
	parsed, err := opaqueid.Parse[opaqueid.Book](id)
	if err != nil {
		return 0, common.ErrNotFound
	}
	rowID, err := parsed.RowID(s.codec)
	if err != nil {
		return 0, common.ErrNotFound
	}
	return rowID, nil
}

func (s *BookService) view(b *models.Book) BookView {
	return BookView{
		ID:     opaqueid.New[opaqueid.Book](b.ID, s.codec),
		Year:   b.Year,
		Name:   b.Name,
		Genre:  b.Genre,
		Author: b.Author,
	}
}
