package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sstoianov/liblend/internal/common"
	"github.com/sstoianov/liblend/internal/dbx"
	"github.com/sstoianov/liblend/internal/opaqueid"
	"github.com/sstoianov/liblend/internal/server/models"
	"github.com/sstoianov/liblend/internal/server/repositories/repomanager"
)

// LendInput carries a new lending: which book, to whom, starting when,
// and for how many days.
type LendInput struct {
	Book    string `json:"book"`
	Lendee  string `json:"lendee"`
	LentOn  string `json:"lent_on"`
	LentFor int    `json:"lent_for"`
}

// LendingView is one row of the pending-lendings listing.
type LendingView struct {
	ID         opaqueid.ID[opaqueid.Lending] `json:"id"`
	Book       opaqueid.ID[opaqueid.Book]    `json:"book"`
	BookName   string                        `json:"book_name"`
	Lendee     opaqueid.ID[opaqueid.User]    `json:"lendee"`
	LendeeName string                        `json:"lendee_name"`
	LentOn     string                        `json:"lent_on"`
	Due        string                        `json:"due"`
}

// LendingService hands books out and takes them back. Every operation
// requires the caller to own the library holding the book.
type LendingService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codec       *opaqueid.Codec
}

func NewLendingService(db *sql.DB, m repomanager.RepositoryManager, codec *opaqueid.Codec) *LendingService {
	return &LendingService{db: db, repomanager: m, codec: codec}
}

// Lend hands a book to a lendee. The book must be on the shelf: the
// check and the insert run in one transaction so two concurrent lends
// of the same book cannot both pass.
func (s *LendingService) Lend(ctx context.Context, ownerID int64, in LendInput) error {
	bookRowID, err := s.decodeBook(in.Book)
	if err != nil {
		return err
	}
	lendeeRowID, err := s.decodeUser(in.Lendee)
	if err != nil {
		return err
	}

	lentOn, err := time.Parse(time.DateOnly, in.LentOn)
	if err != nil {
		return common.Validation("lent-on must be a YYYY-MM-DD date")
	}
	today := timeNow().Truncate(24 * time.Hour)
	if lentOn.After(today) {
		return common.Validation("lent-on must not be in the future")
	}
	if in.LentFor <= 0 {
		return common.Validation("lent-for must be a positive number of days")
	}

	book, err := s.repomanager.Books(s.db).Find(ctx, bookRowID)
	if err != nil {
		return err
	}
	if err := s.repomanager.Libraries(s.db).CheckOwner(ctx, ownerID, book.LibraryID); err != nil {
		return err
	}
	if _, err := s.repomanager.Users(s.db).Get(ctx, lendeeRowID); err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Lendings(tx)
		_, err := repo.FindActiveByBook(ctx, bookRowID)
		if err == nil {
			return common.Validation("book is already lent out")
		}
		if !errors.Is(err, common.ErrNotFound) {
			return err
		}
		lending := &models.Lending{
			BookID:   bookRowID,
			LendeeID: lendeeRowID,
			LentOn:   lentOn,
			Due:      lentOn.AddDate(0, 0, in.LentFor),
		}
		if err := repo.Insert(ctx, lending); err != nil {
			return fmt.Errorf("recording lending: %w", err)
		}
		return nil
	})
}

// Return takes a book back, stamping today on its active lending. A
// book with no active lending is not found.
func (s *LendingService) Return(ctx context.Context, ownerID int64, bookID string) error {
	bookRowID, err := s.decodeBook(bookID)
	if err != nil {
		return err
	}
	book, err := s.repomanager.Books(s.db).Find(ctx, bookRowID)
	if err != nil {
		return err
	}
	if err := s.repomanager.Libraries(s.db).CheckOwner(ctx, ownerID, book.LibraryID); err != nil {
		return err
	}
	today := timeNow().Truncate(24 * time.Hour)
	return s.repomanager.Lendings(s.db).SetReturned(ctx, bookRowID, today)
}

// Pending lists the not-yet-returned lendings of the caller's library.
func (s *LendingService) Pending(ctx context.Context, ownerID int64, libraryID string) ([]LendingView, error) {
	parsed, err := opaqueid.Parse[opaqueid.Library](libraryID)
	if err != nil {
		return nil, common.ErrNotFound
	}
	libRowID, err := parsed.RowID(s.codec)
	if err != nil {
		return nil, common.ErrNotFound
	}
	if err := s.repomanager.Libraries(s.db).CheckOwner(ctx, ownerID, libRowID); err != nil {
		return nil, err
	}

	active, err := s.repomanager.Lendings(s.db).ListActiveByLibrary(ctx, libRowID)
	if err != nil {
		return nil, err
	}
	views := make([]LendingView, 0, len(active))
	for _, l := range active {
		views = append(views, LendingView{
			ID:         opaqueid.New[opaqueid.Lending](l.ID, s.codec),
			Book:       opaqueid.New[opaqueid.Book](l.BookID, s.codec),
			BookName:   l.BookName,
			Lendee:     opaqueid.New[opaqueid.User](l.LendeeID, s.codec),
			LendeeName: l.LendeeName,
			LentOn:     l.LentOn.Format(time.DateOnly),
			Due:        l.Due.Format(time.DateOnly),
		})
	}
	return views, nil
}

func (s *LendingService) decodeBook(id string) (int64, error) {
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

func (s *LendingService) decodeUser(id string) (int64, error) {
	parsed, err := opaqueid.Parse[opaqueid.User](id)
	if err != nil {
		return 0, common.ErrNotFound
	}
	rowID, err := parsed.RowID(s.codec)
	if err != nil {
		return 0, common.ErrNotFound
	}
	return rowID, nil
}
