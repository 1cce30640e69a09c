package services

import (
	"context"
	"database/sql"
	"regexp"
	"strings"

	"github.com/sstoianov/liblend/internal/common"
	"github.com/sstoianov/liblend/internal/opaqueid"
	"github.com/sstoianov/liblend/internal/server/models"
	"github.com/sstoianov/liblend/internal/server/repositories/repomanager"
)

// ratePattern accepts plain decimal money amounts like "2" or "2.50".
var ratePattern = regexp.MustCompile(`^\d{1,8}(\.\d{1,2})?$`)

// LibraryInput carries the writable fields of a library. Owner is the
// opaque user id of the account the library is assigned to.
type LibraryInput struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	DailyRate   string `json:"daily_rate"`
	OverdueRate string `json:"overdue_rate"`
	Currency    string `json:"currency"`
	Owner       string `json:"owner"`
}

// LibraryView is the external shape of a library in listings.
type LibraryView struct {
	ID          opaqueid.ID[opaqueid.Library] `json:"id"`
	Name        string                        `json:"name"`
	Address     string                        `json:"address"`
	DailyRate   string                        `json:"daily_rate"`
	OverdueRate string                        `json:"overdue_rate"`
	Currency    string                        `json:"currency"`
}

// LibraryDetails adds the owner and the activity rating to the single
// library view. Rating is the mean number of days the library's books
// were lent for; Lendings counts every lending ever made.
type LibraryDetails struct {
	LibraryView
	Owner    opaqueid.ID[opaqueid.User] `json:"owner"`
	Rating   float64                    `json:"rating"`
	Lendings int                        `json:"lendings"`
}

// LibraryService manages library tenants. All mutations are expected to
// pass the administrator gate before reaching it.
type LibraryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codec       *opaqueid.Codec
}

func NewLibraryService(db *sql.DB, m repomanager.RepositoryManager, codec *opaqueid.Codec) *LibraryService {
	return &LibraryService{db: db, repomanager: m, codec: codec}
}

// Create assigns a new library to the owner named in the input.
func (s *LibraryService) Create(ctx context.Context, in LibraryInput) error {
	library, err := s.fromInput(in)
	if err != nil {
		return err
	}
	return s.repomanager.Libraries(s.db).Insert(ctx, library)
}

// List returns every library.
func (s *LibraryService) List(ctx context.Context) ([]LibraryView, error) {
	libs, err := s.repomanager.Libraries(s.db).List(ctx)
	if err != nil {
		return nil, err
	}
	return s.views(libs), nil
}

// ListMine returns the libraries owned by the caller.
func (s *LibraryService) ListMine(ctx context.Context, ownerID int64) ([]LibraryView, error) {
	libs, err := s.repomanager.Libraries(s.db).ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.views(libs), nil
}

// Get returns one library with its owner and activity rating.
func (s *LibraryService) Get(ctx context.Context, id string) (*LibraryDetails, error) {
	rowID, err := s.decode(id)
	if err != nil {
		return nil, err
	}
	repo := s.repomanager.Libraries(s.db)
	library, err := repo.Get(ctx, rowID)
	if err != nil {
		return nil, err
	}
	days, err := repo.Activity(ctx, rowID)
	if err != nil {
		return nil, err
	}

	details := &LibraryDetails{
		LibraryView: s.view(library),
		Owner:       opaqueid.New[opaqueid.User](library.OwnerID, s.codec),
		Lendings:    len(days),
	}
	if len(days) > 0 {
		var total int64
		for _, d := range days {
			total += d
		}
		details.Rating = float64(total) / float64(len(days))
	}
	return details, nil
}

// Update rewrites a library, owner included.
func (s *LibraryService) Update(ctx context.Context, id string, in LibraryInput) error {
	rowID, err := s.decode(id)
	if err != nil {
		return err
	}
	library, err := s.fromInput(in)
	if err != nil {
		return err
	}
	library.ID = rowID
	return s.repomanager.Libraries(s.db).Update(ctx, library)
}

// Delete removes a library and, through the schema, its books.
func (s *LibraryService) Delete(ctx context.Context, id string) error {
	rowID, err := s.decode(id)
	if err != nil {
		return err
	}
	return s.repomanager.Libraries(s.db).Delete(ctx, rowID)
}

// CheckOwner verifies the caller owns the library named by the opaque id
// and returns its row id.
func (s *LibraryService) CheckOwner(ctx context.Context, ownerID int64, libraryID string) (int64, error) {
	rowID, err := s.decode(libraryID)
	if err != nil {
		return 0, err
	}
	if err := s.repomanager.Libraries(s.db).CheckOwner(ctx, ownerID, rowID); err != nil {
		return 0, err
	}
	return rowID, nil
}

func (s *LibraryService) decode(id string) (int64, error) {
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

func (s *LibraryService) fromInput(in LibraryInput) (*models.Library, error) {
	switch {
	case in.Name == "" || len(in.Name) > 50:
		return nil, common.Validation("name must be 1 to 50 characters")
	case len(in.Address) == 0 || len(in.Address) > 100:
		return nil, common.Validation("address must be 1 to 100 characters")
	case !ratePattern.MatchString(in.DailyRate):
		return nil, common.Validation("daily rate must be a decimal amount")
	case !ratePattern.MatchString(in.OverdueRate):
		return nil, common.Validation("overdue rate must be a decimal amount")
	case len(in.Currency) != 3:
		return nil, common.Validation("currency must be a 3-letter code")
	}

	ownerID, err := s.decodeOwner(in.Owner)
	if err != nil {
		return nil, err
	}
	return &models.Library{
		Name:        in.Name,
		Address:     in.Address,
		DailyRate:   in.DailyRate,
		OverdueRate: in.OverdueRate,
		Currency:    strings.ToUpper(in.Currency),
		OwnerID:     ownerID,
	}, nil
}

func (s *LibraryService) decodeOwner(opaque string) (int64, error) {
	parsed, err := opaqueid.Parse[opaqueid.User](opaque)
	if err != nil {
		return 0, common.ErrNotFound
	}
	rowID, err := parsed.RowID(s.codec)
	if err != nil {
		return 0, common.ErrNotFound
	}
	return rowID, nil
}

func (s *LibraryService) view(l *models.Library) LibraryView {
	return LibraryView{
		ID:          opaqueid.New[opaqueid.Library](l.ID, s.codec),
		Name:        l.Name,
		Address:     l.Address,
		DailyRate:   l.DailyRate,
		OverdueRate: l.OverdueRate,
		Currency:    l.Currency,
	}
}

func (s *LibraryService) views(libs []models.Library) []LibraryView {
	views := make([]LibraryView, 0, len(libs))
	for i := range libs {
		views = append(views, s.view(&libs[i]))
	}
	return views
}
