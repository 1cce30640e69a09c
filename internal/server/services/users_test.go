package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/sstoianov/liblend/internal/common"
	"github.com/sstoianov/liblend/internal/dbx"
	"github.com/sstoianov/liblend/internal/opaqueid"
	"github.com/sstoianov/liblend/internal/server/config"
	"github.com/sstoianov/liblend/internal/server/models"
	booksrepo "github.com/sstoianov/liblend/internal/server/repositories/books"
	lendingsrepo "github.com/sstoianov/liblend/internal/server/repositories/lendings"
	librariesrepo "github.com/sstoianov/liblend/internal/server/repositories/libraries"
	usersrepo "github.com/sstoianov/liblend/internal/server/repositories/users"
)

// --- helpers shared by the service tests ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func testCodec(t *testing.T) *opaqueid.Codec {
	t.Helper()
	codec, err := opaqueid.NewCodec([]byte("0123456789abcdef"))
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}
	return codec
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                    "k",
		HasherKey:                    "hk",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
}

func newTestUserService(t *testing.T, db *sql.DB, rm *fakeRepoManager) *UserService {
	t.Helper()
	return NewUserService(db, rm, testCodec(t), testConfig())
}

type fakeUsersRepo struct {
	inserted  *models.User
	insertErr error

	byEmail    *models.User
	byEmailErr error

	bySecret    *models.User
	bySecretErr error

	role    models.Role
	roleErr error

	getOut *models.User
	getErr error

	listOut []models.User
	listErr error

	renamedTo string
	renameErr error
}

func (f *fakeUsersRepo) Insert(ctx context.Context, u *models.User) error {
	f.inserted = u
	return f.insertErr
}
func (f *fakeUsersRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.byEmailErr != nil {
		return nil, f.byEmailErr
	}
	return f.byEmail, nil
}
func (f *fakeUsersRepo) FindByRefreshSecret(ctx context.Context, secret uuid.UUID) (*models.User, error) {
	if f.bySecretErr != nil {
		return nil, f.bySecretErr
	}
	return f.bySecret, nil
}
func (f *fakeUsersRepo) FindRole(ctx context.Context, id int64) (models.Role, error) {
	if f.roleErr != nil {
		return "", f.roleErr
	}
	return f.role, nil
}
func (f *fakeUsersRepo) Get(ctx context.Context, id int64) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}
func (f *fakeUsersRepo) List(ctx context.Context) ([]models.User, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listOut, nil
}
func (f *fakeUsersRepo) UpdateName(ctx context.Context, id int64, name string) error {
	f.renamedTo = name
	return f.renameErr
}

type fakeLibrariesRepo struct {
	inserted  *models.Library
	insertErr error

	listOut []models.Library
	listErr error

	byOwnerOut []models.Library
	byOwnerErr error

	getOut *models.Library
	getErr error

	updated   *models.Library
	updateErr error

	deletedID int64
	deleteErr error

	ownerErr error

	activityOut []int64
	activityErr error
}

func (f *fakeLibrariesRepo) Insert(ctx context.Context, l *models.Library) error {
	f.inserted = l
	return f.insertErr
}
func (f *fakeLibrariesRepo) List(ctx context.Context) ([]models.Library, error) {
	return f.listOut, f.listErr
}
func (f *fakeLibrariesRepo) ListByOwner(ctx context.Context, ownerID int64) ([]models.Library, error) {
	return f.byOwnerOut, f.byOwnerErr
}
func (f *fakeLibrariesRepo) Get(ctx context.Context, id int64) (*models.Library, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}
func (f *fakeLibrariesRepo) Update(ctx context.Context, l *models.Library) error {
	f.updated = l
	return f.updateErr
}
func (f *fakeLibrariesRepo) Delete(ctx context.Context, id int64) error {
	f.deletedID = id
	return f.deleteErr
}
func (f *fakeLibrariesRepo) CheckOwner(ctx context.Context, ownerID, libraryID int64) error {
	return f.ownerErr
}
func (f *fakeLibrariesRepo) Activity(ctx context.Context, libraryID int64) ([]int64, error) {
	return f.activityOut, f.activityErr
}

type fakeBooksRepo struct {
	inserted  *models.Book
	insertErr error

	listOut []models.Book
	listErr error

	findOut *models.Book
	findErr error

	getOut *models.Book
	getErr error

	updated   *models.Book
	updateErr error

	deletedID int64
	deleteErr error
}

func (f *fakeBooksRepo) Insert(ctx context.Context, b *models.Book) error {
	f.inserted = b
	return f.insertErr
}
func (f *fakeBooksRepo) ListByLibrary(ctx context.Context, libraryID int64) ([]models.Book, error) {
	return f.listOut, f.listErr
}
func (f *fakeBooksRepo) Find(ctx context.Context, bookID int64) (*models.Book, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}
func (f *fakeBooksRepo) Get(ctx context.Context, libraryID, bookID int64) (*models.Book, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}
func (f *fakeBooksRepo) Update(ctx context.Context, b *models.Book) error {
	f.updated = b
	return f.updateErr
}
func (f *fakeBooksRepo) Delete(ctx context.Context, bookID int64) error {
	f.deletedID = bookID
	return f.deleteErr
}

type fakeLendingsRepo struct {
	inserted  *models.Lending
	insertErr error

	activeOut *models.Lending
	activeErr error

	listOut []lendingsrepo.ActiveLending
	listErr error

	returnedBook int64
	returnedOn   time.Time
	returnErr    error
}

func (f *fakeLendingsRepo) Insert(ctx context.Context, l *models.Lending) error {
	f.inserted = l
	return f.insertErr
}
func (f *fakeLendingsRepo) FindActiveByBook(ctx context.Context, bookID int64) (*models.Lending, error) {
	if f.activeErr != nil {
		return nil, f.activeErr
	}
	return f.activeOut, nil
}
func (f *fakeLendingsRepo) ListActiveByLibrary(ctx context.Context, libraryID int64) ([]lendingsrepo.ActiveLending, error) {
	return f.listOut, f.listErr
}
func (f *fakeLendingsRepo) SetReturned(ctx context.Context, bookID int64, returnedOn time.Time) error {
	f.returnedBook = bookID
	f.returnedOn = returnedOn
	return f.returnErr
}

type fakeRepoManager struct {
	u  *fakeUsersRepo
	li *fakeLibrariesRepo
	b  *fakeBooksRepo
	le *fakeLendingsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error        { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository             { return m.u }
func (m *fakeRepoManager) Libraries(db dbx.DBTX) librariesrepo.Repository     { return m.li }
func (m *fakeRepoManager) Books(db dbx.DBTX) booksrepo.Repository             { return m.b }
func (m *fakeRepoManager) Lendings(db dbx.DBTX) lendingsrepo.Repository       { return m.le }

// --- UserService tests ---

func TestSignUp_CreatesClientAccount(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{}}
	s := newTestUserService(t, db, rm)

	err := s.SignUp(context.Background(), "Alice", "alice@example.com", "Password1")
	if err != nil {
		t.Fatalf("SignUp error: %v", err)
	}

	got := rm.u.inserted
	if got == nil {
		t.Fatal("nothing inserted")
	}
	if got.Role != models.RoleClient {
		t.Fatalf("role = %q, want client", got.Role)
	}
	if got.RefreshSecret == uuid.Nil {
		t.Fatal("refresh secret not generated")
	}
	if !strings.HasPrefix(string(got.PasswordHash), "$argon2id$") {
		t.Fatalf("unexpected hash format: %q", got.PasswordHash)
	}
}

func TestSignUp_RejectsWeakPassword(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{}}
	s := newTestUserService(t, db, rm)

	err := s.SignUp(context.Background(), "Alice", "alice@example.com", "alllowercase1")
	if !common.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if rm.u.inserted != nil {
		t.Fatal("insert must not happen on validation failure")
	}
}

func TestSignUp_TakenEmail(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{insertErr: common.ErrAccountExists}}
	s := newTestUserService(t, db, rm)

	err := s.SignUp(context.Background(), "Alice", "alice@example.com", "Password1")
	if !errors.Is(err, common.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestSignIn_UnknownEmail(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{byEmailErr: common.ErrNotFound}}
	s := newTestUserService(t, db, rm)

	_, err := s.SignIn(context.Background(), "nobody@example.com", "Password1")
	if !errors.Is(err, common.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignIn_WrongPassword(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newTestUserService(t, db, &fakeRepoManager{})
	hash, err := s.hasher.Hash("Password1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	rm := &fakeRepoManager{u: &fakeUsersRepo{byEmail: &models.User{
		ID: 7, PasswordHash: models.PasswordHash(hash), RefreshSecret: uuid.New(),
	}}}
	s = newTestUserService(t, db, rm)

	_, err = s.SignIn(context.Background(), "alice@example.com", "Password2")
	if !errors.Is(err, common.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignIn_Success_TokensResolveIdentity(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newTestUserService(t, db, &fakeRepoManager{})
	hash, err := s.hasher.Hash("Password1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	user := &models.User{ID: 7, PasswordHash: models.PasswordHash(hash), RefreshSecret: uuid.New()}
	rm := &fakeRepoManager{u: &fakeUsersRepo{byEmail: user}}
	s = newTestUserService(t, db, rm)

	pair, err := s.SignIn(context.Background(), "alice@example.com", "Password1")
	if err != nil {
		t.Fatalf("SignIn error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("empty tokens: %+v", pair)
	}

	rowID, err := s.Authenticate(pair.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if rowID != 7 {
		t.Fatalf("row id = %d, want 7", rowID)
	}
}

func TestAuthenticate_RejectsRefreshToken(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newTestUserService(t, db, &fakeRepoManager{})
	hash, err := s.hasher.Hash("Password1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	user := &models.User{ID: 7, PasswordHash: models.PasswordHash(hash), RefreshSecret: uuid.New()}
	rm := &fakeRepoManager{u: &fakeUsersRepo{byEmail: user}}
	s = newTestUserService(t, db, rm)

	pair, err := s.SignIn(context.Background(), "alice@example.com", "Password1")
	if err != nil {
		t.Fatalf("SignIn error: %v", err)
	}

	if _, err := s.Authenticate(pair.RefreshToken); !errors.Is(err, common.ErrLoggedOff) {
		t.Fatalf("expected ErrLoggedOff for a refresh token, got %v", err)
	}
}

func TestRefresh_GarbageToken(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newTestUserService(t, db, &fakeRepoManager{u: &fakeUsersRepo{}})
	if _, err := s.Refresh(context.Background(), "not-a-jwt"); !errors.Is(err, common.ErrLoggedOff) {
		t.Fatalf("expected ErrLoggedOff, got %v", err)
	}
}

func TestRefresh_UnknownSecret(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newTestUserService(t, db, &fakeRepoManager{})
	hash, err := s.hasher.Hash("Password1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	user := &models.User{ID: 7, PasswordHash: models.PasswordHash(hash), RefreshSecret: uuid.New()}
	rm := &fakeRepoManager{u: &fakeUsersRepo{byEmail: user, bySecretErr: common.ErrNotFound}}
	s = newTestUserService(t, db, rm)

	pair, err := s.SignIn(context.Background(), "alice@example.com", "Password1")
	if err != nil {
		t.Fatalf("SignIn error: %v", err)
	}

	if _, err := s.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, common.ErrLoggedOff) {
		t.Fatalf("expected ErrLoggedOff, got %v", err)
	}
}

func TestRefresh_MintsNewPairOverSameSecret(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newTestUserService(t, db, &fakeRepoManager{})
	hash, err := s.hasher.Hash("Password1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	user := &models.User{ID: 7, PasswordHash: models.PasswordHash(hash), RefreshSecret: uuid.New()}
	rm := &fakeRepoManager{u: &fakeUsersRepo{byEmail: user, bySecret: user}}
	s = newTestUserService(t, db, rm)

	pair, err := s.SignIn(context.Background(), "alice@example.com", "Password1")
	if err != nil {
		t.Fatalf("SignIn error: %v", err)
	}

	fresh, err := s.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if fresh.AccessToken == "" || fresh.RefreshToken == "" {
		t.Fatalf("empty tokens: %+v", fresh)
	}
	rowID, err := s.Authenticate(fresh.AccessToken)
	if err != nil || rowID != 7 {
		t.Fatalf("new access token does not resolve: id=%d err=%v", rowID, err)
	}
}

func TestCheckPermission_ThreeWay(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	isAdmin := func(r models.Role) bool { return r == models.RoleAdministrator }

	t.Run("allowed", func(t *testing.T) {
		rm := &fakeRepoManager{u: &fakeUsersRepo{role: models.RoleAdministrator}}
		s := newTestUserService(t, db, rm)
		if err := s.CheckPermission(context.Background(), 7, isAdmin); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("wrong role", func(t *testing.T) {
		rm := &fakeRepoManager{u: &fakeUsersRepo{role: models.RoleClient}}
		s := newTestUserService(t, db, rm)
		if err := s.CheckPermission(context.Background(), 7, isAdmin); !errors.Is(err, common.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("account gone", func(t *testing.T) {
		rm := &fakeRepoManager{u: &fakeUsersRepo{roleErr: common.ErrNotFound}}
		s := newTestUserService(t, db, rm)
		if err := s.CheckPermission(context.Background(), 7, isAdmin); !errors.Is(err, common.ErrLoggedOff) {
			t.Fatalf("expected ErrLoggedOff, got %v", err)
		}
	})
}

func TestGet_ReturnsOpaqueID(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{getOut: &models.User{ID: 7, Name: "Alice", Email: "alice@example.com"}}}
	s := newTestUserService(t, db, rm)

	view, err := s.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if view.Name != "Alice" || view.Email != "alice@example.com" {
		t.Fatalf("unexpected view: %+v", view)
	}
	rowID, err := view.ID.RowID(s.codec)
	if err != nil || rowID != 7 {
		t.Fatalf("opaque id does not decode back: id=%d err=%v", rowID, err)
	}
}

func TestUpdateName_Validates(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{}}
	s := newTestUserService(t, db, rm)

	if err := s.UpdateName(context.Background(), 7, strings.Repeat("x", 51)); !common.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := s.UpdateName(context.Background(), 7, "Alice B."); err != nil {
		t.Fatalf("UpdateName error: %v", err)
	}
	if rm.u.renamedTo != "Alice B." {
		t.Fatalf("rename not forwarded: %q", rm.u.renamedTo)
	}
}
