package books

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/sstoianov/liblend/internal/common"
	"github.com/sstoianov/liblend/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestGet_ScopedToLibrary(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "year", "name", "genre", "author"}).
		AddRow(int64(10), int16(1998), "Perdido Street Station", "fantasy", "China Miéville")
	mock.ExpectQuery(`(?s)SELECT.*FROM\s+books\s+WHERE\s+id\s+=\s+\$1\s+AND\s+library_id\s+=\s+\$2`).
		WithArgs(int64(10), int64(3)).
		WillReturnRows(rows)

	b, err := repo.Get(context.Background(), 3, 10)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if b.ID != 10 || b.LibraryID != 3 || b.Year != 1998 {
		t.Fatalf("unexpected book: %+v", b)
	}

	// same book id under another library must be invisible
	mock.ExpectQuery(`(?s)SELECT.*FROM\s+books`).
		WithArgs(int64(10), int64(4)).
		WillReturnError(sql.ErrNoRows)

	_, err = repo.Get(context.Background(), 4, 10)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFind_ReturnsLibraryID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "year", "name", "genre", "author", "library_id"}).
		AddRow(int64(10), int16(1998), "Perdido Street Station", "fantasy", "China Miéville", int64(3))
	mock.ExpectQuery(`(?s)SELECT.*library_id\s+FROM\s+books\s+WHERE\s+id\s+=\s+\$1`).
		WithArgs(int64(10)).
		WillReturnRows(rows)

	b, err := repo.Find(context.Background(), 10)
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	if b.LibraryID != 3 {
		t.Fatalf("unexpected book: %+v", b)
	}
}

func TestInsert(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+books`).
		WithArgs(int16(2001), "Kalpa Imperial", "fantasy", "Angélica Gorodischer", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	b := &models.Book{LibraryID: 3, Year: 2001, Name: "Kalpa Imperial", Genre: "fantasy", Author: "Angélica Gorodischer"}
	if err := repo.Insert(context.Background(), b); err != nil {
		t.Fatalf("Insert error: %v", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)DELETE\s+FROM\s+books`).
		WithArgs(int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 12)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
