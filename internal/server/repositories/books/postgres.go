package books

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sstoianov/liblend/internal/common"
	"github.com/sstoianov/liblend/internal/dbx"
	"github.com/sstoianov/liblend/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, book *models.Book) error {
	query := `
		INSERT INTO books (year, name, genre, author, library_id)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		book.Year, book.Name, book.Genre, book.Author, book.LibraryID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByLibrary(ctx context.Context, libraryID int64) ([]models.Book, error) {
	query := `
		SELECT id, year, name, genre, author
		FROM books
		WHERE library_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, libraryID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Book
	for rows.Next() {
		b := models.Book{LibraryID: libraryID}
		if err := rows.Scan(&b.ID, &b.Year, &b.Name, &b.Genre, &b.Author); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Find(ctx context.Context, bookID int64) (*models.Book, error) {
	query := `
		SELECT id, year, name, genre, author, library_id
		FROM books
		WHERE id = $1
	`
	b := &models.Book{}
	err := r.db.QueryRowContext(ctx, query, bookID).
		Scan(&b.ID, &b.Year, &b.Name, &b.Genre, &b.Author, &b.LibraryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) Get(ctx context.Context, libraryID, bookID int64) (*models.Book, error) {
	query := `
		SELECT id, year, name, genre, author
		FROM books
		WHERE id = $1
		  AND library_id = $2
	`
	b := &models.Book{LibraryID: libraryID}
	err := r.db.QueryRowContext(ctx, query, bookID, libraryID).
		Scan(&b.ID, &b.Year, &b.Name, &b.Genre, &b.Author)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) Update(ctx context.Context, book *models.Book) error {
	query := `
		UPDATE books
		SET year = $1, name = $2, genre = $3, author = $4
		WHERE id = $5
	`
	res, err := r.db.ExecContext(ctx, query,
		book.Year, book.Name, book.Genre, book.Author, book.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, bookID int64) error {
	query := `
		DELETE FROM books
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, bookID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}
