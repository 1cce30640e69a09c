package lendings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

func (r *PostgresRepository) Insert(ctx context.Context, lending *models.Lending) error {
	query := `
		INSERT INTO lendings (book_id, lendee_id, lent_on, due)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query,
		lending.BookID, lending.LendeeID, lending.LentOn, lending.Due)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindActiveByBook(ctx context.Context, bookID int64) (*models.Lending, error) {
	query := `
		SELECT id, book_id, lendee_id, lent_on, due
		FROM lendings
		WHERE book_id = $1
		  AND returned_on IS NULL
	`
	l := &models.Lending{}
	err := r.db.QueryRowContext(ctx, query, bookID).
		Scan(&l.ID, &l.BookID, &l.LendeeID, &l.LentOn, &l.Due)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) ListActiveByLibrary(ctx context.Context, libraryID int64) ([]ActiveLending, error) {
	query := `
		SELECT l.id, l.book_id, l.lendee_id, l.lent_on, l.due, b.name, u.name
		FROM lendings l
		JOIN books b ON b.id = l.book_id
		JOIN users u ON u.id = l.lendee_id
		WHERE b.library_id = $1
		  AND l.returned_on IS NULL
	`
	rows, err := r.db.QueryContext(ctx, query, libraryID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []ActiveLending
	for rows.Next() {
		var l ActiveLending
		if err := rows.Scan(&l.ID, &l.BookID, &l.LendeeID, &l.LentOn, &l.Due, &l.BookName, &l.LendeeName); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) SetReturned(ctx context.Context, bookID int64, returnedOn time.Time) error {
	query := `
		UPDATE lendings
		SET returned_on = $1
		WHERE book_id = $2
		  AND returned_on IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, returnedOn, bookID)
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
