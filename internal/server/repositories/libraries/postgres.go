package libraries

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

func (r *PostgresRepository) Insert(ctx context.Context, library *models.Library) error {
	query := `
		INSERT INTO libraries (name, address, daily_rate, overdue_rate, currency, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		library.Name, library.Address, library.DailyRate, library.OverdueRate,
		library.Currency, library.OwnerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.Library, error) {
	query := `
		SELECT id, name, address, daily_rate, overdue_rate, currency
		FROM libraries
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()
	return scanLibraries(rows)
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID int64) ([]models.Library, error) {
	query := `
		SELECT id, name, address, daily_rate, overdue_rate, currency
		FROM libraries
		WHERE owner_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()
	return scanLibraries(rows)
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Library, error) {
	query := `
		SELECT id, name, address, daily_rate, overdue_rate, currency, owner_id
		FROM libraries
		WHERE id = $1
	`
	l := &models.Library{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&l.ID, &l.Name, &l.Address, &l.DailyRate, &l.OverdueRate, &l.Currency, &l.OwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) Update(ctx context.Context, library *models.Library) error {
	query := `
		UPDATE libraries
		SET name = $1, address = $2, daily_rate = $3, overdue_rate = $4, currency = $5, owner_id = $6
		WHERE id = $7
	`
	res, err := r.db.ExecContext(ctx, query,
		library.Name, library.Address, library.DailyRate, library.OverdueRate,
		library.Currency, library.OwnerID, library.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireAffected(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	query := `
		DELETE FROM libraries
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireAffected(res)
}

func (r *PostgresRepository) CheckOwner(ctx context.Context, ownerID, libraryID int64) error {
	query := `
		SELECT 1
		FROM libraries
		WHERE id = $1
		  AND owner_id = $2
	`
	var one int
	if err := r.db.QueryRowContext(ctx, query, libraryID, ownerID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrUnauthorized
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Activity(ctx context.Context, libraryID int64) ([]int64, error) {
	// date subtraction yields whole days in Postgres
	query := `
		SELECT due - lent_on
		FROM lendings
		WHERE book_id IN (
		  SELECT id FROM books WHERE library_id = $1
		)
	`
	rows, err := r.db.QueryContext(ctx, query, libraryID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var days []int64
	for rows.Next() {
		var d int64
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return days, nil
}

func scanLibraries(rows *sql.Rows) ([]models.Library, error) {
	var result []models.Library
	for rows.Next() {
		var l models.Library
		if err := rows.Scan(&l.ID, &l.Name, &l.Address, &l.DailyRate, &l.OverdueRate, &l.Currency); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}
