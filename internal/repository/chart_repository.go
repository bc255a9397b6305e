package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"accounting-engine/internal/apperrors"
	"accounting-engine/internal/models"
)

// ChartRepository persists the chart of accounts in Postgres.
type ChartRepository struct {
	db *sql.DB
}

// NewChartRepository creates a ChartRepository.
func NewChartRepository(db *sql.DB) *ChartRepository {
	return &ChartRepository{db: db}
}

func (r *ChartRepository) SaveChartAccount(ctx context.Context, account models.ChartOfAccount) error {
	query := `
		INSERT INTO chart_of_accounts (number, name, class, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (number) DO UPDATE
		SET name = EXCLUDED.name, deleted = EXCLUDED.deleted, updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		account.Number,
		account.Name,
		account.Class,
		account.Deleted,
		account.CreatedAt,
		account.UpdatedAt,
	)
	return err
}

func (r *ChartRepository) GetChartAccount(ctx context.Context, number string) (models.ChartOfAccount, error) {
	query := `
		SELECT number, name, class, deleted, created_at, updated_at
		FROM chart_of_accounts
		WHERE number = $1
	`
	var a models.ChartOfAccount
	err := r.db.QueryRowContext(ctx, query, number).Scan(
		&a.Number, &a.Name, &a.Class, &a.Deleted, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChartOfAccount{}, apperrors.Newf(apperrors.KindNotFound, "chart account %s not found", number)
	}
	return a, err
}

func (r *ChartRepository) ListChartAccounts(ctx context.Context) ([]models.ChartOfAccount, error) {
	query := `
		SELECT number, name, class, deleted, created_at, updated_at
		FROM chart_of_accounts
		ORDER BY number ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.ChartOfAccount
	for rows.Next() {
		var a models.ChartOfAccount
		if err := rows.Scan(&a.Number, &a.Name, &a.Class, &a.Deleted, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *ChartRepository) SoftDeleteChartAccount(ctx context.Context, number string) error {
	query := `
		UPDATE chart_of_accounts
		SET deleted = TRUE, updated_at = $1
		WHERE number = $2
	`
	res, err := r.db.ExecContext(ctx, query, time.Now().UTC(), number)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.Newf(apperrors.KindNotFound, "chart account %s not found", number)
	}
	return nil
}
