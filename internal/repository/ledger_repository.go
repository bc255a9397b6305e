package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"accounting-engine/internal/apperrors"
	"accounting-engine/internal/models"
)

// LedgerRepository is the durable ledger store. Postings and reversals run
// inside one database transaction; balance rows are locked FOR UPDATE so
// concurrent commits against the same account serialize instead of losing
// increments.
type LedgerRepository struct {
	db *sql.DB
}

// NewLedgerRepository creates a LedgerRepository.
func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Migrate applies the schema.
func (r *LedgerRepository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, Schema)
	return err
}

const accountColumns = `
	id, bank_id, branch_id, product_id, number, name, class,
	balance, default_direction, created_at, updated_at
`

func scanAccount(row interface{ Scan(...interface{}) error }) (models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID, &a.Scope.BankID, &a.Scope.BranchID, &a.Scope.ProductID,
		&a.Number, &a.Name, &a.Class, &a.Balance, &a.DefaultDirection,
		&a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

func (r *LedgerRepository) FindAccount(ctx context.Context, scope models.Scope, number string) (models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE bank_id = $1 AND branch_id = $2 AND product_id = $3 AND number = $4
	`
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, scope.BankID, scope.BranchID, scope.ProductID, number))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, apperrors.Newf(apperrors.KindNotFound, "account %s not found in scope", number)
	}
	return a, err
}

// FindOrCreateAccount inserts the instance and falls back to the existing
// row when another caller won the race; the unique scope index makes the
// pair atomic.
func (r *LedgerRepository) FindOrCreateAccount(ctx context.Context, account models.Account) (models.Account, error) {
	insert := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (bank_id, branch_id, product_id, number) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, insert,
		account.ID, account.Scope.BankID, account.Scope.BranchID, account.Scope.ProductID,
		account.Number, account.Name, account.Class, account.Balance, account.DefaultDirection,
		account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return models.Account{}, err
	}
	return r.FindAccount(ctx, account.Scope, account.Number)
}

func (r *LedgerRepository) GetAccount(ctx context.Context, id string) (models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, apperrors.Newf(apperrors.KindNotFound, "account %s not found", id)
	}
	return a, err
}

func (r *LedgerRepository) AccountsInScope(ctx context.Context, bankID, branchID string) ([]models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE bank_id = $1 AND ($2 = '' OR branch_id = $2)
		ORDER BY number ASC
	`
	rows, err := r.db.QueryContext(ctx, query, bankID, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *LedgerRepository) CommitPosting(ctx context.Context, reference string, entries []models.AccountingEntry, deltas map[string]decimal.Decimal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return translatePQ(err)
	}
	defer tx.Rollback()

	var posted bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounting_entries WHERE reference = $1 AND status = $2)`,
		reference, models.StatusPosted,
	).Scan(&posted)
	if err != nil {
		return translatePQ(err)
	}
	if posted {
		return apperrors.Newf(apperrors.KindDuplicate, "reference %q already posted", reference)
	}

	if err := insertEntries(ctx, tx, entries); err != nil {
		return translatePQ(err)
	}
	if err := applyDeltas(ctx, tx, deltas); err != nil {
		return err
	}
	return translatePQ(tx.Commit())
}

func (r *LedgerRepository) CommitReversal(ctx context.Context, originalRef string, entries []models.AccountingEntry, deltas map[string]decimal.Decimal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return translatePQ(err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE accounting_entries SET status = $1 WHERE reference = $2 AND status = $3`,
		models.StatusReversed, originalRef, models.StatusPosted,
	)
	if err != nil {
		return translatePQ(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.Newf(apperrors.KindAlreadyReversed, "reference %q has no posted entries", originalRef)
	}

	if err := insertEntries(ctx, tx, entries); err != nil {
		return translatePQ(err)
	}
	if err := applyDeltas(ctx, tx, deltas); err != nil {
		return err
	}
	return translatePQ(tx.Commit())
}

func insertEntries(ctx context.Context, tx *sql.Tx, entries []models.AccountingEntry) error {
	query := `
		INSERT INTO accounting_entries (
			id, account_id, number, class, bank_id, branch_id, product_id,
			amount, direction, reference, reversal_of, event_code, attribute,
			upstream_ref, value_date, accounting_date, status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	for _, e := range entries {
		_, err := tx.ExecContext(ctx, query,
			e.ID, e.AccountID, e.Number, e.Class,
			e.Scope.BankID, e.Scope.BranchID, e.Scope.ProductID,
			e.Amount, e.Direction, e.Reference, e.ReversalOf, e.EventCode, e.Attribute,
			e.UpstreamRef, e.ValueDate, e.AccountingDate, e.Status, e.CreatedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// applyDeltas locks each balance row before updating so increments from
// concurrent transactions never overwrite each other.
func applyDeltas(ctx context.Context, tx *sql.Tx, deltas map[string]decimal.Decimal) error {
	now := time.Now().UTC()
	for id, delta := range deltas {
		var current decimal.Decimal
		err := tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.Newf(apperrors.KindStorage, "balance update for unknown account %s", id)
		}
		if err != nil {
			return translatePQ(err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE accounts SET balance = $1, updated_at = $2 WHERE id = $3`,
			current.Add(delta), now, id,
		)
		if err != nil {
			return translatePQ(err)
		}
	}
	return nil
}

const entryColumns = `
	id, account_id, number, class, bank_id, branch_id, product_id,
	amount, direction, reference, reversal_of, event_code, attribute,
	upstream_ref, value_date, accounting_date, status, created_at
`

func scanEntries(rows *sql.Rows) ([]models.AccountingEntry, error) {
	defer rows.Close()
	var entries []models.AccountingEntry
	for rows.Next() {
		var e models.AccountingEntry
		err := rows.Scan(
			&e.ID, &e.AccountID, &e.Number, &e.Class,
			&e.Scope.BankID, &e.Scope.BranchID, &e.Scope.ProductID,
			&e.Amount, &e.Direction, &e.Reference, &e.ReversalOf, &e.EventCode, &e.Attribute,
			&e.UpstreamRef, &e.ValueDate, &e.AccountingDate, &e.Status, &e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *LedgerRepository) EntriesByReference(ctx context.Context, reference string) ([]models.AccountingEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM accounting_entries
		WHERE reference = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, reference)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func (r *LedgerRepository) EntriesByAccount(ctx context.Context, accountID string, from, to time.Time) ([]models.AccountingEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM accounting_entries
		WHERE account_id = $1
		  AND ($2::timestamptz IS NULL OR accounting_date >= $2)
		  AND accounting_date <= $3
		ORDER BY accounting_date ASC, created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, accountID, nullableTime(from), to)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func (r *LedgerRepository) EntriesInPeriod(ctx context.Context, bankID, branchID string, from, to time.Time) ([]models.AccountingEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM accounting_entries
		WHERE bank_id = $1
		  AND ($2 = '' OR branch_id = $2)
		  AND ($3::timestamptz IS NULL OR accounting_date >= $3)
		  AND accounting_date <= $4
		ORDER BY accounting_date ASC, created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, bankID, branchID, nullableTime(from), to)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

// translatePQ maps serialization failures and deadlocks to the transient
// conflict kind so the posting service can retry them.
func translatePQ(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01":
			return apperrors.Wrap(apperrors.KindConflict, "transaction conflict", err)
		}
	}
	return err
}
