package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"accounting-engine/internal/models"
)

// ChartStore persists the chart-of-account taxonomy.
type ChartStore interface {
	SaveChartAccount(ctx context.Context, account models.ChartOfAccount) error
	GetChartAccount(ctx context.Context, number string) (models.ChartOfAccount, error)
	ListChartAccounts(ctx context.Context) ([]models.ChartOfAccount, error)
	SoftDeleteChartAccount(ctx context.Context, number string) error
}

// RuleStore persists accounting rules and their entries.
type RuleStore interface {
	SaveRule(ctx context.Context, rule models.AccountingRule) error
	GetRuleByEventCode(ctx context.Context, eventCode string) (models.AccountingRule, error)
	ListRules(ctx context.Context) ([]models.AccountingRule, error)
	SoftDeleteRule(ctx context.Context, id string) error
}

// LedgerStore is the durable, append-mostly store of account instances,
// posted entries and running balances. CommitPosting and CommitReversal are
// all-or-nothing: on any failure no entry is persisted and no balance moves.
type LedgerStore interface {
	// FindAccount returns the instance for an exact (scope, number) pair,
	// or a KindNotFound error.
	FindAccount(ctx context.Context, scope models.Scope, number string) (models.Account, error)
	// FindOrCreateAccount atomically returns the existing instance or
	// creates the given one. Concurrent calls for the same (scope, number)
	// must yield a single instance.
	FindOrCreateAccount(ctx context.Context, account models.Account) (models.Account, error)
	GetAccount(ctx context.Context, id string) (models.Account, error)
	AccountsInScope(ctx context.Context, bankID, branchID string) ([]models.Account, error)

	// CommitPosting writes all entries and applies the signed balance
	// deltas in one transaction. A reference that already has Posted
	// entries fails with KindDuplicate.
	CommitPosting(ctx context.Context, reference string, entries []models.AccountingEntry, deltas map[string]decimal.Decimal) error
	// CommitReversal writes the mirror entries, applies deltas, and marks
	// every Posted entry of originalRef as Reversed, atomically.
	CommitReversal(ctx context.Context, originalRef string, entries []models.AccountingEntry, deltas map[string]decimal.Decimal) error

	EntriesByReference(ctx context.Context, reference string) ([]models.AccountingEntry, error)
	EntriesByAccount(ctx context.Context, accountID string, from, to time.Time) ([]models.AccountingEntry, error)
	EntriesInPeriod(ctx context.Context, bankID, branchID string, from, to time.Time) ([]models.AccountingEntry, error)
}
