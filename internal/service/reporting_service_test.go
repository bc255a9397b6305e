package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"accounting-engine/internal/models"
)

var (
	reportFrom = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	reportTo   = time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)
)

func rowByNumber(rows []models.TrialBalanceRow, number string) (models.TrialBalanceRow, bool) {
	for _, r := range rows {
		if r.Number == number {
			return r, true
		}
	}
	return models.TrialBalanceRow{}, false
}

func TestTrialBalanceAfterDeposit(t *testing.T) {
	e := newEngine(t)
	e.saveDepositRule(t)

	_, err := e.postings.Post(context.Background(), depositRequest("TXN-1", 10000, 500))
	require.NoError(t, err)

	report, err := e.reports.TrialBalance(context.Background(), "BNK1", "B1", reportFrom, reportTo)
	require.NoError(t, err)

	cash, ok := rowByNumber(report.Rows, "1011")
	require.True(t, ok)
	requireDecimalEqual(t, "10500", cash.Debit)
	requireDecimalEqual(t, "0", cash.Credit)
	requireDecimalEqual(t, "10500", cash.Ending)
	requireDecimalEqual(t, "0", cash.Beginning)

	saving, ok := rowByNumber(report.Rows, "221")
	require.True(t, ok)
	requireDecimalEqual(t, "10000", saving.Credit)
	requireDecimalEqual(t, "10000", saving.Ending)

	fee, ok := rowByNumber(report.Rows, "411")
	require.True(t, ok)
	requireDecimalEqual(t, "500", fee.Ending)

	requireDecimalEqual(t, "10500", report.TotalDebit)
	requireDecimalEqual(t, "10500", report.TotalCredit)
}

func TestTrialBalanceRollupInvariant(t *testing.T) {
	e := newEngine(t)
	e.saveDepositRule(t)

	_, err := e.postings.Post(context.Background(), depositRequest("TXN-1", 10000, 500))
	require.NoError(t, err)
	_, err = e.postings.Post(context.Background(), depositRequest("TXN-2", 2500, 0))
	require.NoError(t, err)

	report, err := e.reports.TrialBalance(context.Background(), "BNK1", "B1", reportFrom, reportTo)
	require.NoError(t, err)

	// Every non-leaf node's aggregate equals the sum of its immediate
	// children plus its own direct activity. Leaf accounts attach only at
	// leaf numbers here, so the parent total is exactly the child sum.
	rows := make(map[string]models.TrialBalanceRow, len(report.Rows))
	for _, r := range report.Rows {
		rows[r.Number] = r
	}
	for _, r := range report.Rows {
		var childEnding, childDebit decimal.Decimal
		hasChildren := false
		for _, c := range report.Rows {
			if len(c.Number) == len(r.Number)+1 && strings.HasPrefix(c.Number, r.Number) {
				hasChildren = true
				childEnding = childEnding.Add(c.Ending)
				childDebit = childDebit.Add(c.Debit)
			}
		}
		if !hasChildren {
			continue
		}
		require.True(t, r.Ending.Equal(childEnding), "node %s ending %s != children %s", r.Number, r.Ending, childEnding)
		require.True(t, r.Debit.Equal(childDebit), "node %s debit %s != children %s", r.Number, r.Debit, childDebit)
	}

	root, _ := rowByNumber(report.Rows, "1")
	requireDecimalEqual(t, "13000", root.Ending)
}

func TestTrialBalanceReversalRestoresPriorState(t *testing.T) {
	e := newEngine(t)
	e.saveDepositRule(t)

	_, err := e.postings.Post(context.Background(), depositRequest("TXN-1", 10000, 500))
	require.NoError(t, err)
	_, err = e.postings.Reverse(context.Background(), "TXN-1", "auditor-1")
	require.NoError(t, err)

	report, err := e.reports.TrialBalance(context.Background(), "BNK1", "B1", reportFrom, reportTo)
	require.NoError(t, err)

	for _, r := range report.Rows {
		require.True(t, r.Ending.IsZero(), "node %s should net to zero after reversal, got %s", r.Number, r.Ending)
	}
	// Period activity shows both the posting and its mirror.
	requireDecimalEqual(t, "21000", report.TotalDebit)
	requireDecimalEqual(t, "21000", report.TotalCredit)
}

func TestTrialBalanceBeginningBalance(t *testing.T) {
	e := newEngine(t)
	e.saveDepositRule(t)

	early := depositRequest("TXN-0", 1000, 0)
	early.AccountingDate = time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
	_, err := e.postings.Post(context.Background(), early)
	require.NoError(t, err)

	_, err = e.postings.Post(context.Background(), depositRequest("TXN-1", 500, 0))
	require.NoError(t, err)

	report, err := e.reports.TrialBalance(context.Background(), "BNK1", "B1", reportFrom, reportTo)
	require.NoError(t, err)

	cash, _ := rowByNumber(report.Rows, "1011")
	requireDecimalEqual(t, "1000", cash.Beginning)
	requireDecimalEqual(t, "500", cash.Debit)
	requireDecimalEqual(t, "1500", cash.Ending)
}

func TestTrialBalance6Columns(t *testing.T) {
	e := newEngine(t)
	e.saveDepositRule(t)

	_, err := e.postings.Post(context.Background(), depositRequest("TXN-1", 10000, 500))
	require.NoError(t, err)

	report, err := e.reports.TrialBalance6(context.Background(), "BNK1", "B1", reportFrom, reportTo)
	require.NoError(t, err)

	var cash, saving models.TrialBalanceRow6
	for _, r := range report.Rows {
		switch r.Number {
		case "1011":
			cash = r
		case "221":
			saving = r
		}
	}

	// Positive asset balance sits in the ending-debit column, positive
	// liability balance in the ending-credit column.
	requireDecimalEqual(t, "10500", cash.EndingDebit)
	require.True(t, cash.EndingCredit.IsZero())
	requireDecimalEqual(t, "10000", saving.EndingCredit)
	require.True(t, saving.EndingDebit.IsZero())
}

func TestBalanceSheet(t *testing.T) {
	e := newEngine(t)
	e.saveDepositRule(t)

	_, err := e.postings.Post(context.Background(), depositRequest("TXN-1", 10000, 500))
	require.NoError(t, err)

	sheet, err := e.reports.BalanceSheet(context.Background(), "BNK1", "B1", reportTo)
	require.NoError(t, err)

	requireDecimalEqual(t, "10500", sheet.TotalAssets)
	requireDecimalEqual(t, "10000", sheet.TotalLiabilities)
	requireDecimalEqual(t, "500", sheet.TotalIncome)
	require.True(t, sheet.TotalEquity.IsZero())
	require.True(t, sheet.TotalExpenses.IsZero())

	// Accounting identity at the class level.
	rhs := sheet.TotalLiabilities.Add(sheet.TotalEquity).Add(sheet.TotalIncome).Sub(sheet.TotalExpenses)
	require.True(t, sheet.TotalAssets.Equal(rhs))
}

func TestGeneralLedgerReplayMatchesBalance(t *testing.T) {
	e := newEngine(t)
	e.saveDepositRule(t)

	_, err := e.postings.Post(context.Background(), depositRequest("TXN-1", 10000, 500))
	require.NoError(t, err)
	_, err = e.postings.Post(context.Background(), depositRequest("TXN-2", 250, 0))
	require.NoError(t, err)

	account, err := e.store.FindAccount(context.Background(), branchScope(), "1011")
	require.NoError(t, err)

	ledger, err := e.reports.GeneralLedger(context.Background(), account.ID, reportFrom, reportTo)
	require.NoError(t, err)

	require.True(t, ledger.Closing.Equal(account.Balance),
		"replayed closing %s must match stored balance %s", ledger.Closing, account.Balance)
	require.Len(t, ledger.Lines, 3)
	requireDecimalEqual(t, "10750", ledger.Closing)
}

func TestAccountBalanceQuery(t *testing.T) {
	e := newEngine(t)
	e.saveDepositRule(t)

	_, err := e.postings.Post(context.Background(), depositRequest("TXN-1", 10000, 500))
	require.NoError(t, err)

	saved, err := e.store.FindAccount(context.Background(), branchScope(), "221")
	require.NoError(t, err)

	account, entries, err := e.reports.AccountBalance(context.Background(), saved.ID)
	require.NoError(t, err)
	requireDecimalEqual(t, "10000", account.Balance)
	require.Len(t, entries, 1)
}

func TestReconcileBalancedPeriod(t *testing.T) {
	e := newEngine(t)
	e.saveDepositRule(t)

	_, err := e.postings.Post(context.Background(), depositRequest("TXN-1", 10000, 500))
	require.NoError(t, err)
	_, err = e.postings.Reverse(context.Background(), "TXN-1", "auditor-1")
	require.NoError(t, err)

	report, err := e.reports.Reconcile(context.Background(), "BNK1", "B1", reportFrom, reportTo)
	require.NoError(t, err)

	require.True(t, report.IsBalanced)
	require.Empty(t, report.Discrepancies)
	require.Equal(t, 2, report.TotalTransactions)
	require.True(t, report.TotalDebits.Equal(report.TotalCredits))
}

// fakeCache is an in-process ReportCache for exercising the read-through
// and invalidation paths without Redis.
type fakeCache struct {
	mu   sync.Mutex
	data map[string]string
	hits int
}

func newFakeCache() *fakeCache { return &fakeCache{data: make(map[string]string)} }

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", context.Canceled
	}
	f.hits++
	return v, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value.(string)
	return nil
}

func (f *fakeCache) DeleteByPrefix(_ context.Context, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			delete(f.data, k)
		}
	}
	return nil
}

func TestTrialBalanceCacheRoundTrip(t *testing.T) {
	e := newEngine(t)
	e.saveDepositRule(t)
	cache := newFakeCache()
	e.reports = NewReportingService(e.store, e.chart, cache, time.Minute, zap.NewNop())

	_, err := e.postings.Post(context.Background(), depositRequest("TXN-1", 10000, 500))
	require.NoError(t, err)

	first, err := e.reports.TrialBalance(context.Background(), "BNK1", "B1", reportFrom, reportTo)
	require.NoError(t, err)
	second, err := e.reports.TrialBalance(context.Background(), "BNK1", "B1", reportFrom, reportTo)
	require.NoError(t, err)

	require.Equal(t, 1, cache.hits, "second read should come from cache")
	require.True(t, first.TotalDebit.Equal(second.TotalDebit))

	// Invalidation drops the cached payload for the bank.
	e.reports.InvalidateScope(context.Background(), "BNK1", "B1")
	require.Empty(t, cache.data)
}
