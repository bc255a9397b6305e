package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"accounting-engine/internal/apperrors"
	"accounting-engine/internal/models"
)

// ReportCache stores serialized report payloads. pkg/redis.Client satisfies
// it; a nil cache disables caching.
type ReportCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// ReportingService computes trial balances, general ledgers, balance sheets
// and reconciliation reports. Read-only over the ledger; it may serve a
// slightly stale snapshot but never a half-written transaction.
type ReportingService struct {
	ledger LedgerStore
	chart  *ChartService
	cache  ReportCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewReportingService creates a ReportingService.
func NewReportingService(ledger LedgerStore, chart *ChartService, cache ReportCache, ttl time.Duration, logger *zap.Logger) *ReportingService {
	return &ReportingService{ledger: ledger, chart: chart, cache: cache, ttl: ttl, logger: logger}
}

// InvalidateScope drops every cached report for a bank after a posting or
// reversal lands. Bank-level reports include branch activity, so the whole
// bank prefix goes.
func (s *ReportingService) InvalidateScope(ctx context.Context, bankID, branchID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPrefix(ctx, "report:"+bankID+":"); err != nil {
		s.logger.Warn("report cache invalidation failed", zap.String("bank_id", bankID), zap.Error(err))
	}
}

// nodeTotals accumulates one chart node's aggregate during rollup.
type nodeTotals struct {
	beginning decimal.Decimal
	debit     decimal.Decimal
	credit    decimal.Decimal
	ending    decimal.Decimal
}

func (t nodeTotals) add(o nodeTotals) nodeTotals {
	return nodeTotals{
		beginning: t.beginning.Add(o.beginning),
		debit:     t.debit.Add(o.debit),
		credit:    t.credit.Add(o.credit),
		ending:    t.ending.Add(o.ending),
	}
}

// aggregate sums ledger entries for a scope into per-chart-number totals,
// then rolls them up the tree bottom-up. Cancelled entries never count;
// reversed originals stay in, offset by their mirrors.
func (s *ReportingService) aggregate(ctx context.Context, bankID, branchID string, from, to time.Time) (*models.ChartTree, map[string]nodeTotals, error) {
	tree, err := s.chart.Tree(ctx)
	if err != nil {
		return nil, nil, err
	}

	entries, err := s.ledger.EntriesInPeriod(ctx, bankID, branchID, time.Time{}, to)
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.KindStorage, "loading ledger entries", err)
	}

	own := make(map[string]nodeTotals)
	for _, e := range entries {
		if e.Status == models.StatusCancelled {
			continue
		}
		t := own[e.Number]
		signed := models.SignedAmount(e.Class, e.Direction, e.Amount)
		if e.AccountingDate.Before(from) {
			t.beginning = t.beginning.Add(signed)
		} else {
			if e.Direction == models.DirectionDebit {
				t.debit = t.debit.Add(e.Amount)
			} else {
				t.credit = t.credit.Add(e.Amount)
			}
		}
		t.ending = t.ending.Add(signed)
		own[e.Number] = t
	}

	// Roll up bottom-up so each node carries its own activity plus all of
	// its children's.
	rolled := make(map[string]nodeTotals, len(own))
	tree.Walk(func(n *models.ChartNode) {
		total := own[n.Account.Number]
		for _, c := range n.Children {
			total = total.add(rolled[c.Account.Number])
		}
		rolled[n.Account.Number] = total
	})

	if err := verifyRollup(tree, own, rolled); err != nil {
		return nil, nil, err
	}
	return tree, rolled, nil
}

// verifyRollup re-checks the hierarchy invariant: every node's rolled total
// equals its own activity plus the sum of its children's rolled totals.
func verifyRollup(tree *models.ChartTree, own, rolled map[string]nodeTotals) error {
	var bad string
	tree.Walk(func(n *models.ChartNode) {
		if bad != "" {
			return
		}
		want := own[n.Account.Number]
		for _, c := range n.Children {
			want = want.add(rolled[c.Account.Number])
		}
		got := rolled[n.Account.Number]
		if !got.beginning.Equal(want.beginning) || !got.debit.Equal(want.debit) ||
			!got.credit.Equal(want.credit) || !got.ending.Equal(want.ending) {
			bad = n.Account.Number
		}
	})
	if bad != "" {
		return apperrors.Newf(apperrors.KindStorage, "trial balance rollup broken at chart node %s", bad)
	}
	return nil
}

// TrialBalance computes the 4-column layout over [from, to] for a branch,
// or the whole bank when branchID is empty.
func (s *ReportingService) TrialBalance(ctx context.Context, bankID, branchID string, from, to time.Time) (models.TrialBalance, error) {
	key := cacheKey(bankID, branchID, "tb4", from, to)
	var cached models.TrialBalance
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	tree, rolled, err := s.aggregate(ctx, bankID, branchID, from, to)
	if err != nil {
		return models.TrialBalance{}, err
	}

	report := models.TrialBalance{
		BankID:      bankID,
		BranchID:    branchID,
		From:        from,
		To:          to,
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	tree.Walk(func(n *models.ChartNode) {
		t := rolled[n.Account.Number]
		report.Rows = append(report.Rows, models.TrialBalanceRow{
			Number:    n.Account.Number,
			Name:      n.Account.Name,
			Class:     n.Account.Class,
			Level:     n.Depth(),
			Beginning: t.beginning,
			Debit:     t.debit,
			Credit:    t.credit,
			Ending:    t.ending,
		})
	})
	sort.Slice(report.Rows, func(i, j int) bool { return report.Rows[i].Number < report.Rows[j].Number })

	for _, root := range tree.Roots() {
		t := rolled[root.Account.Number]
		report.TotalDebit = report.TotalDebit.Add(t.debit)
		report.TotalCredit = report.TotalCredit.Add(t.credit)
	}

	s.cacheSet(ctx, key, report)
	return report, nil
}

// TrialBalance6 computes the 6-column layout: signed beginning and ending
// balances split into debit/credit columns by the class's natural side.
func (s *ReportingService) TrialBalance6(ctx context.Context, bankID, branchID string, from, to time.Time) (models.TrialBalance6, error) {
	key := cacheKey(bankID, branchID, "tb6", from, to)
	var cached models.TrialBalance6
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	tree, rolled, err := s.aggregate(ctx, bankID, branchID, from, to)
	if err != nil {
		return models.TrialBalance6{}, err
	}

	report := models.TrialBalance6{BankID: bankID, BranchID: branchID, From: from, To: to}
	tree.Walk(func(n *models.ChartNode) {
		t := rolled[n.Account.Number]
		begDebit, begCredit := splitColumns(n.Account.Class, t.beginning)
		endDebit, endCredit := splitColumns(n.Account.Class, t.ending)
		report.Rows = append(report.Rows, models.TrialBalanceRow6{
			Number:          n.Account.Number,
			Name:            n.Account.Name,
			Class:           n.Account.Class,
			Level:           n.Depth(),
			BeginningDebit:  begDebit,
			BeginningCredit: begCredit,
			Debit:           t.debit,
			Credit:          t.credit,
			EndingDebit:     endDebit,
			EndingCredit:    endCredit,
		})
	})
	sort.Slice(report.Rows, func(i, j int) bool { return report.Rows[i].Number < report.Rows[j].Number })

	s.cacheSet(ctx, key, report)
	return report, nil
}

// splitColumns places a signed balance into the debit or credit column.
// A positive balance sits on the class's natural side, a negative one on
// the opposite side as an absolute value. The signed source value is not
// modified.
func splitColumns(class models.AccountClass, balance decimal.Decimal) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	if balance.IsZero() {
		return debit, credit
	}
	side := models.NaturalDirection(class)
	if balance.IsNegative() {
		side = side.Opposite()
	}
	if side == models.DirectionDebit {
		debit = balance.Abs()
	} else {
		credit = balance.Abs()
	}
	return debit, credit
}

// BalanceSheet evaluates the class-level rollups at a point in time.
func (s *ReportingService) BalanceSheet(ctx context.Context, bankID, branchID string, asOf time.Time) (models.BalanceSheet, error) {
	key := cacheKey(bankID, branchID, "bs", asOf, asOf)
	var cached models.BalanceSheet
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	tree, rolled, err := s.aggregate(ctx, bankID, branchID, asOf, asOf)
	if err != nil {
		return models.BalanceSheet{}, err
	}

	report := models.BalanceSheet{
		BankID:           bankID,
		BranchID:         branchID,
		AsOf:             asOf,
		TotalAssets:      decimal.Zero,
		TotalLiabilities: decimal.Zero,
		TotalEquity:      decimal.Zero,
		TotalIncome:      decimal.Zero,
		TotalExpenses:    decimal.Zero,
	}
	for _, root := range tree.Roots() {
		ending := rolled[root.Account.Number].ending
		switch root.Account.Class {
		case models.ClassAsset:
			report.TotalAssets = report.TotalAssets.Add(ending)
		case models.ClassLiability:
			report.TotalLiabilities = report.TotalLiabilities.Add(ending)
		case models.ClassEquity:
			report.TotalEquity = report.TotalEquity.Add(ending)
		case models.ClassIncome:
			report.TotalIncome = report.TotalIncome.Add(ending)
		case models.ClassExpense:
			report.TotalExpenses = report.TotalExpenses.Add(ending)
		}
	}

	s.cacheSet(ctx, key, report)
	return report, nil
}

// GeneralLedger lists one account's movements over a window with running
// balances, replaying history so the closing figure is independently
// verifiable against the stored balance.
func (s *ReportingService) GeneralLedger(ctx context.Context, accountID string, from, to time.Time) (models.GeneralLedger, error) {
	account, err := s.ledger.GetAccount(ctx, accountID)
	if err != nil {
		return models.GeneralLedger{}, err
	}

	all, err := s.ledger.EntriesByAccount(ctx, accountID, time.Time{}, to)
	if err != nil {
		return models.GeneralLedger{}, apperrors.Wrap(apperrors.KindStorage, "loading account entries", err)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

	report := models.GeneralLedger{Account: account, From: from, To: to, Opening: decimal.Zero}
	running := decimal.Zero
	for _, e := range all {
		if e.Status == models.StatusCancelled {
			continue
		}
		running = running.Add(models.SignedAmount(e.Class, e.Direction, e.Amount))
		if e.AccountingDate.Before(from) {
			report.Opening = running
			continue
		}
		report.Lines = append(report.Lines, models.GeneralLedgerLine{Entry: e, Running: running})
	}
	report.Closing = running
	return report, nil
}

// AccountBalance returns an account with its entry history.
func (s *ReportingService) AccountBalance(ctx context.Context, accountID string) (models.Account, []models.AccountingEntry, error) {
	account, err := s.ledger.GetAccount(ctx, accountID)
	if err != nil {
		return models.Account{}, nil, err
	}
	entries, err := s.ledger.EntriesByAccount(ctx, accountID, time.Time{}, time.Now().UTC())
	if err != nil {
		return models.Account{}, nil, apperrors.Wrap(apperrors.KindStorage, "loading account entries", err)
	}
	return account, entries, nil
}

// Reconcile scans a period and verifies every transaction reference
// balances on its own and that the period balances globally.
func (s *ReportingService) Reconcile(ctx context.Context, bankID, branchID string, from, to time.Time) (models.ReconciliationReport, error) {
	entries, err := s.ledger.EntriesInPeriod(ctx, bankID, branchID, from, to)
	if err != nil {
		return models.ReconciliationReport{}, apperrors.Wrap(apperrors.KindStorage, "loading ledger entries", err)
	}

	report := models.ReconciliationReport{
		ID:            uuid.NewString(),
		From:          from,
		To:            to,
		TotalDebits:   decimal.Zero,
		TotalCredits:  decimal.Zero,
		Discrepancies: []string{},
		CreatedAt:     time.Now().UTC(),
	}

	byRef := make(map[string][]models.AccountingEntry)
	for _, e := range entries {
		if e.Status == models.StatusCancelled {
			continue
		}
		byRef[e.Reference] = append(byRef[e.Reference], e)
	}
	report.TotalTransactions = len(byRef)

	refs := make([]string, 0, len(byRef))
	for ref := range byRef {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	for _, ref := range refs {
		refDebit, refCredit := decimal.Zero, decimal.Zero
		for _, e := range byRef[ref] {
			if e.Direction == models.DirectionDebit {
				refDebit = refDebit.Add(e.Amount)
				report.TotalDebits = report.TotalDebits.Add(e.Amount)
			} else {
				refCredit = refCredit.Add(e.Amount)
				report.TotalCredits = report.TotalCredits.Add(e.Amount)
			}
		}
		if !refDebit.Equal(refCredit) {
			report.Discrepancies = append(report.Discrepancies,
				fmt.Sprintf("transaction %s: debits %s != credits %s", ref, refDebit, refCredit))
		}
	}

	report.IsBalanced = len(report.Discrepancies) == 0 && report.TotalDebits.Equal(report.TotalCredits)
	if !report.IsBalanced {
		s.logger.Error("reconciliation found discrepancies",
			zap.String("bank_id", bankID),
			zap.Int("count", len(report.Discrepancies)))
	}
	return report, nil
}

func cacheKey(bankID, branchID, kind string, from, to time.Time) string {
	return fmt.Sprintf("report:%s:%s:%s:%d:%d", bankID, branchID, kind, from.Unix(), to.Unix())
}

func (s *ReportingService) cacheGet(ctx context.Context, key string, out interface{}) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(raw), out) == nil
}

func (s *ReportingService) cacheSet(ctx context.Context, key string, report interface{}) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.ttl); err != nil {
		s.logger.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
	}
}
