// Package memory implements the engine's storage ports in process memory
// behind one mutex. It backs tests and single-node deployments; the
// Postgres repositories in the parent package are the durable option.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"accounting-engine/internal/apperrors"
	"accounting-engine/internal/models"
)

type scopeKey struct {
	bankID    string
	branchID  string
	productID string
	number    string
}

// Store holds chart rows, rules, account instances and posted entries.
// The single mutex makes every commit atomic and serializes balance
// updates, so concurrent postings cannot lose increments.
type Store struct {
	mu       sync.RWMutex
	chart    map[string]models.ChartOfAccount
	rules    map[string]models.AccountingRule // by event code
	accounts map[string]models.Account        // by id
	byScope  map[scopeKey]string              // (scope, number) -> account id
	entries  []models.AccountingEntry
	byRef    map[string][]int // reference -> entry indices
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		chart:    make(map[string]models.ChartOfAccount),
		rules:    make(map[string]models.AccountingRule),
		accounts: make(map[string]models.Account),
		byScope:  make(map[scopeKey]string),
		byRef:    make(map[string][]int),
	}
}

// --- ChartStore ---

func (s *Store) SaveChartAccount(_ context.Context, account models.ChartOfAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chart[account.Number] = account
	return nil
}

func (s *Store) GetChartAccount(_ context.Context, number string) (models.ChartOfAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.chart[number]
	if !ok {
		return models.ChartOfAccount{}, apperrors.Newf(apperrors.KindNotFound, "chart account %s not found", number)
	}
	return a, nil
}

func (s *Store) ListChartAccounts(_ context.Context) ([]models.ChartOfAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ChartOfAccount, 0, len(s.chart))
	for _, a := range s.chart {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *Store) SoftDeleteChartAccount(_ context.Context, number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.chart[number]
	if !ok {
		return apperrors.Newf(apperrors.KindNotFound, "chart account %s not found", number)
	}
	a.Deleted = true
	a.UpdatedAt = time.Now().UTC()
	s.chart[number] = a
	return nil
}

// --- RuleStore ---

func (s *Store) SaveRule(_ context.Context, rule models.AccountingRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.EventCode] = rule
	return nil
}

func (s *Store) GetRuleByEventCode(_ context.Context, eventCode string) (models.AccountingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[eventCode]
	if !ok {
		return models.AccountingRule{}, apperrors.Newf(apperrors.KindNotFound, "rule for %q not found", eventCode)
	}
	return r, nil
}

func (s *Store) ListRules(_ context.Context) ([]models.AccountingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AccountingRule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventCode < out[j].EventCode })
	return out, nil
}

func (s *Store) SoftDeleteRule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for code, r := range s.rules {
		if r.ID == id {
			r.Deleted = true
			r.UpdatedAt = time.Now().UTC()
			s.rules[code] = r
			return nil
		}
	}
	return apperrors.Newf(apperrors.KindNotFound, "rule %s not found", id)
}

// --- LedgerStore ---

func key(scope models.Scope, number string) scopeKey {
	return scopeKey{bankID: scope.BankID, branchID: scope.BranchID, productID: scope.ProductID, number: number}
}

func (s *Store) FindAccount(_ context.Context, scope models.Scope, number string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byScope[key(scope, number)]
	if !ok {
		return models.Account{}, apperrors.Newf(apperrors.KindNotFound, "account %s not found in scope", number)
	}
	return s.accounts[id], nil
}

func (s *Store) FindOrCreateAccount(_ context.Context, account models.Account) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(account.Scope, account.Number)
	if id, ok := s.byScope[k]; ok {
		return s.accounts[id], nil
	}
	s.accounts[account.ID] = account
	s.byScope[k] = account.ID
	return account, nil
}

func (s *Store) GetAccount(_ context.Context, id string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return models.Account{}, apperrors.Newf(apperrors.KindNotFound, "account %s not found", id)
	}
	return a, nil
}

func (s *Store) AccountsInScope(_ context.Context, bankID, branchID string) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Account
	for _, a := range s.accounts {
		if a.Scope.BankID != bankID {
			continue
		}
		if branchID != "" && a.Scope.BranchID != branchID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *Store) CommitPosting(_ context.Context, reference string, entries []models.AccountingEntry, deltas map[string]decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, idx := range s.byRef[reference] {
		if s.entries[idx].Status == models.StatusPosted {
			return apperrors.Newf(apperrors.KindDuplicate, "reference %q already posted", reference)
		}
	}

	// Validate every delta target before mutating anything, so a bad
	// account id leaves the store untouched.
	for id := range deltas {
		if _, ok := s.accounts[id]; !ok {
			return apperrors.Newf(apperrors.KindStorage, "balance update for unknown account %s", id)
		}
	}

	for _, e := range entries {
		s.entries = append(s.entries, e)
		s.byRef[e.Reference] = append(s.byRef[e.Reference], len(s.entries)-1)
	}
	s.applyDeltas(deltas)
	return nil
}

func (s *Store) CommitReversal(_ context.Context, originalRef string, entries []models.AccountingEntry, deltas map[string]decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idxs := s.byRef[originalRef]
	var posted []int
	for _, idx := range idxs {
		if s.entries[idx].Status == models.StatusPosted {
			posted = append(posted, idx)
		}
	}
	if len(posted) == 0 {
		return apperrors.Newf(apperrors.KindAlreadyReversed, "reference %q has no posted entries", originalRef)
	}
	for id := range deltas {
		if _, ok := s.accounts[id]; !ok {
			return apperrors.Newf(apperrors.KindStorage, "balance update for unknown account %s", id)
		}
	}

	for _, idx := range posted {
		s.entries[idx].Status = models.StatusReversed
	}
	for _, e := range entries {
		s.entries = append(s.entries, e)
		s.byRef[e.Reference] = append(s.byRef[e.Reference], len(s.entries)-1)
	}
	s.applyDeltas(deltas)
	return nil
}

func (s *Store) applyDeltas(deltas map[string]decimal.Decimal) {
	now := time.Now().UTC()
	for id, delta := range deltas {
		a := s.accounts[id]
		a.Balance = a.Balance.Add(delta)
		a.UpdatedAt = now
		s.accounts[id] = a
	}
}

func (s *Store) EntriesByReference(_ context.Context, reference string) ([]models.AccountingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.AccountingEntry
	for _, idx := range s.byRef[reference] {
		out = append(out, s.entries[idx])
	}
	return out, nil
}

func (s *Store) EntriesByAccount(_ context.Context, accountID string, from, to time.Time) ([]models.AccountingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.AccountingEntry
	for _, e := range s.entries {
		if e.AccountID != accountID || !within(e.AccountingDate, from, to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) EntriesInPeriod(_ context.Context, bankID, branchID string, from, to time.Time) ([]models.AccountingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.AccountingEntry
	for _, e := range s.entries {
		if e.Scope.BankID != bankID || !within(e.AccountingDate, from, to) {
			continue
		}
		if branchID != "" && e.Scope.BranchID != branchID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// within treats a zero from as open-ended history and both bounds as
// inclusive.
func within(date, from, to time.Time) bool {
	if !from.IsZero() && date.Before(from) {
		return false
	}
	return !date.After(to)
}
