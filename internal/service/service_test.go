package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"accounting-engine/internal/models"
	"accounting-engine/internal/repository/memory"
)

// engine bundles the wired services over a fresh in-memory store.
type engine struct {
	store    *memory.Store
	chart    *ChartService
	rules    *RuleService
	postings *PostingService
	reports  *ReportingService
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	store := memory.NewStore()
	log := zap.NewNop()

	chart := NewChartService(store, log)
	require.NoError(t, chart.Seed(context.Background()))

	rules := NewRuleService(store, store, log)
	reports := NewReportingService(store, chart, nil, 0, log)
	postings := NewPostingService(store, rules, store, nil, log, 2, 3)

	return &engine{store: store, chart: chart, rules: rules, postings: postings, reports: reports}
}

// depositRule routes Principal to teller cash against saving deposits, and
// Fee to teller cash against fee income.
func (e *engine) saveDepositRule(t *testing.T) models.AccountingRule {
	t.Helper()
	rule, err := e.rules.SaveRule(context.Background(), models.AccountingRule{
		EventCode: "deposit@Saving_Account",
		Name:      "Saving deposit",
		Entries: []models.AccountingRuleEntry{
			{Role: models.RoleDeterminant, Attribute: "Principal", Number: "1011", Position: 0},
			{Role: models.RoleBalancing, Attribute: "Principal", Number: "221", Position: 1},
			{Role: models.RoleDeterminant, Attribute: "Fee", Number: "1011", Position: 2},
			{Role: models.RoleBalancing, Attribute: "Fee", Number: "411", Position: 3},
		},
	})
	require.NoError(t, err)
	return rule
}

func branchScope() models.Scope {
	return models.Scope{BankID: "BNK1", BranchID: "B1"}
}

func depositRequest(reference string, principal, fee int64) models.PostingRequest {
	lines := []models.AmountLine{
		{Attribute: "Principal", Amount: decimal.NewFromInt(principal)},
	}
	if fee > 0 {
		lines = append(lines, models.AmountLine{Attribute: "Fee", Amount: decimal.NewFromInt(fee)})
	}
	return models.PostingRequest{
		EventCode:      "deposit@Saving_Account",
		Scope:          branchScope(),
		Lines:          lines,
		Reference:      reference,
		AccountingDate: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		Actor:          "teller-7",
	}
}

func (e *engine) balanceOf(t *testing.T, number string) decimal.Decimal {
	t.Helper()
	account, err := e.store.FindAccount(context.Background(), branchScope(), number)
	require.NoError(t, err)
	return account.Balance
}

func countLedgerEntries(t *testing.T, e *engine) int {
	t.Helper()
	entries, err := e.store.EntriesInPeriod(context.Background(), "BNK1", "", time.Time{}, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return len(entries)
}

func requireDecimalEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, got.Equal(decimal.RequireFromString(want)), "want %s, got %s", want, got)
}

// hasPrefixRef reports whether the reference carries the reversal prefix.
func hasPrefixRef(ref string) bool {
	return strings.HasPrefix(ref, "REV-")
}
