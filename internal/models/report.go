package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrialBalanceRow is the 4-column projection for one chart node: beginning
// balance, period debit, period credit, ending balance. Beginning and
// ending are signed by the class's natural direction; formatting for
// display never touches these values.
type TrialBalanceRow struct {
	Number    string          `json:"number"`
	Name      string          `json:"name"`
	Class     AccountClass    `json:"class"`
	Level     int             `json:"level"`
	Beginning decimal.Decimal `json:"beginning"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Ending    decimal.Decimal `json:"ending"`
}

// TrialBalanceRow6 is the 6-column layout: the signed beginning and ending
// balances split into debit/credit columns by sign.
type TrialBalanceRow6 struct {
	Number          string          `json:"number"`
	Name            string          `json:"name"`
	Class           AccountClass    `json:"class"`
	Level           int             `json:"level"`
	BeginningDebit  decimal.Decimal `json:"beginning_debit"`
	BeginningCredit decimal.Decimal `json:"beginning_credit"`
	Debit           decimal.Decimal `json:"debit"`
	Credit          decimal.Decimal `json:"credit"`
	EndingDebit     decimal.Decimal `json:"ending_debit"`
	EndingCredit    decimal.Decimal `json:"ending_credit"`
}

// TrialBalance is a full report over one scope and date window.
type TrialBalance struct {
	BankID      string            `json:"bank_id"`
	BranchID    string            `json:"branch_id,omitempty"`
	From        time.Time         `json:"from"`
	To          time.Time         `json:"to"`
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
}

// TrialBalance6 is the 6-column variant.
type TrialBalance6 struct {
	BankID   string             `json:"bank_id"`
	BranchID string             `json:"branch_id,omitempty"`
	From     time.Time          `json:"from"`
	To       time.Time          `json:"to"`
	Rows     []TrialBalanceRow6 `json:"rows"`
}

// GeneralLedgerLine is one movement in an account's history with the
// running balance after it.
type GeneralLedgerLine struct {
	Entry   AccountingEntry `json:"entry"`
	Running decimal.Decimal `json:"running"`
}

// GeneralLedger lists an account's movements over a window.
type GeneralLedger struct {
	Account Account             `json:"account"`
	From    time.Time           `json:"from"`
	To      time.Time           `json:"to"`
	Opening decimal.Decimal     `json:"opening"`
	Closing decimal.Decimal     `json:"closing"`
	Lines   []GeneralLedgerLine `json:"lines"`
}

// BalanceSheet is the class-level rollup at a point in time.
type BalanceSheet struct {
	BankID           string          `json:"bank_id"`
	BranchID         string          `json:"branch_id,omitempty"`
	AsOf             time.Time       `json:"as_of"`
	TotalAssets      decimal.Decimal `json:"total_assets"`
	TotalLiabilities decimal.Decimal `json:"total_liabilities"`
	TotalEquity      decimal.Decimal `json:"total_equity"`
	TotalIncome      decimal.Decimal `json:"total_income"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
}

// ReconciliationReport verifies every transaction in a period balances.
type ReconciliationReport struct {
	ID                string          `json:"id"`
	From              time.Time       `json:"from"`
	To                time.Time       `json:"to"`
	TotalTransactions int             `json:"total_transactions"`
	TotalDebits       decimal.Decimal `json:"total_debits"`
	TotalCredits      decimal.Decimal `json:"total_credits"`
	IsBalanced        bool            `json:"is_balanced"`
	Discrepancies     []string        `json:"discrepancies"`
	CreatedAt         time.Time       `json:"created_at"`
}

// FormatBalance renders a signed balance for display as a direction letter
// plus the absolute value, e.g. "C 1000.00". Presentation only; the signed
// decimal stays untouched.
func FormatBalance(class AccountClass, balance decimal.Decimal, scale int32) string {
	dir := NaturalDirection(class)
	if balance.IsNegative() {
		dir = dir.Opposite()
	}
	letter := "D"
	if dir == DirectionCredit {
		letter = "C"
	}
	return letter + " " + balance.Abs().StringFixed(scale)
}
