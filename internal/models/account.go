package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountClass is the top-level classification of a chart-of-account node.
type AccountClass string

const (
	ClassAsset     AccountClass = "asset"
	ClassLiability AccountClass = "liability"
	ClassIncome    AccountClass = "income"
	ClassExpense   AccountClass = "expense"
	ClassEquity    AccountClass = "equity"
)

// Valid reports whether c is one of the five recognized classes. The
// vocabulary is closed: balance arithmetic keys off it.
func (c AccountClass) Valid() bool {
	switch c {
	case ClassAsset, ClassLiability, ClassIncome, ClassExpense, ClassEquity:
		return true
	}
	return false
}

// Direction of a ledger entry.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// Opposite returns the flipped direction.
func (d Direction) Opposite() Direction {
	if d == DirectionDebit {
		return DirectionCredit
	}
	return DirectionDebit
}

// ChartOfAccount is one node in the account taxonomy. Hierarchy is encoded
// in the number itself: "1" -> "10" -> "100" -> "1001", each number's parent
// being its prefix one digit shorter.
type ChartOfAccount struct {
	Number    string       `json:"number" db:"number"`
	Name      string       `json:"name" db:"name"`
	Class     AccountClass `json:"class" db:"class"`
	Deleted   bool         `json:"deleted" db:"deleted"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}

// ParentNumber returns the number of the structural parent, or "" for a
// class root.
func (c ChartOfAccount) ParentNumber() string {
	if len(c.Number) <= 1 {
		return ""
	}
	return c.Number[:len(c.Number)-1]
}

// Scope pins an account instance to an organizational unit. BranchID may be
// empty for a bank-wide instance; ProductID doubles as the teller reference
// for till accounts.
type Scope struct {
	BankID    string `json:"bank_id" db:"bank_id"`
	BranchID  string `json:"branch_id" db:"branch_id"`
	ProductID string `json:"product_id" db:"product_id"`
}

// BankWide returns the same scope widened to the whole bank.
func (s Scope) BankWide() Scope {
	return Scope{BankID: s.BankID, ProductID: s.ProductID}
}

// Account is a concrete ledger account instance bound to one scope and one
// chart-of-account number, created lazily on first posting.
type Account struct {
	ID               string          `json:"id" db:"id"`
	Scope            Scope           `json:"scope"`
	Number           string          `json:"number" db:"number"`
	Name             string          `json:"name" db:"name"`
	Class            AccountClass    `json:"class" db:"class"`
	Balance          decimal.Decimal `json:"balance" db:"balance"`
	DefaultDirection Direction       `json:"default_direction" db:"default_direction"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}
