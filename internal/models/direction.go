package models

import "github.com/shopspring/decimal"

// debitIncreases records, per account class, whether a debit grows the
// balance. Assets and expenses grow on debit; liabilities, income and
// equity grow on credit.
var debitIncreases = map[AccountClass]bool{
	ClassAsset:     true,
	ClassExpense:   true,
	ClassLiability: false,
	ClassIncome:    false,
	ClassEquity:    false,
}

// NaturalDirection returns the direction that increases an account of the
// given class.
func NaturalDirection(class AccountClass) Direction {
	if debitIncreases[class] {
		return DirectionDebit
	}
	return DirectionCredit
}

// SignedAmount converts an entry amount into the signed delta to apply to
// an account's running balance, driven off the account class table rather
// than per-account special cases.
func SignedAmount(class AccountClass, dir Direction, amount decimal.Decimal) decimal.Decimal {
	if (dir == DirectionDebit) == debitIncreases[class] {
		return amount
	}
	return amount.Neg()
}
