package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatBalance(t *testing.T) {
	tests := []struct {
		name    string
		class   AccountClass
		balance decimal.Decimal
		want    string
	}{
		{"positive asset", ClassAsset, decimal.NewFromInt(1000), "D 1000.00"},
		{"negative asset", ClassAsset, decimal.NewFromInt(-250), "C 250.00"},
		{"positive liability", ClassLiability, decimal.NewFromInt(1000), "C 1000.00"},
		{"negative liability", ClassLiability, decimal.NewFromInt(-1000), "D 1000.00"},
		{"zero income", ClassIncome, decimal.Zero, "C 0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatBalance(tt.class, tt.balance, 2); got != tt.want {
				t.Errorf("FormatBalance() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatBalanceDoesNotMutate(t *testing.T) {
	balance := decimal.NewFromInt(-42)
	FormatBalance(ClassAsset, balance, 2)
	if balance.String() != "-42" {
		t.Errorf("stored balance mutated to %s", balance)
	}
}
