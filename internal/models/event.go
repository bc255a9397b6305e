package models

import (
	"fmt"
	"strings"
)

// OperationType is the closed vocabulary of business events the engine
// accepts. Deliberately constants, not mutable configuration.
type OperationType string

const (
	OpDeposit           OperationType = "deposit"
	OpWithdrawal        OperationType = "withdrawal"
	OpTransfer          OperationType = "transfer"
	OpLoanDisbursement  OperationType = "loan_disbursement"
	OpLoanRepayment     OperationType = "loan_repayment"
	OpFeeCollection     OperationType = "fee_collection"
	OpCashReplenishment OperationType = "cashreplenishment"
	OpReversal          OperationType = "reversal"
)

// OperationEvent declares the amount slots an operation may carry and the
// direction its determinant legs naturally take (cash-in events debit the
// determinant account, cash-out events credit it).
type OperationEvent struct {
	Type       OperationType
	Attributes []string
	Determines Direction
}

// HasAttribute reports whether name is a declared amount slot.
func (e OperationEvent) HasAttribute(name string) bool {
	for _, a := range e.Attributes {
		if a == name {
			return true
		}
	}
	return false
}

var events = map[OperationType]OperationEvent{
	OpDeposit: {
		Type:       OpDeposit,
		Attributes: []string{"Principal", "Fee", "VAT", "Commission"},
		Determines: DirectionDebit,
	},
	OpWithdrawal: {
		Type:       OpWithdrawal,
		Attributes: []string{"Principal", "Fee", "VAT", "Commission"},
		Determines: DirectionCredit,
	},
	OpTransfer: {
		Type:       OpTransfer,
		Attributes: []string{"Principal", "Fee", "Commission"},
		Determines: DirectionDebit,
	},
	OpLoanDisbursement: {
		Type:       OpLoanDisbursement,
		Attributes: []string{"Principal", "Fee", "Interest", "VAT"},
		Determines: DirectionCredit,
	},
	OpLoanRepayment: {
		Type:       OpLoanRepayment,
		Attributes: []string{"Principal", "Interest", "Penalty", "Fee"},
		Determines: DirectionDebit,
	},
	OpFeeCollection: {
		Type:       OpFeeCollection,
		Attributes: []string{"Fee", "VAT"},
		Determines: DirectionDebit,
	},
	OpCashReplenishment: {
		Type:       OpCashReplenishment,
		Attributes: []string{"Principal"},
		Determines: DirectionDebit,
	},
	OpReversal: {
		Type:       OpReversal,
		Attributes: []string{"Principal"},
		Determines: DirectionDebit,
	},
}

// EventFor looks up the declared event for an operation type.
func EventFor(op OperationType) (OperationEvent, bool) {
	e, ok := events[op]
	return e, ok
}

// BuildEventCode composes the rule lookup key, e.g. "deposit@Saving_Account".
func BuildEventCode(op OperationType, qualifier string) string {
	return fmt.Sprintf("%s@%s", op, qualifier)
}

// ParseEventCode splits an event code into operation type and qualifier.
// Lookup is exact-match; a malformed code is a configuration error upstream.
func ParseEventCode(code string) (OperationType, string, error) {
	parts := strings.SplitN(code, "@", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed event code %q, want operation@qualifier", code)
	}
	return OperationType(parts[0]), parts[1], nil
}
