package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus is the lifecycle state of a posted ledger line. An entry is
// immutable once posted; the only permitted transition is Posted -> Reversed.
type EntryStatus string

const (
	StatusPosted    EntryStatus = "posted"
	StatusReversed  EntryStatus = "reversed"
	StatusCancelled EntryStatus = "cancelled"
)

// AccountingEntry is one ledger line.
type AccountingEntry struct {
	ID             string          `json:"id" db:"id"`
	AccountID      string          `json:"account_id" db:"account_id"`
	Number         string          `json:"number" db:"number"`
	Class          AccountClass    `json:"class" db:"class"`
	Scope          Scope           `json:"scope"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	Direction      Direction       `json:"direction" db:"direction"`
	Reference      string          `json:"reference" db:"reference"`
	ReversalOf     string          `json:"reversal_of,omitempty" db:"reversal_of"`
	EventCode      string          `json:"event_code" db:"event_code"`
	Attribute      string          `json:"attribute" db:"attribute"`
	UpstreamRef    string          `json:"upstream_ref" db:"upstream_ref"`
	ValueDate      time.Time       `json:"value_date" db:"value_date"`
	AccountingDate time.Time       `json:"accounting_date" db:"accounting_date"`
	Status         EntryStatus     `json:"status" db:"status"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// AmountLine is one semantic amount slot in a posting request, keyed by the
// event attribute name.
type AmountLine struct {
	Attribute string          `json:"attribute" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
}

// PostingRequest is the command an upstream service sends to post one
// business event.
type PostingRequest struct {
	EventCode      string       `json:"event_code" binding:"required"`
	Scope          Scope        `json:"scope"`
	Lines          []AmountLine `json:"lines" binding:"required,min=1"`
	Reference      string       `json:"reference" binding:"required"`
	UpstreamRef    string       `json:"upstream_ref"`
	AccountingDate time.Time    `json:"accounting_date"`
	Actor          string       `json:"actor"`
}

// PostingResult reports a committed posting or reversal.
type PostingResult struct {
	Reference   string            `json:"reference"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
	Entries     []AccountingEntry `json:"entries"`
}
