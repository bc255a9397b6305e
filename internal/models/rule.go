package models

import "time"

// RuleEntryRole distinguishes the two legs a rule entry can produce.
type RuleEntryRole string

const (
	// RoleDeterminant marks the leg carrying the primary economic effect
	// of the event, e.g. the cash account on a deposit.
	RoleDeterminant RuleEntryRole = "determinant"
	// RoleBalancing marks the offsetting leg keeping the ledger balanced.
	RoleBalancing RuleEntryRole = "balancing"
)

// AccountingRule maps one event code to the chart accounts its amount
// lines post against.
type AccountingRule struct {
	ID        string    `json:"id" db:"id"`
	EventCode string    `json:"event_code" db:"event_code"`
	Name      string    `json:"name" db:"name"`
	Deleted   bool      `json:"deleted" db:"deleted"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Entries []AccountingRuleEntry `json:"entries,omitempty"`
}

// AccountingRuleEntry routes one event attribute to one chart account.
// Position orders entries for presentation only; posting order never
// depends on it.
type AccountingRuleEntry struct {
	ID        string        `json:"id" db:"id"`
	RuleID    string        `json:"rule_id" db:"rule_id"`
	Role      RuleEntryRole `json:"role" db:"role"`
	Attribute string        `json:"attribute" db:"attribute"`
	Number    string        `json:"number" db:"number"`
	Position  int           `json:"position" db:"position"`
}

// EntriesFor returns the rule entries routing the given attribute.
func (r AccountingRule) EntriesFor(attribute string) []AccountingRuleEntry {
	var out []AccountingRuleEntry
	for _, e := range r.Entries {
		if e.Attribute == attribute {
			out = append(out, e)
		}
	}
	return out
}

// HasRole reports whether any entry carries the role.
func (r AccountingRule) HasRole(role RuleEntryRole) bool {
	for _, e := range r.Entries {
		if e.Role == role {
			return true
		}
	}
	return false
}
