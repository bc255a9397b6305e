package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"accounting-engine/internal/apperrors"
	"accounting-engine/internal/models"
)

func TestSaveRuleRequiresBothRoles(t *testing.T) {
	e := newEngine(t)

	tests := []struct {
		name    string
		entries []models.AccountingRuleEntry
	}{
		{
			name: "determinant only",
			entries: []models.AccountingRuleEntry{
				{Role: models.RoleDeterminant, Attribute: "Principal", Number: "1011"},
			},
		},
		{
			name: "balancing only",
			entries: []models.AccountingRuleEntry{
				{Role: models.RoleBalancing, Attribute: "Principal", Number: "221"},
			},
		},
		{
			name:    "no entries",
			entries: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.rules.SaveRule(context.Background(), models.AccountingRule{
				EventCode: "deposit@Saving_Account",
				Entries:   tt.entries,
			})
			require.True(t, apperrors.IsKind(err, apperrors.KindValidation))
		})
	}
}

func TestSaveRuleRejectsUndeclaredAttribute(t *testing.T) {
	e := newEngine(t)
	_, err := e.rules.SaveRule(context.Background(), models.AccountingRule{
		EventCode: "deposit@Saving_Account",
		Entries: []models.AccountingRuleEntry{
			{Role: models.RoleDeterminant, Attribute: "Bogus", Number: "1011"},
			{Role: models.RoleBalancing, Attribute: "Principal", Number: "221"},
		},
	})
	require.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestSaveRuleRejectsUnknownChartAccount(t *testing.T) {
	e := newEngine(t)
	_, err := e.rules.SaveRule(context.Background(), models.AccountingRule{
		EventCode: "deposit@Saving_Account",
		Entries: []models.AccountingRuleEntry{
			{Role: models.RoleDeterminant, Attribute: "Principal", Number: "9999"},
			{Role: models.RoleBalancing, Attribute: "Principal", Number: "221"},
		},
	})
	require.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestSaveRuleRejectsMalformedEventCode(t *testing.T) {
	e := newEngine(t)
	for _, code := range []string{"deposit", "@Saving_Account", "unknown_op@X"} {
		_, err := e.rules.SaveRule(context.Background(), models.AccountingRule{
			EventCode: code,
			Entries: []models.AccountingRuleEntry{
				{Role: models.RoleDeterminant, Attribute: "Principal", Number: "1011"},
				{Role: models.RoleBalancing, Attribute: "Principal", Number: "221"},
			},
		})
		require.True(t, apperrors.IsKind(err, apperrors.KindValidation), "code %q", code)
	}
}

func TestResolveRuleExactMatchOnly(t *testing.T) {
	e := newEngine(t)
	e.saveDepositRule(t)

	rule, err := e.rules.ResolveRule(context.Background(), "deposit@Saving_Account")
	require.NoError(t, err)
	require.Len(t, rule.Entries, 4)

	// No wildcard fallback: a near-miss is a configuration failure.
	_, err = e.rules.ResolveRule(context.Background(), "deposit@Current_Account")
	require.True(t, apperrors.IsKind(err, apperrors.KindConfiguration))
}

func TestResolveRuleDeletedRuleFails(t *testing.T) {
	e := newEngine(t)
	rule := e.saveDepositRule(t)

	require.NoError(t, e.rules.DeleteRule(context.Background(), rule.ID))

	_, err := e.rules.ResolveRule(context.Background(), "deposit@Saving_Account")
	require.True(t, apperrors.IsKind(err, apperrors.KindConfiguration))
}

func TestSaveRuleAssignsIDs(t *testing.T) {
	e := newEngine(t)
	rule := e.saveDepositRule(t)

	require.NotEmpty(t, rule.ID)
	for _, entry := range rule.Entries {
		require.NotEmpty(t, entry.ID)
		require.Equal(t, rule.ID, entry.RuleID)
	}
}

func TestListRulesSkipsDeleted(t *testing.T) {
	e := newEngine(t)
	rule := e.saveDepositRule(t)
	require.NoError(t, e.rules.DeleteRule(context.Background(), rule.ID))

	rules, err := e.rules.ListRules(context.Background())
	require.NoError(t, err)
	require.Empty(t, rules)
}
