package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"accounting-engine/internal/apperrors"
	"accounting-engine/internal/models"
)

// RuleService manages accounting rules and resolves them at posting time.
type RuleService struct {
	rules  RuleStore
	chart  ChartStore
	logger *zap.Logger
}

// NewRuleService creates a RuleService.
func NewRuleService(rules RuleStore, chart ChartStore, logger *zap.Logger) *RuleService {
	return &RuleService{rules: rules, chart: chart, logger: logger}
}

// ResolveRule looks up the rule for an event code. Exact match only: a
// missing rule is a hard configuration failure, never a guess.
func (s *RuleService) ResolveRule(ctx context.Context, eventCode string) (models.AccountingRule, error) {
	rule, err := s.rules.GetRuleByEventCode(ctx, eventCode)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return models.AccountingRule{}, apperrors.Newf(apperrors.KindConfiguration,
				"no accounting rule configured for event %q", eventCode)
		}
		return models.AccountingRule{}, err
	}
	if rule.Deleted {
		return models.AccountingRule{}, apperrors.Newf(apperrors.KindConfiguration,
			"accounting rule for event %q is deleted", eventCode)
	}
	return rule, nil
}

// SaveRule validates and persists a rule with its entries. The rule must
// carry at least one determinant and one balancing entry, reference a
// recognized operation, and point every entry at a live chart account and a
// declared event attribute.
func (s *RuleService) SaveRule(ctx context.Context, rule models.AccountingRule) (models.AccountingRule, error) {
	op, _, err := models.ParseEventCode(rule.EventCode)
	if err != nil {
		return models.AccountingRule{}, apperrors.Wrap(apperrors.KindValidation, "invalid event code", err)
	}
	event, ok := models.EventFor(op)
	if !ok {
		return models.AccountingRule{}, apperrors.Newf(apperrors.KindValidation,
			"unknown operation type %q", op)
	}

	if !rule.HasRole(models.RoleDeterminant) || !rule.HasRole(models.RoleBalancing) {
		return models.AccountingRule{}, apperrors.New(apperrors.KindValidation,
			"rule needs at least one determinant and one balancing entry")
	}

	for i, entry := range rule.Entries {
		if !event.HasAttribute(entry.Attribute) {
			return models.AccountingRule{}, apperrors.Newf(apperrors.KindValidation,
				"attribute %q is not declared on event %q", entry.Attribute, op)
		}
		chart, err := s.chart.GetChartAccount(ctx, entry.Number)
		if err != nil || chart.Deleted {
			return models.AccountingRule{}, apperrors.Newf(apperrors.KindValidation,
				"rule entry targets unknown chart account %s", entry.Number)
		}
		if entry.ID == "" {
			rule.Entries[i].ID = uuid.NewString()
		}
	}

	now := time.Now().UTC()
	if rule.ID == "" {
		rule.ID = uuid.NewString()
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now
	for i := range rule.Entries {
		rule.Entries[i].RuleID = rule.ID
	}

	if err := s.rules.SaveRule(ctx, rule); err != nil {
		return models.AccountingRule{}, apperrors.Wrap(apperrors.KindStorage, "saving rule", err)
	}

	s.logger.Info("accounting rule saved",
		zap.String("rule_id", rule.ID),
		zap.String("event_code", rule.EventCode),
		zap.Int("entries", len(rule.Entries)))
	return rule, nil
}

// DeleteRule soft-deletes a rule; posted entries keep referencing it.
func (s *RuleService) DeleteRule(ctx context.Context, id string) error {
	if err := s.rules.SoftDeleteRule(ctx, id); err != nil {
		return err
	}
	s.logger.Info("accounting rule deleted", zap.String("rule_id", id))
	return nil
}

// ListRules returns all live rules.
func (s *RuleService) ListRules(ctx context.Context) ([]models.AccountingRule, error) {
	rules, err := s.rules.ListRules(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "listing rules", err)
	}
	live := rules[:0]
	for _, r := range rules {
		if !r.Deleted {
			live = append(live, r)
		}
	}
	return live, nil
}
