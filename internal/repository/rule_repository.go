package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"accounting-engine/internal/apperrors"
	"accounting-engine/internal/models"
)

// RuleRepository persists accounting rules and their entries in Postgres.
type RuleRepository struct {
	db *sql.DB
}

// NewRuleRepository creates a RuleRepository.
func NewRuleRepository(db *sql.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// SaveRule upserts the rule row and replaces its entries in one transaction.
func (r *RuleRepository) SaveRule(ctx context.Context, rule models.AccountingRule) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ruleQuery := `
		INSERT INTO accounting_rules (id, event_code, name, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET event_code = EXCLUDED.event_code, name = EXCLUDED.name,
		    deleted = EXCLUDED.deleted, updated_at = EXCLUDED.updated_at
	`
	_, err = tx.ExecContext(ctx, ruleQuery,
		rule.ID, rule.EventCode, rule.Name, rule.Deleted, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM accounting_rule_entries WHERE rule_id = $1`, rule.ID); err != nil {
		return err
	}

	entryQuery := `
		INSERT INTO accounting_rule_entries (id, rule_id, role, attribute, number, position)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, e := range rule.Entries {
		if _, err = tx.ExecContext(ctx, entryQuery, e.ID, e.RuleID, e.Role, e.Attribute, e.Number, e.Position); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *RuleRepository) GetRuleByEventCode(ctx context.Context, eventCode string) (models.AccountingRule, error) {
	query := `
		SELECT id, event_code, name, deleted, created_at, updated_at
		FROM accounting_rules
		WHERE event_code = $1 AND NOT deleted
	`
	var rule models.AccountingRule
	err := r.db.QueryRowContext(ctx, query, eventCode).Scan(
		&rule.ID, &rule.EventCode, &rule.Name, &rule.Deleted, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AccountingRule{}, apperrors.Newf(apperrors.KindNotFound, "rule for %q not found", eventCode)
	}
	if err != nil {
		return models.AccountingRule{}, err
	}

	rule.Entries, err = r.entriesForRule(ctx, rule.ID)
	return rule, err
}

func (r *RuleRepository) ListRules(ctx context.Context) ([]models.AccountingRule, error) {
	query := `
		SELECT id, event_code, name, deleted, created_at, updated_at
		FROM accounting_rules
		ORDER BY event_code ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.AccountingRule
	for rows.Next() {
		var rule models.AccountingRule
		if err := rows.Scan(&rule.ID, &rule.EventCode, &rule.Name, &rule.Deleted, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range rules {
		if rules[i].Entries, err = r.entriesForRule(ctx, rules[i].ID); err != nil {
			return nil, err
		}
	}
	return rules, nil
}

func (r *RuleRepository) SoftDeleteRule(ctx context.Context, id string) error {
	query := `
		UPDATE accounting_rules
		SET deleted = TRUE, updated_at = $1
		WHERE id = $2
	`
	res, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.Newf(apperrors.KindNotFound, "rule %s not found", id)
	}
	return nil
}

func (r *RuleRepository) entriesForRule(ctx context.Context, ruleID string) ([]models.AccountingRuleEntry, error) {
	query := `
		SELECT id, rule_id, role, attribute, number, position
		FROM accounting_rule_entries
		WHERE rule_id = $1
		ORDER BY position ASC
	`
	rows, err := r.db.QueryContext(ctx, query, ruleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.AccountingRuleEntry
	for rows.Next() {
		var e models.AccountingRuleEntry
		if err := rows.Scan(&e.ID, &e.RuleID, &e.Role, &e.Attribute, &e.Number, &e.Position); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
