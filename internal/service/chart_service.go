package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"accounting-engine/internal/apperrors"
	"accounting-engine/internal/models"
)

// ChartService manages the chart-of-account taxonomy.
type ChartService struct {
	store  ChartStore
	logger *zap.Logger
}

// NewChartService creates a ChartService.
func NewChartService(store ChartStore, logger *zap.Logger) *ChartService {
	return &ChartService{store: store, logger: logger}
}

// CreateAccount adds one chart row after checking the structural parent
// exists. Class roots (single-digit numbers) need a class; deeper rows
// inherit the root's class.
func (s *ChartService) CreateAccount(ctx context.Context, account models.ChartOfAccount) (models.ChartOfAccount, error) {
	if account.Number == "" || account.Name == "" {
		return models.ChartOfAccount{}, apperrors.New(apperrors.KindValidation, "chart account needs number and name")
	}

	if parent := account.ParentNumber(); parent != "" {
		p, err := s.store.GetChartAccount(ctx, parent)
		// A soft-deleted parent is as absent as a missing one; accepting
		// the child would orphan it in the presented tree.
		if err != nil || p.Deleted {
			return models.ChartOfAccount{}, apperrors.Newf(apperrors.KindValidation,
				"chart account %s has no parent %s", account.Number, parent)
		}
		account.Class = p.Class
	} else if !account.Class.Valid() {
		return models.ChartOfAccount{}, apperrors.Newf(apperrors.KindValidation,
			"class root %s needs a recognized account class, got %q", account.Number, account.Class)
	}

	if existing, err := s.store.GetChartAccount(ctx, account.Number); err == nil && !existing.Deleted {
		return models.ChartOfAccount{}, apperrors.Newf(apperrors.KindValidation,
			"chart account %s already exists", account.Number)
	}

	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	account.Deleted = false

	if err := s.store.SaveChartAccount(ctx, account); err != nil {
		return models.ChartOfAccount{}, apperrors.Wrap(apperrors.KindStorage, "saving chart account", err)
	}

	s.logger.Info("chart account created",
		zap.String("number", account.Number),
		zap.String("class", string(account.Class)))
	return account, nil
}

// UpdateAccount renames a chart row. Number and class are structural and
// never change in place.
func (s *ChartService) UpdateAccount(ctx context.Context, number, name string) (models.ChartOfAccount, error) {
	account, err := s.store.GetChartAccount(ctx, number)
	if err != nil {
		return models.ChartOfAccount{}, err
	}
	account.Name = name
	account.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveChartAccount(ctx, account); err != nil {
		return models.ChartOfAccount{}, apperrors.Wrap(apperrors.KindStorage, "updating chart account", err)
	}
	return account, nil
}

// DeleteAccount soft-deletes a chart row. Rows with live children stay.
func (s *ChartService) DeleteAccount(ctx context.Context, number string) error {
	all, err := s.store.ListChartAccounts(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.KindStorage, "listing chart accounts", err)
	}
	for _, a := range all {
		if !a.Deleted && a.ParentNumber() == number {
			return apperrors.Newf(apperrors.KindValidation,
				"chart account %s still has child %s", number, a.Number)
		}
	}
	if err := s.store.SoftDeleteChartAccount(ctx, number); err != nil {
		return err
	}
	s.logger.Info("chart account deleted", zap.String("number", number))
	return nil
}

// Tree materializes the current taxonomy.
func (s *ChartService) Tree(ctx context.Context) (*models.ChartTree, error) {
	accounts, err := s.store.ListChartAccounts(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "listing chart accounts", err)
	}
	tree, err := models.BuildChartTree(accounts)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindConfiguration, "building chart tree", err)
	}
	return tree, nil
}

// defaultChart seeds the class roots and the sub-classes the engine's
// default rules post against.
var defaultChart = []models.ChartOfAccount{
	{Number: "1", Name: "Assets", Class: models.ClassAsset},
	{Number: "10", Name: "Cash and Balances", Class: models.ClassAsset},
	{Number: "101", Name: "Cash in Vault", Class: models.ClassAsset},
	{Number: "1011", Name: "Teller Cash", Class: models.ClassAsset},
	{Number: "11", Name: "Loans and Advances", Class: models.ClassAsset},
	{Number: "111", Name: "Loan Principal Outstanding", Class: models.ClassAsset},
	{Number: "2", Name: "Liabilities", Class: models.ClassLiability},
	{Number: "22", Name: "Customer Deposits", Class: models.ClassLiability},
	{Number: "221", Name: "Saving Deposits", Class: models.ClassLiability},
	{Number: "222", Name: "Current Deposits", Class: models.ClassLiability},
	{Number: "3", Name: "Equity", Class: models.ClassEquity},
	{Number: "31", Name: "Share Capital", Class: models.ClassEquity},
	{Number: "4", Name: "Income", Class: models.ClassIncome},
	{Number: "41", Name: "Fees and Commissions", Class: models.ClassIncome},
	{Number: "411", Name: "Fee Income", Class: models.ClassIncome},
	{Number: "42", Name: "Interest Income", Class: models.ClassIncome},
	{Number: "5", Name: "Expenses", Class: models.ClassExpense},
	{Number: "51", Name: "Operating Expenses", Class: models.ClassExpense},
}

// Seed installs the default chart when the store is empty.
func (s *ChartService) Seed(ctx context.Context) error {
	existing, err := s.store.ListChartAccounts(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.KindStorage, "listing chart accounts", err)
	}
	if len(existing) > 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, a := range defaultChart {
		a.CreatedAt = now
		a.UpdatedAt = now
		if err := s.store.SaveChartAccount(ctx, a); err != nil {
			return apperrors.Wrap(apperrors.KindStorage, "seeding chart", err)
		}
	}
	s.logger.Info("default chart of accounts seeded", zap.Int("accounts", len(defaultChart)))
	return nil
}
