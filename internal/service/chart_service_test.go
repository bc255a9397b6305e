package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"accounting-engine/internal/apperrors"
	"accounting-engine/internal/models"
)

func TestCreateChartAccountInheritsClass(t *testing.T) {
	e := newEngine(t)

	account, err := e.chart.CreateAccount(context.Background(), models.ChartOfAccount{
		Number: "2211",
		Name:   "Premium Saving Deposits",
	})
	require.NoError(t, err)
	require.Equal(t, models.ClassLiability, account.Class)
}

func TestCreateChartAccountRejectsDanglingParent(t *testing.T) {
	e := newEngine(t)

	_, err := e.chart.CreateAccount(context.Background(), models.ChartOfAccount{
		Number: "7001",
		Name:   "Orphan",
	})
	require.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestCreateChartAccountRejectsDuplicate(t *testing.T) {
	e := newEngine(t)

	_, err := e.chart.CreateAccount(context.Background(), models.ChartOfAccount{
		Number: "221",
		Name:   "Duplicate Saving Deposits",
	})
	require.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestDeleteChartAccountWithChildren(t *testing.T) {
	e := newEngine(t)

	err := e.chart.DeleteAccount(context.Background(), "22")
	require.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	// Leaf deletes are fine.
	require.NoError(t, e.chart.DeleteAccount(context.Background(), "222"))

	tree, err := e.chart.Tree(context.Background())
	require.NoError(t, err)
	_, ok := tree.Node("222")
	require.False(t, ok)
}

func TestCreateChartAccountRejectsDeletedParent(t *testing.T) {
	e := newEngine(t)

	// "222" is a leaf, so deleting it is fine.
	require.NoError(t, e.chart.DeleteAccount(context.Background(), "222"))

	// A child under the deleted row would be orphaned in the presented
	// tree and break every report for the bank.
	_, err := e.chart.CreateAccount(context.Background(), models.ChartOfAccount{
		Number: "2221",
		Name:   "Premium Current Deposits",
	})
	require.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	tree, err := e.chart.Tree(context.Background())
	require.NoError(t, err)
	_, ok := tree.Node("2221")
	require.False(t, ok)
}

func TestClassRootRejectsUnknownClass(t *testing.T) {
	e := newEngine(t)

	_, err := e.chart.CreateAccount(context.Background(), models.ChartOfAccount{
		Number: "6",
		Name:   "Contra",
		Class:  "banana",
	})
	require.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, err = e.store.GetChartAccount(context.Background(), "6")
	require.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestSeedIsIdempotent(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.chart.Seed(context.Background()))

	accounts, err := e.store.ListChartAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 18)
}

func TestClassRootNeedsClass(t *testing.T) {
	e := newEngine(t)
	_, err := e.chart.CreateAccount(context.Background(), models.ChartOfAccount{
		Number: "6",
		Name:   "Contra",
	})
	require.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}
