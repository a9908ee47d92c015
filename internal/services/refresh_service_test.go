package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerview/internal/amqp"
	"ledgerview/internal/core"
	"ledgerview/internal/report"
)

func newRefreshFixture(t *testing.T) (*RefreshService, *fakeDirectory, *fakeStore) {
	t.Helper()
	source := &fakeTransactions{records: []core.Transaction{tx(destA, -40)}}
	dir := &fakeDirectory{destinations: []core.Account{
		{ID: destA, Name: "Savings", InitialBalance: decimal.NewFromInt(100)},
	}}
	store := newFakeStore()
	balances := NewBalanceService(report.NewEngine(source, source), dir, store, BalanceServiceConfig{}, nil)
	return NewRefreshService(balances, dir, nil), dir, store
}

func TestRefreshService_AccountScope(t *testing.T) {
	svc, _, store := newRefreshFixture(t)

	err := svc.Handle(context.Background(), &amqp.RefreshMessage{
		Scope:     amqp.ScopeAccount,
		AccountID: destA,
	})
	require.NoError(t, err)

	stored, err := store.LoadBalances(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(60).Equal(stored[destA]), "got %s", stored[destA])
}

func TestRefreshService_AccountScopeUnknownAccount(t *testing.T) {
	svc, dir, _ := newRefreshFixture(t)

	err := svc.Handle(context.Background(), &amqp.RefreshMessage{
		Scope:     amqp.ScopeAccount,
		AccountID: destB,
	})
	require.Error(t, err)
	// The snapshot is expired once to pick up newly added accounts.
	assert.Equal(t, 1, dir.invalidated)
}

func TestRefreshService_DestinationsScope(t *testing.T) {
	svc, _, store := newRefreshFixture(t)

	err := svc.Handle(context.Background(), &amqp.RefreshMessage{Scope: amqp.ScopeDestinations})
	require.NoError(t, err)

	stored, err := store.LoadBalances(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestRefreshService_CategoriesScope(t *testing.T) {
	svc, dir, _ := newRefreshFixture(t)

	err := svc.Handle(context.Background(), &amqp.RefreshMessage{Scope: amqp.ScopeCategories})
	require.NoError(t, err)
	assert.Equal(t, 1, dir.invalidated)
}
