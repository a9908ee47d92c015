package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerview/internal/core"
	"ledgerview/internal/finance"
	"ledgerview/internal/report"
)

const (
	destA = "3f2a8a6e-0b1d-4c44-9d32-0a4c9f9f0001"
	destB = "3f2a8a6e-0b1d-4c44-9d32-0a4c9f9f0002"
	owner = "3f2a8a6e-0b1d-4c44-9d32-0a4c9f9f00aa"
)

type fakeTransactions struct {
	records []core.Transaction
	err     error
}

func (f *fakeTransactions) ListTransactions(_ context.Context, q finance.TransactionQuery) ([]core.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	if q.Skip >= len(f.records) {
		return nil, nil
	}
	end := q.Skip + q.Limit
	if end > len(f.records) {
		end = len(f.records)
	}
	return f.records[q.Skip:end], nil
}

func (f *fakeTransactions) TypeReport(ctx context.Context, q finance.ReportQuery) ([]core.Transaction, error) {
	return f.ListTransactions(ctx, q.TransactionQuery)
}

func (f *fakeTransactions) CategoryReport(ctx context.Context, q finance.ReportQuery) ([]core.Transaction, error) {
	return f.ListTransactions(ctx, q.TransactionQuery)
}

type fakeDirectory struct {
	destinations []core.Account
	err          error
	invalidated  int
}

func (f *fakeDirectory) OwnedAccounts(context.Context) ([]core.Account, error) { return nil, nil }

func (f *fakeDirectory) DestinationAccounts(context.Context) ([]core.Account, error) {
	return f.destinations, f.err
}

func (f *fakeDirectory) AccountNames(context.Context) (finance.NameLookup, error) {
	return finance.MapLookup{}, nil
}

func (f *fakeDirectory) CategoryNames(context.Context) (finance.NameLookup, error) {
	return finance.MapLookup{}, nil
}

func (f *fakeDirectory) Invalidate() { f.invalidated++ }

type fakeStore struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
	saveErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{balances: make(map[string]decimal.Decimal)}
}

func (f *fakeStore) SaveAccounts(context.Context, []core.Account) error    { return nil }
func (f *fakeStore) LoadAccounts(context.Context) ([]core.Account, error)  { return nil, nil }
func (f *fakeStore) SaveCategories(context.Context, []core.Category) error { return nil }
func (f *fakeStore) LoadCategories(context.Context) ([]core.Category, error) {
	return nil, nil
}

func (f *fakeStore) SaveBalance(_ context.Context, accountID string, balance decimal.Decimal, _ time.Time) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[accountID] = balance
	return nil
}

func (f *fakeStore) LoadBalances(context.Context) (map[string]decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]decimal.Decimal, len(f.balances))
	for k, v := range f.balances {
		out[k] = v
	}
	return out, nil
}

func tx(target string, amount int64) core.Transaction {
	return core.Transaction{
		ID:              "tx",
		Name:            "record",
		Type:            core.Expense,
		Amount:          decimal.NewFromInt(amount),
		AccountID:       owner,
		TargetAccountID: target,
		Date:            core.NewDate(2024, 3, 1),
	}
}

func TestBalanceService_ComputeAll(t *testing.T) {
	source := &fakeTransactions{records: []core.Transaction{
		tx(destA, -200),
		tx(destB, 50),
		tx(destA, 75),
		tx(owner, -999), // different target, ignored by both runs
	}}
	dir := &fakeDirectory{destinations: []core.Account{
		{ID: destA, Name: "Savings", InitialBalance: decimal.NewFromInt(1000)},
		{ID: destB, Name: "Brokerage"},
	}}
	store := newFakeStore()
	svc := NewBalanceService(report.NewEngine(source, source), dir, store, BalanceServiceConfig{Concurrency: 2, PageSize: 500}, nil)

	balances, err := svc.ComputeAll(context.Background())
	require.NoError(t, err)
	require.Len(t, balances, 2)

	byID := make(map[string]decimal.Decimal)
	for _, b := range balances {
		byID[b.Account.ID] = b.Balance
	}
	assert.True(t, decimal.NewFromInt(875).Equal(byID[destA]), "got %s", byID[destA])
	assert.True(t, decimal.NewFromInt(50).Equal(byID[destB]), "got %s", byID[destB])

	stored, err := store.LoadBalances(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(875).Equal(stored[destA]))
	assert.True(t, decimal.NewFromInt(50).Equal(stored[destB]))
}

func TestBalanceService_ComputeAllReportsFirstFailure(t *testing.T) {
	source := &fakeTransactions{err: errors.New("backend down")}
	dir := &fakeDirectory{destinations: []core.Account{
		{ID: destA, Name: "Savings"},
		{ID: destB, Name: "Brokerage"},
	}}
	svc := NewBalanceService(report.NewEngine(source, source), dir, newFakeStore(), BalanceServiceConfig{}, nil)

	balances, err := svc.ComputeAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, report.ErrLoadBalance)
	assert.Empty(t, balances)
}

func TestBalanceService_ComputeAllDirectoryFailure(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("directory unavailable")}
	source := &fakeTransactions{}
	svc := NewBalanceService(report.NewEngine(source, source), dir, nil, BalanceServiceConfig{}, nil)

	_, err := svc.ComputeAll(context.Background())
	require.Error(t, err)
}

func TestBalanceService_ComputeOnePersists(t *testing.T) {
	source := &fakeTransactions{records: []core.Transaction{tx(destA, -25)}}
	store := newFakeStore()
	svc := NewBalanceService(report.NewEngine(source, source), &fakeDirectory{}, store, BalanceServiceConfig{}, nil)

	account := core.Account{ID: destA, Name: "Savings", InitialBalance: decimal.NewFromInt(100)}
	balance, err := svc.ComputeOne(context.Background(), account)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(75).Equal(balance.Balance), "got %s", balance.Balance)
	assert.False(t, balance.ComputedAt.IsZero())

	stored, err := store.LoadBalances(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(75).Equal(stored[destA]))
}
