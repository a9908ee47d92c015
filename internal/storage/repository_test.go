package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ledgerview/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestAccountSnapshotRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	accounts := []core.Account{
		{
			ID:             "a1",
			Name:           "Checking",
			BankName:       "Acme",
			InitialBalance: decimal.RequireFromString("1234.56"),
			BalanceDate:    core.NewDate(2024, 1, 15),
			Currency:       "EUR",
			UserID:         "u1",
		},
		{ID: "a2", Name: "Grocer"},
	}
	if err := repo.SaveAccounts(ctx, accounts); err != nil {
		t.Fatalf("SaveAccounts() error = %v", err)
	}

	loaded, err := repo.LoadAccounts(ctx)
	if err != nil {
		t.Fatalf("LoadAccounts() error = %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("LoadAccounts() returned %d accounts, want 2", len(loaded))
	}

	// Ordered by name: Checking before Grocer.
	got := loaded[0]
	if got.Name != "Checking" || got.BankName != "Acme" || got.UserID != "u1" {
		t.Errorf("loaded account = %+v", got)
	}
	if !got.InitialBalance.Equal(decimal.RequireFromString("1234.56")) {
		t.Errorf("InitialBalance = %s, want 1234.56", got.InitialBalance)
	}
	if got.BalanceDate.String() != "2024-01-15" {
		t.Errorf("BalanceDate = %s, want 2024-01-15", got.BalanceDate)
	}
	if !loaded[1].IsDestination() {
		t.Error("account without user id should load as destination")
	}

	// A second save replaces the snapshot entirely.
	if err := repo.SaveAccounts(ctx, accounts[:1]); err != nil {
		t.Fatalf("SaveAccounts() error = %v", err)
	}
	loaded, err = repo.LoadAccounts(ctx)
	if err != nil {
		t.Fatalf("LoadAccounts() error = %v", err)
	}
	if len(loaded) != 1 {
		t.Errorf("LoadAccounts() after replace returned %d accounts, want 1", len(loaded))
	}
}

func TestCategorySnapshotRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	categories := []core.Category{
		{ID: "c1", Name: "Groceries", Description: "food"},
		{ID: "c2", Name: "Utilities"},
	}
	if err := repo.SaveCategories(ctx, categories); err != nil {
		t.Fatalf("SaveCategories() error = %v", err)
	}

	loaded, err := repo.LoadCategories(ctx)
	if err != nil {
		t.Fatalf("LoadCategories() error = %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("LoadCategories() returned %d categories, want 2", len(loaded))
	}
	if loaded[0].Name != "Groceries" || loaded[0].Description != "food" {
		t.Errorf("loaded category = %+v", loaded[0])
	}
}

func TestBalanceUpsert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SaveBalance(ctx, "a1", decimal.NewFromInt(775), time.Now()); err != nil {
		t.Fatalf("SaveBalance() error = %v", err)
	}
	if err := repo.SaveBalance(ctx, "a1", decimal.RequireFromString("800.25"), time.Now()); err != nil {
		t.Fatalf("SaveBalance() upsert error = %v", err)
	}

	balances, err := repo.LoadBalances(ctx)
	if err != nil {
		t.Fatalf("LoadBalances() error = %v", err)
	}
	if len(balances) != 1 {
		t.Fatalf("LoadBalances() returned %d entries, want 1", len(balances))
	}
	if !balances["a1"].Equal(decimal.RequireFromString("800.25")) {
		t.Errorf("balance = %s, want 800.25", balances["a1"])
	}
}
