package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const (
	idA = "3f2f5a66-9b1d-4c39-8b7e-0f1b2c3d4e5f"
	idB = "a1b2c3d4-e5f6-4789-9abc-def012345678"
)

func TestParseTransactionType(t *testing.T) {
	cases := []struct {
		in   string
		want TransactionType
		ok   bool
	}{
		{"expense", Expense, true},
		{"Withdraw", Withdraw, true},
		{"income", Income, true},
		{"transfer", Transfer, true},
		{"payment", Expense, true},  // legacy
		{"deposit", Income, true},   // legacy
		{"interest", Income, true},  // legacy
		{"rent", "", false},
		{"", "", false},
	}
	for i, tc := range cases {
		got, err := ParseTransactionType(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("case %d: got (%q, %v), want %q", i, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d: expected error for %q", i, tc.in)
		}
	}
}

func TestDateParseAndString(t *testing.T) {
	d, err := ParseDate("2025-03-07")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.String() != "2025-03-07" {
		t.Fatalf("round trip mismatch: %q", d.String())
	}
	if _, err := ParseDate("07/03/2025"); err == nil {
		t.Fatal("expected error for non-ISO date")
	}
	if (Date{Time: time.Time{}}).Validate() == nil {
		t.Fatal("expected error for zero date")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		ID:        idA,
		Name:      "groceries",
		Type:      Expense,
		Amount:    decimal.NewFromInt(-25),
		AccountID: idB,
		Date:      NewDate(2025, 1, 15),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		func(x Transaction) Transaction { x.Name = " "; return x }(good),
		func(x Transaction) Transaction { x.Type = "rent"; return x }(good),
		func(x Transaction) Transaction { x.Amount = decimal.Zero; return x }(good),
		func(x Transaction) Transaction { x.AccountID = "not-a-uuid"; return x }(good),
		func(x Transaction) Transaction { x.TargetAccountID = "nope"; return x }(good),
		func(x Transaction) Transaction { x.Date = Date{}; return x }(good),
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestAccountIsDestination(t *testing.T) {
	owned := Account{ID: idA, Name: "Checking", UserID: idB}
	if owned.IsDestination() {
		t.Fatal("owned account must not be a destination")
	}
	dest := Account{ID: idA, Name: "Grocer"}
	if !dest.IsDestination() {
		t.Fatal("account without owner must be a destination")
	}
}

func TestDimensionKey(t *testing.T) {
	tx := Transaction{TargetAccountID: idA, CategoryID: ""}
	if got := DimensionTargetAccount.Key(tx); got != idA {
		t.Fatalf("target key = %q", got)
	}
	if got := DimensionCategory.Key(tx); got != KeyUncategorized {
		t.Fatalf("category sentinel = %q", got)
	}
	tx = Transaction{}
	if got := DimensionTargetAccount.Key(tx); got != KeyUnassigned {
		t.Fatalf("target sentinel = %q", got)
	}
}
