package finance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ledgerview/internal/core"
)

// TransactionQuery selects one page of transactions from the collaborator.
// Skip/Limit implement offset pagination; filters are applied server-side.
type TransactionQuery struct {
	AccountID string
	StartDate core.Date
	EndDate   core.Date
	Skip      int
	Limit     int
}

// ReportQuery narrows a transaction page by type or category allow-lists.
type ReportQuery struct {
	TransactionQuery
	Types       []core.TransactionType
	CategoryIDs []string
}

// Ports for outbound collaborators.
type (
	// TransactionSource is the page-fetch contract: at most Limit records
	// per call, consistent filters across repeated calls within one run.
	// No snapshot guarantee is made if the underlying data changes
	// mid-scan.
	TransactionSource interface {
		ListTransactions(ctx context.Context, q TransactionQuery) ([]core.Transaction, error)
	}

	// ReportSource serves the report endpoints of the REST backend, which
	// accept type and category allow-lists on top of the base filter.
	ReportSource interface {
		TypeReport(ctx context.Context, q ReportQuery) ([]core.Transaction, error)
		CategoryReport(ctx context.Context, q ReportQuery) ([]core.Transaction, error)
	}

	AccountSource interface {
		ListAccounts(ctx context.Context) ([]core.Account, error)
		ListDestinationAccounts(ctx context.Context, skip, limit int) ([]core.Account, error)
	}

	CategorySource interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
	}

	// NameLookup resolves a bucket key to a display name. Implementations
	// are read-only snapshots; a miss is not an error.
	NameLookup interface {
		Name(id string) (string, bool)
	}

	// SnapshotStore persists directory snapshots and computed balances
	// locally so screens keep working across backend hiccups.
	SnapshotStore interface {
		SaveAccounts(ctx context.Context, accounts []core.Account) error
		LoadAccounts(ctx context.Context) ([]core.Account, error)
		SaveCategories(ctx context.Context, categories []core.Category) error
		LoadCategories(ctx context.Context) ([]core.Category, error)
		SaveBalance(ctx context.Context, accountID string, balance decimal.Decimal, computedAt time.Time) error
		LoadBalances(ctx context.Context) (map[string]decimal.Decimal, error)
	}
)

// MapLookup adapts a plain map to the NameLookup port.
type MapLookup map[string]string

func (m MapLookup) Name(id string) (string, bool) {
	name, ok := m[id]
	return name, ok
}
