// Package report implements the incremental aggregation engine: it pages
// through server-filtered transaction collections and folds them into
// ranked breakdown summaries and running balances, holding at most one
// page in memory at a time.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"ledgerview/internal/core"
	"ledgerview/internal/finance"
)

// MaxBuckets caps a breakdown at the top entries by magnitude. Buckets
// past the cap are dropped silently, so retained percentages need not
// cover the full record set.
const MaxBuckets = 10

// DefaultPageSize is the fetch page size used when a query leaves it unset.
const DefaultPageSize = 500

var (
	ErrLoadBreakdown    = errors.New("failed to load breakdown")
	ErrLoadBalance      = errors.New("failed to load balance")
	ErrInvalidPageSize  = errors.New("page size must be a positive integer")
	ErrInvalidDimension = errors.New("invalid breakdown dimension")
)

// Filter scopes an aggregation run. All fields are applied server-side by
// the collaborator; the engine assumes they stay consistent across the
// pages of one run.
type Filter struct {
	AccountID   string
	StartDate   core.Date
	EndDate     core.Date
	Types       []core.TransactionType // optional record-type allow-list
	CategoryIDs []string               // optional category allow-list
}

// BreakdownQuery describes one breakdown run.
type BreakdownQuery struct {
	Filter    Filter
	Dimension core.Dimension
	PageSize  int
	Names     finance.NameLookup // key -> display name snapshot; may be stale
}

// BalanceQuery describes one running-balance run for a single account.
type BalanceQuery struct {
	Filter   Filter
	PageSize int
}

// Engine converts unbounded, server-paginated transaction streams into
// small human-presentable summaries. Pages are fetched strictly in
// increasing-offset order, one at a time: the offset of request n+1
// depends on the length of the response to request n.
//
// Offset pagination over live data can skip or duplicate records if the
// collaborator mutates mid-scan. The engine treats every scan as
// best-effort over an assumed-stable snapshot and does not correct for
// that.
type Engine struct {
	transactions finance.TransactionSource
	reports      finance.ReportSource
}

func NewEngine(transactions finance.TransactionSource, reports finance.ReportSource) *Engine {
	return &Engine{
		transactions: transactions,
		reports:      reports,
	}
}

// Breakdown pages through the filtered transaction stream and buckets the
// absolute value of each record's amount by the query dimension, using the
// dimension's sentinel key for records missing the field. The result is
// sorted descending, truncated to MaxBuckets, and carries percentages
// relative to the retained buckets' grand total.
//
// Any page failure aborts the whole run and discards partial accumulation;
// no partial result is ever returned alongside an error.
func (e *Engine) Breakdown(ctx context.Context, q BreakdownQuery) (core.BreakdownSummary, error) {
	if q.PageSize <= 0 {
		return core.BreakdownSummary{}, ErrInvalidPageSize
	}
	if !q.Dimension.Valid() {
		return core.BreakdownSummary{}, ErrInvalidDimension
	}

	totals := make(map[string]decimal.Decimal)
	skip := 0
	pages := 0
	for {
		page, err := e.fetchPage(ctx, q.Filter, skip, q.PageSize)
		if err != nil {
			return core.BreakdownSummary{}, fmt.Errorf("%w: page at offset %d: %w", ErrLoadBreakdown, skip, err)
		}
		pages++

		for _, tx := range page {
			key := q.Dimension.Key(tx)
			totals[key] = totals[key].Add(tx.Amount.Abs())
		}

		// A short page means the stream is exhausted.
		if len(page) < q.PageSize {
			break
		}
		skip += q.PageSize
	}

	summary := buildSummary(q.Dimension, totals, q.Names)
	slog.DebugContext(ctx, "Breakdown computed",
		"dimension", string(q.Dimension),
		"pages", pages,
		"buckets", len(summary.Buckets),
		"grand_total", summary.GrandTotal.String())
	return summary, nil
}

// RunningBalance reconstructs an account's net position: the signed sum of
// every fetched record whose target-account field equals the account's id,
// added to the account's initial balance. Unlike Breakdown it never takes
// absolute values, so a transfer that debits one account and credits
// another nets out correctly.
func (e *Engine) RunningBalance(ctx context.Context, account core.Account, q BalanceQuery) (decimal.Decimal, error) {
	if q.PageSize <= 0 {
		return decimal.Zero, ErrInvalidPageSize
	}

	balance := account.InitialBalance
	skip := 0
	for {
		page, err := e.fetchPage(ctx, q.Filter, skip, q.PageSize)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: account %s: page at offset %d: %w", ErrLoadBalance, account.ID, skip, err)
		}

		for _, tx := range page {
			if tx.TargetAccountID != account.ID {
				continue
			}
			balance = balance.Add(tx.Amount)
		}

		if len(page) < q.PageSize {
			break
		}
		skip += q.PageSize
	}

	return balance, nil
}

// fetchPage requests one page. Allow-lists route through the report
// endpoints, which are the only ones accepting them server-side; everything
// else goes through the plain transaction listing. The type and category
// endpoints are distinct, so when both allow-lists are set the type one
// takes precedence and the category list is ignored.
func (e *Engine) fetchPage(ctx context.Context, f Filter, skip, limit int) ([]core.Transaction, error) {
	tq := finance.TransactionQuery{
		AccountID: f.AccountID,
		StartDate: f.StartDate,
		EndDate:   f.EndDate,
		Skip:      skip,
		Limit:     limit,
	}
	if len(f.Types) > 0 {
		return e.reports.TypeReport(ctx, finance.ReportQuery{
			TransactionQuery: tq,
			Types:            f.Types,
		})
	}
	if len(f.CategoryIDs) > 0 {
		return e.reports.CategoryReport(ctx, finance.ReportQuery{
			TransactionQuery: tq,
			CategoryIDs:      f.CategoryIDs,
		})
	}
	return e.transactions.ListTransactions(ctx, tq)
}

func buildSummary(dim core.Dimension, totals map[string]decimal.Decimal, names finance.NameLookup) core.BreakdownSummary {
	buckets := make([]core.Bucket, 0, len(totals))
	for key, total := range totals {
		// Absolute-value accumulation keeps totals non-negative; zero
		// buckets can still appear from pathological zero-amount records
		// and are dropped here.
		if !total.IsPositive() {
			continue
		}
		buckets = append(buckets, core.Bucket{Key: key, Total: total})
	}

	sort.Slice(buckets, func(i, j int) bool {
		if !buckets[i].Total.Equal(buckets[j].Total) {
			return buckets[i].Total.GreaterThan(buckets[j].Total)
		}
		return buckets[i].Key < buckets[j].Key
	})
	if len(buckets) > MaxBuckets {
		buckets = buckets[:MaxBuckets]
	}

	grand := decimal.Zero
	for _, b := range buckets {
		grand = grand.Add(b.Total)
	}

	for i := range buckets {
		buckets[i].Name = resolveName(dim, buckets[i].Key, names)
		if grand.IsPositive() {
			pct, _ := buckets[i].Total.Div(grand).Mul(decimal.NewFromInt(100)).Float64()
			buckets[i].Percentage = pct
		}
	}

	return core.BreakdownSummary{
		Dimension:  dim,
		Buckets:    buckets,
		GrandTotal: grand,
	}
}

func resolveName(dim core.Dimension, key string, names finance.NameLookup) string {
	if key == dim.SentinelKey() {
		return dim.SentinelName()
	}
	if names != nil {
		if name, ok := names.Name(key); ok {
			return name
		}
	}
	return core.UnknownName
}
