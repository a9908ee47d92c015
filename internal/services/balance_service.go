// Package services orchestrates aggregation runs across accounts and maps
// refresh events to the recomputation they ask for.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"ledgerview/internal/core"
	"ledgerview/internal/finance"
	"ledgerview/internal/log"
	"ledgerview/internal/report"
)

// AccountDirectory is the slice of the directory the services need.
type AccountDirectory interface {
	OwnedAccounts(ctx context.Context) ([]core.Account, error)
	DestinationAccounts(ctx context.Context) ([]core.Account, error)
	AccountNames(ctx context.Context) (finance.NameLookup, error)
	CategoryNames(ctx context.Context) (finance.NameLookup, error)
	Invalidate()
}

// BalanceServiceConfig bounds the balance fan-out.
type BalanceServiceConfig struct {
	// Concurrency is the max number of accounts computed at once.
	Concurrency int

	// PageSize is the fetch page size for each balance run.
	PageSize int
}

func DefaultBalanceServiceConfig() BalanceServiceConfig {
	return BalanceServiceConfig{
		Concurrency: 4,
		PageSize:    report.DefaultPageSize,
	}
}

// AccountBalance pairs an account with its reconstructed net position.
type AccountBalance struct {
	Account    core.Account
	Balance    decimal.Decimal
	ComputedAt time.Time
}

// BalanceService recomputes destination-account balances. Each account is
// an independent engine run with its own accumulator; runs only share the
// read-only directory snapshot, so they fan out freely under the
// configured bound.
type BalanceService struct {
	engine    *report.Engine
	directory AccountDirectory
	store     finance.SnapshotStore // optional
	runner    *report.Runner[decimal.Decimal]
	config    BalanceServiceConfig
	logger    *log.Logger
}

func NewBalanceService(engine *report.Engine, directory AccountDirectory, store finance.SnapshotStore, config BalanceServiceConfig, logger *log.Logger) *BalanceService {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultBalanceServiceConfig().Concurrency
	}
	if config.PageSize <= 0 {
		config.PageSize = DefaultBalanceServiceConfig().PageSize
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker)
	}
	return &BalanceService{
		engine:    engine,
		directory: directory,
		store:     store,
		runner:    report.NewRunner[decimal.Decimal](),
		config:    config,
		logger:    logger,
	}
}

// ComputeAll recomputes the balance of every destination account. A failed
// account does not stop the others; the first failure is reported after
// all runs settle, and successful balances are persisted regardless.
func (s *BalanceService) ComputeAll(ctx context.Context) ([]AccountBalance, error) {
	accounts, err := s.directory.DestinationAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list destination accounts: %w", err)
	}

	results := make([]AccountBalance, len(accounts))
	errs := make([]error, len(accounts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)
	for i, account := range accounts {
		g.Go(func() error {
			balance, err := s.ComputeOne(gctx, account)
			if err != nil {
				errs[i] = err
				s.logger.ErrorContext(gctx, "Balance computation failed",
					log.FieldAccountID, account.ID,
					log.FieldError, err)
				return nil
			}
			results[i] = balance
			return nil
		})
	}
	g.Wait()

	balances := make([]AccountBalance, 0, len(accounts))
	var firstErr error
	for i := range accounts {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		balances = append(balances, results[i])
	}

	s.logger.InfoContext(ctx, "Destination balances recomputed",
		"computed", len(balances),
		"failed", len(accounts)-len(balances))
	return balances, firstErr
}

// ComputeOne recomputes a single account's balance through the runner, so
// a newer trigger for the same account supersedes this one. Persisting is
// part of apply: a superseded run never writes.
func (s *BalanceService) ComputeOne(ctx context.Context, account core.Account) (AccountBalance, error) {
	var out AccountBalance
	outErr := fmt.Errorf("balance run for account %s superseded", account.ID)

	s.runner.Run(ctx, account.ID,
		func(runCtx context.Context) (decimal.Decimal, error) {
			return s.engine.RunningBalance(runCtx, account, report.BalanceQuery{
				PageSize: s.config.PageSize,
			})
		},
		func(balance decimal.Decimal, err error) {
			if err != nil {
				outErr = err
				return
			}
			out = AccountBalance{
				Account:    account,
				Balance:    balance,
				ComputedAt: time.Now().UTC(),
			}
			outErr = nil
			s.persist(ctx, out)
		})

	return out, outErr
}

func (s *BalanceService) persist(ctx context.Context, b AccountBalance) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveBalance(ctx, b.Account.ID, b.Balance, b.ComputedAt); err != nil {
		s.logger.WarnContext(ctx, "Failed to persist balance",
			log.FieldAccountID, b.Account.ID,
			log.FieldError, err)
	}
}

// StoredBalances returns the persisted balances, for serving destination
// listings without triggering a full recomputation.
func (s *BalanceService) StoredBalances(ctx context.Context) (map[string]decimal.Decimal, error) {
	if s.store == nil {
		return map[string]decimal.Decimal{}, nil
	}
	return s.store.LoadBalances(ctx)
}
