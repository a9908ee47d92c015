package services

import (
	"context"
	"fmt"

	"ledgerview/internal/amqp"
	"ledgerview/internal/core"
	"ledgerview/internal/log"
)

// RefreshService maps incoming refresh events to the narrowest
// recomputation that covers them. Nothing here reloads the world: an
// account event recomputes that account, a directory event expires the
// name snapshot, and unrelated state is left alone.
type RefreshService struct {
	balances  *BalanceService
	directory AccountDirectory
	logger    *log.Logger
}

func NewRefreshService(balances *BalanceService, directory AccountDirectory, logger *log.Logger) *RefreshService {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker)
	}
	return &RefreshService{
		balances:  balances,
		directory: directory,
		logger:    logger,
	}
}

// Handle processes one refresh message. Returning an error asks the
// consumer to requeue the message.
func (s *RefreshService) Handle(ctx context.Context, msg *amqp.RefreshMessage) error {
	s.logger.InfoContext(ctx, "Handling refresh event",
		log.FieldScope, string(msg.Scope),
		log.FieldAccountID, msg.AccountID)

	switch msg.Scope {
	case amqp.ScopeAccount:
		return s.refreshAccount(ctx, msg.AccountID)
	case amqp.ScopeDestinations:
		_, err := s.balances.ComputeAll(ctx)
		return err
	case amqp.ScopeCategories:
		s.directory.Invalidate()
		return nil
	default:
		// Validated at decode time; an unknown scope here is a bug, not a
		// retryable condition.
		s.logger.WarnContext(ctx, "Dropping refresh event with unknown scope",
			log.FieldScope, string(msg.Scope))
		return nil
	}
}

func (s *RefreshService) refreshAccount(ctx context.Context, accountID string) error {
	account, err := s.findAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if _, err := s.balances.ComputeOne(ctx, account); err != nil {
		return fmt.Errorf("recompute account %s: %w", accountID, err)
	}
	return nil
}

func (s *RefreshService) findAccount(ctx context.Context, accountID string) (core.Account, error) {
	destinations, err := s.directory.DestinationAccounts(ctx)
	if err != nil {
		return core.Account{}, fmt.Errorf("list destination accounts: %w", err)
	}
	for _, a := range destinations {
		if a.ID == accountID {
			return a, nil
		}
	}

	// The event may name an account added after the last snapshot.
	s.directory.Invalidate()
	destinations, err = s.directory.DestinationAccounts(ctx)
	if err != nil {
		return core.Account{}, fmt.Errorf("list destination accounts after refresh: %w", err)
	}
	for _, a := range destinations {
		if a.ID == accountID {
			return a, nil
		}
	}
	return core.Account{}, fmt.Errorf("unknown account %s", accountID)
}
