// Package directory maintains read-only snapshots of account and category
// names. Aggregation runs resolve bucket keys against whatever snapshot is
// current; a momentarily stale snapshot is tolerated by design, since
// unresolved keys render as "Unknown" rather than failing a run.
package directory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ledgerview/internal/core"
	"ledgerview/internal/finance"
	"ledgerview/internal/log"
)

// destinationPageSize bounds the destination-account listing scan; the
// same short-page termination rule as the aggregation engine applies.
const destinationPageSize = 500

// Directory refreshes name snapshots from the backend on a TTL and falls
// back to the local snapshot store when the backend is unreachable.
type Directory struct {
	accounts   finance.AccountSource
	categories finance.CategorySource
	store      finance.SnapshotStore // optional
	ttl        time.Duration
	logger     *log.Logger

	mu            sync.RWMutex
	accountNames  finance.MapLookup
	categoryNames finance.MapLookup
	owned         []core.Account
	destinations  []core.Account
	refreshedAt   time.Time
}

func New(accounts finance.AccountSource, categories finance.CategorySource, store finance.SnapshotStore, ttl time.Duration, logger *log.Logger) *Directory {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentDirectory)
	}
	return &Directory{
		accounts:   accounts,
		categories: categories,
		store:      store,
		ttl:        ttl,
		logger:     logger,
	}
}

// Refresh rebuilds the snapshots from the backend and persists them.
// Refreshing is independent of any aggregation run; runs keep using the
// previous snapshot until the swap below.
func (d *Directory) Refresh(ctx context.Context) error {
	owned, err := d.accounts.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("refresh accounts: %w", err)
	}

	destinations, err := d.listAllDestinations(ctx)
	if err != nil {
		return fmt.Errorf("refresh destination accounts: %w", err)
	}

	categories, err := d.categories.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("refresh categories: %w", err)
	}

	accountNames := make(finance.MapLookup, len(owned)+len(destinations))
	for _, a := range owned {
		accountNames[a.ID] = a.Name
	}
	for _, a := range destinations {
		accountNames[a.ID] = a.Name
	}
	categoryNames := make(finance.MapLookup, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}

	d.mu.Lock()
	d.accountNames = accountNames
	d.categoryNames = categoryNames
	d.owned = owned
	d.destinations = destinations
	d.refreshedAt = time.Now()
	d.mu.Unlock()

	d.persist(ctx, owned, destinations, categories)

	d.logger.DebugContext(ctx, "Directory refreshed",
		"accounts", len(accountNames),
		"categories", len(categoryNames))
	return nil
}

func (d *Directory) listAllDestinations(ctx context.Context) ([]core.Account, error) {
	var all []core.Account
	skip := 0
	for {
		page, err := d.accounts.ListDestinationAccounts(ctx, skip, destinationPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < destinationPageSize {
			return all, nil
		}
		skip += destinationPageSize
	}
}

func (d *Directory) persist(ctx context.Context, owned, destinations []core.Account, categories []core.Category) {
	if d.store == nil {
		return
	}
	accounts := make([]core.Account, 0, len(owned)+len(destinations))
	accounts = append(accounts, owned...)
	accounts = append(accounts, destinations...)
	if err := d.store.SaveAccounts(ctx, accounts); err != nil {
		d.logger.WarnContext(ctx, "Failed to persist account snapshot", log.FieldError, err)
	}
	if err := d.store.SaveCategories(ctx, categories); err != nil {
		d.logger.WarnContext(ctx, "Failed to persist category snapshot", log.FieldError, err)
	}
}

// ensureFresh refreshes an expired snapshot. A failed refresh over a
// still-usable snapshot keeps the stale data; a failed refresh with no
// snapshot at all falls back to the local store.
func (d *Directory) ensureFresh(ctx context.Context) error {
	d.mu.RLock()
	fresh := !d.refreshedAt.IsZero() && time.Since(d.refreshedAt) < d.ttl
	loaded := d.accountNames != nil
	d.mu.RUnlock()

	if fresh {
		return nil
	}

	if err := d.Refresh(ctx); err != nil {
		if loaded {
			d.logger.WarnContext(ctx, "Directory refresh failed, serving stale snapshot", log.FieldError, err)
			return nil
		}
		if restoreErr := d.restoreFromStore(ctx); restoreErr == nil {
			d.logger.WarnContext(ctx, "Directory refresh failed, restored snapshot from store", log.FieldError, err)
			return nil
		}
		return err
	}
	return nil
}

func (d *Directory) restoreFromStore(ctx context.Context) error {
	if d.store == nil {
		return fmt.Errorf("no snapshot store configured")
	}
	accounts, err := d.store.LoadAccounts(ctx)
	if err != nil {
		return fmt.Errorf("load account snapshot: %w", err)
	}
	categories, err := d.store.LoadCategories(ctx)
	if err != nil {
		return fmt.Errorf("load category snapshot: %w", err)
	}
	if len(accounts) == 0 && len(categories) == 0 {
		return fmt.Errorf("snapshot store is empty")
	}

	accountNames := make(finance.MapLookup, len(accounts))
	var owned, destinations []core.Account
	for _, a := range accounts {
		accountNames[a.ID] = a.Name
		if a.IsDestination() {
			destinations = append(destinations, a)
		} else {
			owned = append(owned, a)
		}
	}
	categoryNames := make(finance.MapLookup, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}

	d.mu.Lock()
	d.accountNames = accountNames
	d.categoryNames = categoryNames
	d.owned = owned
	d.destinations = destinations
	// Leave refreshedAt zero so the next call still tries the backend.
	d.mu.Unlock()
	return nil
}

// AccountNames returns the current account name snapshot. The returned
// lookup is a stable copy: a run started against it is not affected by
// later refreshes.
func (d *Directory) AccountNames(ctx context.Context) (finance.NameLookup, error) {
	if err := d.ensureFresh(ctx); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return copyLookup(d.accountNames), nil
}

// CategoryNames returns the current category name snapshot.
func (d *Directory) CategoryNames(ctx context.Context) (finance.NameLookup, error) {
	if err := d.ensureFresh(ctx); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return copyLookup(d.categoryNames), nil
}

// OwnedAccounts returns the user-owned accounts from the current snapshot.
func (d *Directory) OwnedAccounts(ctx context.Context) ([]core.Account, error) {
	if err := d.ensureFresh(ctx); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]core.Account(nil), d.owned...), nil
}

// DestinationAccounts returns the destination accounts from the current
// snapshot.
func (d *Directory) DestinationAccounts(ctx context.Context) ([]core.Account, error) {
	if err := d.ensureFresh(ctx); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]core.Account(nil), d.destinations...), nil
}

// Invalidate expires the snapshot so the next read refreshes, used when a
// refresh event reports directory-scoped changes.
func (d *Directory) Invalidate() {
	d.mu.Lock()
	d.refreshedAt = time.Time{}
	d.mu.Unlock()
}

func copyLookup(in finance.MapLookup) finance.MapLookup {
	out := make(finance.MapLookup, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
