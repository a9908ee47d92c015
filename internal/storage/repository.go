package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"ledgerview/internal/core"
	"ledgerview/internal/finance"
)

// SQLiteRepository persists directory snapshots and computed destination
// balances. It is the local half of the "read-only snapshots refreshed
// independently" model: screens can keep rendering from it while the
// backend is unreachable.
type SQLiteRepository struct {
	db *sql.DB
}

var _ finance.SnapshotStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveAccounts replaces the whole account snapshot in one transaction, so
// readers never observe a half-refreshed directory.
func (r *SQLiteRepository) SaveAccounts(ctx context.Context, accounts []core.Account) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM account_snapshots`); err != nil {
		return fmt.Errorf("clear account snapshot: %w", err)
	}

	const insert = `
		INSERT INTO account_snapshots
			(id, name, bank_name, account_number, initial_balance, balance_date, currency, category_id, user_id, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	for _, a := range accounts {
		if _, err := tx.ExecContext(ctx, insert,
			a.ID, a.Name, a.BankName, a.AccountNumber,
			a.InitialBalance.String(), a.BalanceDate.String(),
			a.Currency, a.CategoryID, a.UserID, now,
		); err != nil {
			return fmt.Errorf("insert account %s: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

func (r *SQLiteRepository) LoadAccounts(ctx context.Context) ([]core.Account, error) {
	const query = `
		SELECT id, name, bank_name, account_number, initial_balance, balance_date, currency, category_id, user_id
		FROM account_snapshots ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query account snapshot: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		var balance, balanceDate string
		if err := rows.Scan(&a.ID, &a.Name, &a.BankName, &a.AccountNumber,
			&balance, &balanceDate, &a.Currency, &a.CategoryID, &a.UserID); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		if a.InitialBalance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("parse balance for account %s: %w", a.ID, err)
		}
		if balanceDate != "" {
			if a.BalanceDate, err = core.ParseDate(balanceDate); err != nil {
				return nil, fmt.Errorf("parse balance date for account %s: %w", a.ID, err)
			}
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// SaveCategories replaces the whole category snapshot.
func (r *SQLiteRepository) SaveCategories(ctx context.Context, categories []core.Category) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM category_snapshots`); err != nil {
		return fmt.Errorf("clear category snapshot: %w", err)
	}

	const insert = `
		INSERT INTO category_snapshots (id, name, description, fetched_at)
		VALUES (?, ?, ?, ?)`
	now := time.Now().UTC()
	for _, c := range categories {
		if _, err := tx.ExecContext(ctx, insert, c.ID, c.Name, c.Description, now); err != nil {
			return fmt.Errorf("insert category %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

func (r *SQLiteRepository) LoadCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, description FROM category_snapshots ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query category snapshot: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// SaveBalance upserts one computed destination balance.
func (r *SQLiteRepository) SaveBalance(ctx context.Context, accountID string, balance decimal.Decimal, computedAt time.Time) error {
	const upsert = `
		INSERT INTO destination_balances (account_id, balance, computed_at)
		VALUES (?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			balance = excluded.balance,
			computed_at = excluded.computed_at`
	if _, err := r.db.ExecContext(ctx, upsert, accountID, balance.String(), computedAt.UTC()); err != nil {
		return fmt.Errorf("save balance for account %s: %w", accountID, err)
	}
	return nil
}

func (r *SQLiteRepository) LoadBalances(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT account_id, balance FROM destination_balances`)
	if err != nil {
		return nil, fmt.Errorf("query balances: %w", err)
	}
	defer rows.Close()

	balances := make(map[string]decimal.Decimal)
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parse balance for account %s: %w", id, err)
		}
		balances[id] = d
	}
	return balances, rows.Err()
}
