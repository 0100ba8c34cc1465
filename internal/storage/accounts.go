package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bookwheel/bookwheel/internal/common"
	"github.com/bookwheel/bookwheel/internal/model"
)

// SaveAccount inserts or updates a seller account.
func (s *SQLiteStorage) SaveAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("%w: account", ErrNilParameter)
	}
	if err := validateString(account.ID, "account.ID"); err != nil {
		return err
	}
	if account.Capacity < 0 {
		return fmt.Errorf("%w: capacity cannot be negative", common.ErrInvalidInput)
	}

	query := `
		INSERT INTO accounts (id, is_active, capacity)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			is_active = excluded.is_active,
			capacity = excluded.capacity`

	if _, err := s.db.ExecContext(ctx, query, account.ID, account.IsActive, account.Capacity); err != nil {
		return fmt.Errorf("failed to save account %s: %w", account.ID, mapSQLiteError(err))
	}

	return nil
}

// GetAccount retrieves a single seller account by ID.
func (s *SQLiteStorage) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var account model.Account
	err := s.db.QueryRowContext(ctx,
		`SELECT id, is_active, capacity, created_at FROM accounts WHERE id = ?`, id,
	).Scan(&account.ID, &account.IsActive, &account.Capacity, &account.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: account %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", id, mapSQLiteError(err))
	}

	return &account, nil
}

// GetActiveAccounts returns all accounts eligible to receive listings,
// in stable ID order so the planner distributes deterministically.
func (s *SQLiteStorage) GetActiveAccounts(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, is_active, capacity, created_at FROM accounts WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active accounts: %w", mapSQLiteError(err))
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		var account model.Account
		if err := rows.Scan(&account.ID, &account.IsActive, &account.Capacity, &account.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}
