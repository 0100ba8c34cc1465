package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bookwheel/bookwheel/internal/common"
	"github.com/bookwheel/bookwheel/internal/model"
	"github.com/bookwheel/bookwheel/internal/service"
)

// Exists reports whether the account already holds a listing for the unit.
func (s *SQLiteStorage) Exists(ctx context.Context, accountID, unitKey string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return false, err
	}
	if err := validateString(unitKey, "unitKey"); err != nil {
		return false, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM listings WHERE account_id = ? AND unit_key = ?`,
		accountID, unitKey,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check listing existence: %w", mapSQLiteError(err))
	}

	return count > 0, nil
}

// InsertListing creates a pending listing. Uniqueness of the
// (account, unit) pair is enforced by the ledger's unique index, not by
// any in-memory check: when two planner runs race, exactly one insert
// succeeds and the loser gets common.ErrDuplicateEntry.
func (s *SQLiteStorage) InsertListing(ctx context.Context, listing *model.Listing) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateListing(listing); err != nil {
		return err
	}

	if listing.State == "" {
		listing.State = model.ListingPending
	}
	if listing.State != model.ListingPending {
		// The engine only ever creates pending listings; later states are
		// the marketplace client's to set.
		return fmt.Errorf("%w: new listings must be pending, got %q", ErrInvalidListing, listing.State)
	}

	query := `
		INSERT INTO listings (account_id, unit_key, unit_kind, sale_price, shipping_policy, state, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		listing.AccountID,
		listing.UnitKey,
		string(listing.UnitKind),
		listing.SalePrice,
		string(listing.Policy),
		string(listing.State),
		listing.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert listing %s/%s: %w",
			listing.AccountID, listing.UnitKey, mapSQLiteError(err))
	}

	if id, idErr := result.LastInsertId(); idErr == nil {
		listing.ID = id
	}

	return nil
}

// ListedAccounts returns the IDs of accounts holding any listing for the unit.
func (s *SQLiteStorage) ListedAccounts(ctx context.Context, unitKey string) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(unitKey, "unitKey"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT account_id FROM listings WHERE unit_key = ? ORDER BY account_id`,
		unitKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query listed accounts: %w", mapSQLiteError(err))
	}
	defer func() { _ = rows.Close() }()

	var accounts []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account id: %w", err)
		}
		accounts = append(accounts, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listed accounts: %w", err)
	}

	return accounts, nil
}

// TransitionListing moves a listing to a new lifecycle state, rejecting
// transitions the lifecycle does not allow.
func (s *SQLiteStorage) TransitionListing(ctx context.Context, listingID int64, state model.ListingState) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateListingState(state); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT state FROM listings WHERE id = ?`, listingID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: listing %d", common.ErrNotFound, listingID)
	}
	if err != nil {
		return fmt.Errorf("failed to query listing state: %w", err)
	}

	if !model.ListingState(current).ValidTransition(state) {
		return fmt.Errorf("%w: cannot transition listing %d from %q to %q",
			ErrInvalidState, listingID, current, state)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE listings SET state = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(state), listingID,
	); err != nil {
		return fmt.Errorf("failed to transition listing: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transition: %w", err)
	}

	slog.Debug("transitioned listing", "id", listingID, "from", current, "to", state)
	return nil
}

// ListListings returns listings matching the filter.
func (s *SQLiteStorage) ListListings(ctx context.Context, filter service.ListingFilter) ([]model.Listing, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, account_id, unit_key, unit_kind, sale_price, shipping_policy, state, run_id, created_at, updated_at
		FROM listings`

	var conditions []string
	var args []any
	if filter.AccountID != "" {
		conditions = append(conditions, "account_id = ?")
		args = append(args, filter.AccountID)
	}
	if filter.UnitKey != "" {
		conditions = append(conditions, "unit_key = ?")
		args = append(args, filter.UnitKey)
	}
	if filter.UnitKind != "" {
		conditions = append(conditions, "unit_kind = ?")
		args = append(args, string(filter.UnitKind))
	}
	if filter.State != "" {
		conditions = append(conditions, "state = ?")
		args = append(args, string(filter.State))
	}
	if filter.RunID != "" {
		conditions = append(conditions, "run_id = ?")
		args = append(args, filter.RunID)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY account_id, unit_key"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", mapSQLiteError(err))
	}
	defer func() { _ = rows.Close() }()

	var listings []model.Listing
	for rows.Next() {
		var listing model.Listing
		var kind, policy, state string
		if err := rows.Scan(
			&listing.ID, &listing.AccountID, &listing.UnitKey, &kind,
			&listing.SalePrice, &policy, &state, &listing.RunID,
			&listing.CreatedAt, &listing.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listing.UnitKind = model.UnitKind(kind)
		listing.Policy = model.ShippingPolicy(policy)
		listing.State = model.ListingState(state)
		listings = append(listings, listing)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listings: %w", err)
	}

	return listings, nil
}
